package inventory

import (
	"fmt"
	"path"
	"strings"

	"recorder2rc/internal/textutil"
)

// Meta is the verse part of a whole-chapter file name.
const Meta = "meta"

// Naming builds container file names for one project.
type Naming struct {
	Language string
	Resource string
	Book     string
	width    int
}

// NewNaming returns a Naming whose chapter numbers are padded to three digits
// when the book has more than 99 chapters and two otherwise.
func NewNaming(language, resource, book string, chapterCount int) Naming {
	width := 2
	if chapterCount > 99 {
		width = 3
	}
	return Naming{Language: language, Resource: resource, Book: book, width: width}
}

// Width returns the chapter padding width.
func (n Naming) Width() int {
	return n.width
}

// PadChapter formats a chapter number with the project padding.
func (n Naming) PadChapter(chapter int) string {
	return fmt.Sprintf("%0*d", n.width, chapter)
}

// ChapterDir returns the take directory of chapter, e.g. "c01".
func (n Naming) ChapterDir(chapter int) string {
	return "c" + n.PadChapter(chapter)
}

// TakeName names a take of one verse. Verse 0 denotes the whole chapter.
func (n Naming) TakeName(chapter, verse, take int) string {
	label := Meta
	if verse > 0 {
		label = fmt.Sprintf("v%d", verse)
	}
	return n.name(chapter, label, take)
}

// VerseName names a file cut from a chapter at the marker labelled label. A
// leading "v" in the label is not repeated. Labels come from take files, so
// they are reduced to a file name token and never carry separators.
func (n Naming) VerseName(chapter int, label string, take int) string {
	label = strings.TrimSpace(label)
	if len(label) > 0 && (label[0] == 'v' || label[0] == 'V') {
		label = label[1:]
	}
	return n.name(chapter, "v"+textutil.SanitizeToken(label), take)
}

// ChapterName names the compiled chapter file.
func (n Naming) ChapterName(chapter int) string {
	return n.TakeName(chapter, 0, 1)
}

// LogicalPath joins a chapter directory and a file name.
func (n Naming) LogicalPath(chapter int, name string) string {
	return path.Join(n.ChapterDir(chapter), name)
}

func (n Naming) name(chapter int, label string, take int) string {
	if take < 1 {
		take = 1
	}
	return fmt.Sprintf("%s_%s_%s_c%s_%s_t%d.wav",
		n.Language, n.Resource, n.Book, n.PadChapter(chapter), label, take)
}
