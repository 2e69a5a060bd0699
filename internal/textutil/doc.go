// Package textutil sanitizes identifiers and file names taken from project
// manifests before they become paths in a resource container.
package textutil
