package config

const (
	defaultLogDir           = "~/.local/share/recorder2rc/logs"
	defaultSampleRate       = 44100
	defaultChannels         = 1
	defaultBitsPerSample    = 16
	defaultBufferFrames     = 5120
	defaultVersification    = "eng"
	defaultCreator          = "Orature"
	defaultPublisher        = "Wycliffe Associates"
	defaultRights           = "CC BY-SA 4.0"
	defaultCheckingEntity   = "Wycliffe Associates"
	defaultCheckingLevel    = "1"
	defaultSourceIdentifier = "ulb"
	defaultSourceLanguage   = "en"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultHistoryRetention = 90
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir(),
			LogDir:  defaultLogDir,
		},
		Audio: Audio{
			SampleRate:    defaultSampleRate,
			Channels:      defaultChannels,
			BitsPerSample: defaultBitsPerSample,
			BufferFrames:  defaultBufferFrames,
		},
		Conversion: Conversion{
			Versification:      defaultVersification,
			KeepAlternateTakes: true,
		},
		Metadata: Metadata{
			Creator:          defaultCreator,
			Publisher:        defaultPublisher,
			Rights:           defaultRights,
			CheckingEntity:   []string{defaultCheckingEntity},
			CheckingLevel:    defaultCheckingLevel,
			SourceIdentifier: defaultSourceIdentifier,
			SourceLanguage:   defaultSourceLanguage,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetention,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
