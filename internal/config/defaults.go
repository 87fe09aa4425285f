package config

import "sermonmux/internal/mixing"

const (
	defaultConfigPath        = "~/.config/sermonmux/config.toml"
	defaultOutputDir         = "~/Videos/sermonmux"
	defaultStateDir          = "~/.local/share/sermonmux"
	defaultLogDir            = "~/.local/share/sermonmux/logs"
	defaultAPIBind           = "127.0.0.1:7489"
	defaultAudioCodec        = "aac"
	defaultAudioBitrate      = "192k"
	defaultOriginalLanguage  = "he"
	defaultMeetingType       = "Sermon"
	defaultClientSecrets     = "~/.config/sermonmux/client_secret.json"
	defaultTokenFile         = "~/.config/sermonmux/token.json"
	defaultUploadBaseURL     = "https://www.googleapis.com"
	defaultCategoryID        = "22"
	defaultPrivacyStatus     = "private"
	defaultChunkSizeMiB      = 8
	defaultUploadTimeout     = 120
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultLogRetentionDays  = 30
	defaultDropoutTransition = mixing.DefaultDropoutTransition
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		FFmpeg: FFmpeg{
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
		},
		Mixing: Mixing{
			PrimaryLevel:      mixing.DefaultPrimary,
			DuckedLevel:       mixing.DefaultDucked,
			ShoutsLevel:       mixing.DefaultShouts,
			DropoutTransition: defaultDropoutTransition,
		},
		Languages: Languages{
			Original:     defaultOriginalLanguage,
			Translations: []string{"ru", "en"},
		},
		Meeting: Meeting{
			Type: defaultMeetingType,
		},
		Upload: Upload{
			ClientSecrets:  defaultClientSecrets,
			TokenFile:      defaultTokenFile,
			BaseURL:        defaultUploadBaseURL,
			CategoryID:     defaultCategoryID,
			PrivacyStatus:  defaultPrivacyStatus,
			ChunkSizeMiB:   defaultChunkSizeMiB,
			RequestTimeout: defaultUploadTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
