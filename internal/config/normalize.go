package config

import (
	"fmt"
	"os"
	"strings"

	"sermonmux/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeLanguages()
	c.normalizeMeeting()
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SERMONMUX_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SERMONMUX_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" {
		if value, ok := os.LookupEnv("SERMONMUX_FFMPEG"); ok {
			c.FFmpeg.Binary = strings.TrimSpace(value)
		}
	}
	if c.FFmpeg.Binary != "" && strings.ContainsAny(c.FFmpeg.Binary, `/\`) {
		if expanded, err := expandPath(c.FFmpeg.Binary); err == nil {
			c.FFmpeg.Binary = expanded
		}
	}
	c.FFmpeg.AudioCodec = strings.TrimSpace(c.FFmpeg.AudioCodec)
	if c.FFmpeg.AudioCodec == "" {
		c.FFmpeg.AudioCodec = defaultAudioCodec
	}
	c.FFmpeg.AudioBitrate = strings.TrimSpace(c.FFmpeg.AudioBitrate)
	if c.FFmpeg.AudioBitrate == "" {
		c.FFmpeg.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeLanguages() {
	c.Languages.Original = language.Normalize(c.Languages.Original)
	if c.Languages.Original == "" {
		c.Languages.Original = defaultOriginalLanguage
	}
	translations := make([]string, 0, len(c.Languages.Translations))
	for _, code := range c.Languages.Translations {
		if strings.TrimSpace(code) == "" {
			continue
		}
		translations = append(translations, language.Normalize(code))
	}
	c.Languages.Translations = translations
}

func (c *Config) normalizeMeeting() {
	c.Meeting.Type = strings.Join(strings.Fields(c.Meeting.Type), " ")
	if c.Meeting.Type == "" {
		c.Meeting.Type = defaultMeetingType
	}
	c.Meeting.Location = strings.TrimSpace(c.Meeting.Location)
}

func (c *Config) normalizeUpload() error {
	var err error
	if strings.TrimSpace(c.Upload.ClientSecrets) == "" {
		c.Upload.ClientSecrets = defaultClientSecrets
	}
	if c.Upload.ClientSecrets, err = expandPath(strings.TrimSpace(c.Upload.ClientSecrets)); err != nil {
		return fmt.Errorf("upload.client_secrets: %w", err)
	}
	if strings.TrimSpace(c.Upload.TokenFile) == "" {
		c.Upload.TokenFile = defaultTokenFile
	}
	if c.Upload.TokenFile, err = expandPath(strings.TrimSpace(c.Upload.TokenFile)); err != nil {
		return fmt.Errorf("upload.token_file: %w", err)
	}
	c.Upload.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upload.BaseURL), "/")
	if c.Upload.BaseURL == "" {
		c.Upload.BaseURL = defaultUploadBaseURL
	}
	c.Upload.CategoryID = strings.TrimSpace(c.Upload.CategoryID)
	if c.Upload.CategoryID == "" {
		c.Upload.CategoryID = defaultCategoryID
	}
	c.Upload.PrivacyStatus = strings.ToLower(strings.TrimSpace(c.Upload.PrivacyStatus))
	if c.Upload.PrivacyStatus == "" {
		c.Upload.PrivacyStatus = defaultPrivacyStatus
	}
	if c.Upload.ChunkSizeMiB == 0 {
		c.Upload.ChunkSizeMiB = defaultChunkSizeMiB
	}
	if c.Upload.RequestTimeout == 0 {
		c.Upload.RequestTimeout = defaultUploadTimeout
	}
	tags := make([]string, 0, len(c.Upload.Tags))
	for _, tag := range c.Upload.Tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	c.Upload.Tags = tags
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("SERMONMUX_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
