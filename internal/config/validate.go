package config

import (
	"errors"
	"fmt"
	"strings"

	"sermonmux/internal/language"
	"sermonmux/internal/logging"
	"sermonmux/internal/templates"
)

const uploadChunkQuantum = 256 * 1024

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateMixing(); err != nil {
		return err
	}
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateMeeting(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateTemplates(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateFFmpeg() error {
	if strings.ContainsAny(c.FFmpeg.AudioCodec, " \t") {
		return fmt.Errorf("ffmpeg.audio_codec %q must be a single codec name", c.FFmpeg.AudioCodec)
	}
	if strings.ContainsAny(c.FFmpeg.AudioBitrate, " \t") {
		return fmt.Errorf("ffmpeg.audio_bitrate %q must be a single value such as 192k", c.FFmpeg.AudioBitrate)
	}
	return nil
}

func (c *Config) validateMixing() error {
	if err := c.MixingLevels().Validate(); err != nil {
		return fmt.Errorf("mixing: %w", err)
	}
	if c.Mixing.DropoutTransition <= 0 {
		return errors.New("mixing.dropout_transition must be > 0")
	}
	return nil
}

func (c *Config) validateLanguages() error {
	seen := make(map[string]struct{}, 1+len(c.Languages.Translations))
	for idx, code := range c.LanguageOrder() {
		key := "languages.original"
		if idx > 0 {
			key = fmt.Sprintf("languages.translations[%d]", idx-1)
		}
		if _, err := language.Lookup(code); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%s: language %q listed more than once", key, code)
		}
		seen[code] = struct{}{}
	}
	return nil
}

func (c *Config) validateMeeting() error {
	if _, err := templates.ParseMeetingType(c.Meeting.Type); err != nil {
		names := make([]string, 0, 3)
		for _, mt := range templates.MeetingTypes() {
			names = append(names, string(mt))
		}
		return fmt.Errorf("meeting.type: %w (expected one of %s)", err, strings.Join(names, ", "))
	}
	return nil
}

func (c *Config) validateUpload() error {
	switch c.Upload.PrivacyStatus {
	case "private", "unlisted", "public":
	default:
		return fmt.Errorf("upload.privacy_status %q must be private, unlisted or public", c.Upload.PrivacyStatus)
	}
	if c.Upload.ChunkSizeMiB <= 0 {
		return errors.New("upload.chunk_size_mib must be positive")
	}
	if c.ChunkSizeBytes()%uploadChunkQuantum != 0 {
		return errors.New("upload.chunk_size_mib must convert to a multiple of 256 KiB")
	}
	if c.Upload.RequestTimeout < 0 {
		return errors.New("upload.request_timeout must be >= 0")
	}
	if !strings.HasPrefix(c.Upload.BaseURL, "http://") && !strings.HasPrefix(c.Upload.BaseURL, "https://") {
		return fmt.Errorf("upload.base_url %q must be an http(s) URL", c.Upload.BaseURL)
	}
	return nil
}

func (c *Config) validateTemplates() error {
	for meeting := range c.Templates {
		if _, err := templates.ParseMeetingType(meeting); err != nil {
			return fmt.Errorf("templates.%s: %w", meeting, err)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
