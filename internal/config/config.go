package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sermonmux/internal/language"
	"sermonmux/internal/mixing"
	"sermonmux/internal/services"
	"sermonmux/internal/templates"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// FFmpeg contains engine lookup and audio encoding settings.
type FFmpeg struct {
	// Binary overrides engine lookup when set.
	Binary       string `toml:"binary"`
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// Mixing contains the volume automation levels.
type Mixing struct {
	PrimaryLevel      float64 `toml:"primary_level"`
	DuckedLevel       float64 `toml:"ducked_level"`
	ShoutsLevel       float64 `toml:"shouts_level"`
	DropoutTransition float64 `toml:"dropout_transition"`
}

// Languages lists the original language and the translations in processing order.
type Languages struct {
	Original     string   `toml:"original"`
	Translations []string `toml:"translations"`
}

// Meeting describes the recorded service.
type Meeting struct {
	Type     string `toml:"type"`
	Location string `toml:"location"`
}

// Upload contains video hosting settings.
type Upload struct {
	ClientSecrets  string   `toml:"client_secrets"`
	TokenFile      string   `toml:"token_file"`
	BaseURL        string   `toml:"base_url"`
	CategoryID     string   `toml:"category_id"`
	PrivacyStatus  string   `toml:"privacy_status"`
	ChunkSizeMiB   int      `toml:"chunk_size_mib"`
	Tags           []string `toml:"tags"`
	RequestTimeout int      `toml:"request_timeout"`
}

// TemplateText overrides one built-in title/description template.
type TemplateText struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for sermonmux.
//
// Configuration sections by subsystem:
//   - Paths: output, state and log directories plus the API bind address
//   - FFmpeg: engine override and audio encoding
//   - Mixing: volume automation levels
//   - Languages: original language and ordered translations
//   - Meeting: meeting type and location used in upload metadata
//   - Upload: OAuth files and resumable upload settings
//   - Templates: per meeting type and language title/description overrides
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths                              `toml:"paths"`
	FFmpeg        FFmpeg                             `toml:"ffmpeg"`
	Mixing        Mixing                             `toml:"mixing"`
	Languages     Languages                          `toml:"languages"`
	Meeting       Meeting                            `toml:"meeting"`
	Upload        Upload                             `toml:"upload"`
	Templates     map[string]map[string]TemplateText `toml:"templates"`
	Notifications Notifications                      `toml:"notifications"`
	Logging       Logging                            `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Failures are marked services.ErrConfiguration.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "resolve", "", err)
	}

	if exists {
		if err := cfg.decodeFile(resolvedPath); err != nil {
			return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "parse", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "normalize", "", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
	}

	return &cfg, resolvedPath, exists, nil
}

func (c *Config) decodeFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sermonmux.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MixingLevels returns the configured gain levels.
func (c *Config) MixingLevels() mixing.Levels {
	return mixing.Levels{
		Primary: c.Mixing.PrimaryLevel,
		Ducked:  c.Mixing.DuckedLevel,
		Shouts:  c.Mixing.ShoutsLevel,
	}
}

// LanguageOrder returns the original language followed by the translations.
func (c *Config) LanguageOrder() []string {
	order := make([]string, 0, 1+len(c.Languages.Translations))
	order = append(order, c.Languages.Original)
	order = append(order, c.Languages.Translations...)
	return order
}

// IsTranslation reports whether lang is one of the configured translations.
func (c *Config) IsTranslation(lang string) bool {
	for _, code := range c.Languages.Translations {
		if code == lang {
			return true
		}
	}
	return false
}

// MeetingType returns the parsed meeting type. Validate guarantees it parses.
func (c *Config) MeetingType() templates.MeetingType {
	mt, err := templates.ParseMeetingType(c.Meeting.Type)
	if err != nil {
		return templates.MeetingSermon
	}
	return mt
}

// TemplateOverrides converts the [templates] tables into catalog overrides.
func (c *Config) TemplateOverrides() templates.Overrides {
	if len(c.Templates) == 0 {
		return nil
	}
	out := make(templates.Overrides, len(c.Templates))
	for meeting, byLang := range c.Templates {
		mt, err := templates.ParseMeetingType(meeting)
		if err != nil {
			continue
		}
		if out[mt] == nil {
			out[mt] = make(map[string]templates.Template, len(byLang))
		}
		for lang, text := range byLang {
			out[mt][language.Normalize(lang)] = templates.Template{Title: text.Title, Description: text.Description}
		}
	}
	return out
}

// ChunkSizeBytes returns the upload chunk size in bytes.
func (c *Config) ChunkSizeBytes() int64 {
	return int64(c.Upload.ChunkSizeMiB) * 1024 * 1024
}

// UploadTimeout returns the per-request HTTP timeout for uploads.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.RequestTimeout) * time.Second
}

// StateDBPath returns the sqlite artifact registry location.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.StateDir, "sermonmux.db")
}

// LockPath returns the cross-process run lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "run.lock")
}

// LogFilePath returns the JSON log file location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "sermonmux.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
