package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sermonmux/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Upload.ClientSecrets = filepath.Join(base, "client_secret.json")
	cfgVal.Upload.TokenFile = filepath.Join(base, "token.json")
	cfgVal.Meeting.Location = "Test Hall"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithTranslations overrides the configured translation languages.
func WithTranslations(codes ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Languages.Translations = append([]string(nil), codes...)
	}
}

// WithUploadBaseURL points uploads at a test server.
func WithUploadBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Upload.BaseURL = url
	}
}

// WithStubFFmpeg writes a stub engine that creates its output file and
// configures it as the ffmpeg override.
func WithStubFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.Binary = WriteFFmpegStub(b.t, filepath.Join(b.baseDir, "bin"), StubSucceed)
	}
}

// WithFailingFFmpeg writes a stub engine that prints to stderr and exits 1.
func WithFailingFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.Binary = WriteFFmpegStub(b.t, filepath.Join(b.baseDir, "bin"), StubFail)
	}
}

// WithMissingFFmpeg points the ffmpeg override at a path that does not exist.
func WithMissingFFmpeg() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FFmpeg.Binary = filepath.Join(b.baseDir, "bin", "no-such-ffmpeg")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// ArgsLog returns the file a stub engine appends its arguments to.
func ArgsLog(binary string) string {
	return binary + ".args"
}

// StubBehavior selects the stub engine script.
type StubBehavior int

const (
	StubSucceed StubBehavior = iota
	StubFail
)

// WriteFFmpegStub writes a shell stub named ffmpeg into dir. Each invocation
// appends its arguments, one per line followed by "--", to ArgsLog(path).
func WriteFFmpegStub(t testing.TB, dir string, behavior StubBehavior) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	path := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\n" +
		"for arg in \"$@\"; do printf '%s\\n' \"$arg\" >> \"$0.args\"; done\n" +
		"echo -- >> \"$0.args\"\n"
	switch behavior {
	case StubFail:
		script += "echo 'Input #0, mov,mp4: invalid data' >&2\n" +
			"echo 'Conversion failed!' >&2\n" +
			"exit 1\n"
	default:
		script += "for last; do :; done\n" +
			"printf 'muxed' > \"$last\"\n" +
			"exit 0\n"
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return path
}
