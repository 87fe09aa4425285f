// Package manifest reads run manifests: YAML (or JSON) documents naming the
// inputs and metadata of one run.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/orchestrator"
	"sermonmux/internal/segments"
	"sermonmux/internal/services"
	"sermonmux/internal/templates"
)

// Manifest describes one run.
//
//	video: /media/2024-05-12/service.mp4
//	audio:
//	  he: he.wav
//	  ru: ru.wav
//	segments: "60-300,450-600"
//	date: "2024-05-12"
//	location: Main Hall
//	meeting_type: Sermon
//	upload: true
type Manifest struct {
	Video       string            `yaml:"video" json:"video"`
	Audio       map[string]string `yaml:"audio" json:"audio"`
	Segments    string            `yaml:"segments" json:"segments"`
	Date        string            `yaml:"date" json:"date"`
	Location    string            `yaml:"location" json:"location"`
	MeetingType string            `yaml:"meeting_type" json:"meeting_type"`
	Upload      bool              `yaml:"upload" json:"upload"`
	// Stamp selects an earlier run's artifacts (YYYY-MM-DD-HH-MM).
	Stamp string `yaml:"stamp" json:"stamp"`

	// baseDir resolves relative media paths.
	baseDir string
}

// Load reads the manifest at path. Relative media paths resolve against the
// manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "manifest", "read", path, err)
	}
	m, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		m.baseDir = filepath.Dir(abs)
	}
	return m, nil
}

// Decode parses a manifest document. JSON bodies decode too.
func Decode(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, services.Wrap(services.ErrConfiguration, "manifest", "decode", "document is empty", nil)
		}
		return nil, services.Wrap(services.ErrConfiguration, "manifest", "decode", "", err)
	}
	m.normalize()
	return &m, nil
}

func (m *Manifest) normalize() {
	m.Video = strings.TrimSpace(m.Video)
	m.Segments = strings.TrimSpace(m.Segments)
	m.Date = strings.TrimSpace(m.Date)
	m.Location = strings.TrimSpace(m.Location)
	m.MeetingType = strings.TrimSpace(m.MeetingType)
	m.Stamp = strings.TrimSpace(m.Stamp)
	audio := make(map[string]string, len(m.Audio))
	for lang, path := range m.Audio {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if path = strings.TrimSpace(path); lang != "" && path != "" {
			audio[lang] = path
		}
	}
	m.Audio = audio
}

// WithBaseDir sets the directory relative paths resolve against.
func (m *Manifest) WithBaseDir(dir string) *Manifest {
	m.baseDir = dir
	return m
}

func (m *Manifest) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || m.baseDir == "" {
		return path
	}
	return filepath.Join(m.baseDir, path)
}

// Request converts the manifest into an orchestrator request. Malformed
// segment pairs are logged and skipped.
func (m *Manifest) Request(logger *slog.Logger) (orchestrator.Request, error) {
	req := orchestrator.Request{
		VideoPath: m.resolve(m.Video),
		Audio:     make(map[string]string, len(m.Audio)),
		Segments:  segments.Parse(m.Segments, logger),
		Date:      m.Date,
		Location:  m.Location,
		Upload:    m.Upload,
	}
	for lang, path := range m.Audio {
		req.Audio[lang] = m.resolve(path)
	}
	if m.MeetingType != "" {
		meeting, err := templates.ParseMeetingType(m.MeetingType)
		if err != nil {
			return orchestrator.Request{}, services.Wrap(services.ErrConfiguration, "manifest", "meeting_type", "", err)
		}
		req.MeetingType = meeting
	}
	if m.Stamp != "" {
		stamp, err := time.ParseInLocation(artifacts.StampLayout, m.Stamp, time.Local)
		if err != nil {
			return orchestrator.Request{}, services.Wrap(services.ErrConfiguration, "manifest", "stamp",
				fmt.Sprintf("expected %s", artifacts.StampLayout), err)
		}
		req.Stamp = stamp
	}
	return req, nil
}
