package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sermonmux/internal/config"
	"sermonmux/internal/language"
	"sermonmux/internal/segments"
	"sermonmux/internal/services"
	"sermonmux/internal/templates"
)

// DateLayout is the default rendering of the {date} template placeholder.
const DateLayout = "2006-01-02"

// Request describes one run.
type Request struct {
	// VideoPath and Audio are required for processing runs. Audio maps a
	// language code to its audio file; translations without an entry are
	// skipped.
	VideoPath string
	Audio     map[string]string
	Segments  segments.Set

	// Date and Location fill upload metadata templates. An empty Date uses
	// the run start date.
	Date        string
	Location    string
	MeetingType templates.MeetingType

	// Upload requests an upload after each successful transcode.
	Upload bool

	// Stamp overrides the run timestamp used in artifact names. Upload
	// existing uses it to locate files from an earlier run.
	Stamp time.Time
}

// plan is a validated request bound to the configuration snapshot it was
// validated against. The worker reads configuration only through it.
type plan struct {
	cfg       *config.Config
	catalog   *templates.Catalog
	req       Request
	meeting   templates.MeetingType
	languages []string
	original  string
	stamp     time.Time
	date      string
	location  string
}

func (m *Manager) planProcess(req Request, now time.Time) (plan, error) {
	cfg, catalog := m.snapshot()
	p := basePlan(cfg, catalog, req, now)
	if strings.TrimSpace(req.VideoPath) == "" {
		return plan{}, services.Wrap(services.ErrConfiguration, "orchestrator", "validate request", "video path is required", nil)
	}
	audio := normalizeAudio(req.Audio)
	if audio[p.original] == "" {
		return plan{}, services.Wrap(services.ErrConfiguration, "orchestrator", "validate request",
			fmt.Sprintf("audio for original language %q is required", p.original), nil)
	}
	for lang := range audio {
		if lang != p.original && !cfg.IsTranslation(lang) {
			return plan{}, services.Wrap(services.ErrConfiguration, "orchestrator", "validate request",
				fmt.Sprintf("audio supplied for unconfigured language %q", lang), nil)
		}
	}
	p.req.Audio = audio
	p.languages = []string{p.original}
	for _, lang := range cfg.LanguageOrder()[1:] {
		if audio[lang] != "" {
			p.languages = append(p.languages, lang)
		}
	}
	return p, nil
}

func (m *Manager) planUploadExisting(req Request, now time.Time) plan {
	cfg, catalog := m.snapshot()
	p := basePlan(cfg, catalog, req, now)
	p.req.Upload = true
	p.languages = cfg.LanguageOrder()
	return p
}

func basePlan(cfg *config.Config, catalog *templates.Catalog, req Request, now time.Time) plan {
	meeting := req.MeetingType
	if meeting == "" {
		meeting = cfg.MeetingType()
	}
	stamp := req.Stamp
	if stamp.IsZero() {
		stamp = now
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = now.Format(DateLayout)
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		location = cfg.Meeting.Location
	}
	return plan{
		cfg:      cfg,
		catalog:  catalog,
		req:      req,
		meeting:  meeting,
		original: cfg.LanguageOrder()[0],
		stamp:    stamp,
		date:     date,
		location: location,
	}
}

func normalizeAudio(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for code, path := range in {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		out[language.Normalize(code)] = path
	}
	return out
}

// SuppliedLanguages lists the languages with audio in req, sorted.
func (r Request) SuppliedLanguages() []string {
	langs := make([]string, 0, len(r.Audio))
	for lang, path := range normalizeAudio(r.Audio) {
		if path != "" {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}
