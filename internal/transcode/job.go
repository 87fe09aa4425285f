package transcode

import (
	"errors"
	"fmt"
	"strings"

	"sermonmux/internal/mixing"
)

// Kind distinguishes the two job shapes.
type Kind int

const (
	KindSingleTrack Kind = iota + 1
	KindMixedTrack
)

func (k Kind) String() string {
	switch k {
	case KindSingleTrack:
		return "single_track"
	case KindMixedTrack:
		return "mixed_track"
	default:
		return "unknown"
	}
}

// Job is one engine invocation. Jobs are built per language per run and
// never mutated.
type Job struct {
	Kind Kind
	// Language is the BCP-47 code written to the audio stream metadata. Empty
	// means no metadata.
	Language        string
	VideoPath       string
	PrimaryAudio    string
	TranslationPath string
	Graph           *mixing.Graph
	OutputPath      string
}

// NewSingleTrack returns a job that pairs the video with one audio file.
func NewSingleTrack(video, audio, output, lang string) Job {
	return Job{
		Kind:         KindSingleTrack,
		Language:     lang,
		VideoPath:    video,
		PrimaryAudio: audio,
		OutputPath:   output,
	}
}

// NewMixedTrack returns a job that mixes original and translation audio
// through graph.
func NewMixedTrack(video, original, translation string, graph mixing.Graph, output, lang string) Job {
	return Job{
		Kind:            KindMixedTrack,
		Language:        lang,
		VideoPath:       video,
		PrimaryAudio:    original,
		TranslationPath: translation,
		Graph:           &graph,
		OutputPath:      output,
	}
}

// Inputs returns the input files in engine input order.
func (j Job) Inputs() []string {
	if j.Kind == KindMixedTrack {
		return []string{j.VideoPath, j.PrimaryAudio, j.TranslationPath}
	}
	return []string{j.VideoPath, j.PrimaryAudio}
}

var errInvalidJob = errors.New("invalid transcode job")

// Validate checks that the job is internally consistent.
func (j Job) Validate() error {
	switch j.Kind {
	case KindSingleTrack:
		if j.Graph != nil || strings.TrimSpace(j.TranslationPath) != "" {
			return fmt.Errorf("%w: single-track job carries mixing inputs", errInvalidJob)
		}
	case KindMixedTrack:
		if j.Graph == nil || strings.TrimSpace(j.Graph.Expression) == "" {
			return fmt.Errorf("%w: mixed-track job requires a filter graph", errInvalidJob)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", errInvalidJob, j.Kind)
	}
	for _, input := range j.Inputs() {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("%w: missing input path", errInvalidJob)
		}
	}
	if strings.TrimSpace(j.OutputPath) == "" {
		return fmt.Errorf("%w: missing output path", errInvalidJob)
	}
	return nil
}
