package transcode

import (
	"sermonmux/internal/language"
)

// Audio holds the per-process audio encoding settings.
type Audio struct {
	Codec   string
	Bitrate string
}

// DefaultAudio returns AAC at 192k.
func DefaultAudio() Audio {
	return Audio{Codec: "aac", Bitrate: "192k"}
}

// BuildArgs returns the engine arguments for job, excluding the binary.
func BuildArgs(job Job, audio Audio) []string {
	if audio.Codec == "" {
		audio.Codec = DefaultAudio().Codec
	}
	if audio.Bitrate == "" {
		audio.Bitrate = DefaultAudio().Bitrate
	}

	var args []string
	switch job.Kind {
	case KindMixedTrack:
		args = []string{
			"-y",
			"-i", job.VideoPath,
			"-i", job.PrimaryAudio,
			"-i", job.TranslationPath,
			"-filter_complex", job.Graph.Expression,
			"-map", "0:v:0",
			"-map", job.Graph.OutputMap(),
			"-c:v", "copy",
			"-c:a", audio.Codec,
			"-b:a", audio.Bitrate,
		}
	default:
		args = []string{
			"-y",
			"-i", job.VideoPath,
			"-i", job.PrimaryAudio,
			"-c:v", "copy",
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:a", audio.Codec,
			"-b:a", audio.Bitrate,
		}
	}
	if job.Language != "" {
		args = append(args, "-metadata:s:a:0", "language="+language.ToISO3(job.Language))
	}
	return append(args, job.OutputPath)
}
