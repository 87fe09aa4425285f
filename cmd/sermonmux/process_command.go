package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/manifest"
	"sermonmux/internal/orchestrator"
	"sermonmux/internal/segments"
	"sermonmux/internal/services"
	"sermonmux/internal/templates"
)

type processFlags struct {
	manifestPath string
	video        string
	audio        []string
	segments     string
	date         string
	location     string
	meetingType  string
	upload       bool
	skipChecks   bool
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Mux the recording with each language's audio and optionally upload",
		Long: `Produce one MP4 per language: the original audio is copied next to the
video, and each translation is mixed with the original using the segment
volume automation. With --upload each file is uploaded as soon as it is
produced. Ctrl+C cancels cleanly between chunks and languages.`,
		Example: `  sermonmux process --video service.mp4 --audio he=he.wav --audio ru=ru.wav --segments 60-300,450-600
  sermonmux process --manifest run.yaml --upload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bar := newUploadBar(cmd.ErrOrStderr())
			rt, err := ctx.openRuntime(cmd, runtimeOptions{progress: bar.observer()})
			if err != nil {
				return err
			}
			defer rt.Close()

			req, err := flags.request(cmd, rt)
			if err != nil {
				return err
			}
			if !flags.skipChecks {
				if err := runPreflight(cmd, rt, req.Upload); err != nil {
					return err
				}
			}
			return executeRun(cmd, rt, bar, func(runCtx context.Context) (string, error) {
				return rt.manager.Start(runCtx, req)
			})
		},
	}

	cmd.Flags().StringVarP(&flags.manifestPath, "manifest", "m", "", "Run manifest (YAML or JSON); flags override its values")
	cmd.Flags().StringVar(&flags.video, "video", "", "Source video file")
	cmd.Flags().StringArrayVar(&flags.audio, "audio", nil, "Audio file as lang=path (repeatable)")
	cmd.Flags().StringVar(&flags.segments, "segments", "", "Translation windows in seconds, e.g. 60-300,450-600")
	cmd.Flags().StringVar(&flags.date, "date", "", "Date used in titles (default today)")
	cmd.Flags().StringVar(&flags.location, "location", "", "Location used in descriptions (default meeting.location)")
	cmd.Flags().StringVar(&flags.meetingType, "meeting-type", "", "Sermon, Worship meeting, or Prayer meeting")
	cmd.Flags().BoolVar(&flags.upload, "upload", false, "Upload each produced file")
	cmd.Flags().BoolVar(&flags.skipChecks, "skip-checks", false, "Skip dependency and credential preflight")
	return cmd
}

func (f processFlags) request(cmd *cobra.Command, rt *runtime) (orchestrator.Request, error) {
	var req orchestrator.Request
	if f.manifestPath != "" {
		doc, err := manifest.Load(f.manifestPath)
		if err != nil {
			return req, err
		}
		req, err = doc.Request(rt.logger)
		if err != nil {
			return req, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("video") {
		req.VideoPath = f.video
	}
	if changed("audio") {
		audio, err := parseAudioFlags(f.audio)
		if err != nil {
			return req, services.Wrap(services.ErrConfiguration, "cli", "audio", "", err)
		}
		if req.Audio == nil {
			req.Audio = make(map[string]string, len(audio))
		}
		for lang, path := range audio {
			req.Audio[lang] = path
		}
	}
	if changed("segments") {
		req.Segments = segments.Parse(f.segments, rt.logger)
	}
	if changed("date") {
		req.Date = f.date
	}
	if changed("location") {
		req.Location = f.location
	}
	if changed("meeting-type") {
		meeting, err := templates.ParseMeetingType(f.meetingType)
		if err != nil {
			return req, services.Wrap(services.ErrConfiguration, "cli", "meeting-type", "", err)
		}
		req.MeetingType = meeting
	}
	if changed("upload") {
		req.Upload = f.upload
	}
	return req, nil
}

func newUploadExistingCommand(ctx *commandContext) *cobra.Command {
	var (
		stamp       string
		date        string
		location    string
		meetingType string
		skipChecks  bool
	)

	cmd := &cobra.Command{
		Use:   "upload-existing",
		Short: "Upload previously produced files for every configured language",
		Long: `Upload files produced by an earlier process run without transcoding.
Files are located from the artifact registry, or by the naming scheme for
--stamp (YYYY-MM-DD-HH-MM). Missing languages are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			bar := newUploadBar(cmd.ErrOrStderr())
			rt, err := ctx.openRuntime(cmd, runtimeOptions{progress: bar.observer()})
			if err != nil {
				return err
			}
			defer rt.Close()

			req := orchestrator.Request{Date: date, Location: location}
			if stamp != "" {
				parsed, err := time.ParseInLocation(artifacts.StampLayout, stamp, time.Local)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "cli", "stamp",
						fmt.Sprintf("expected %s", artifacts.StampLayout), err)
				}
				req.Stamp = parsed
			}
			if meetingType != "" {
				meeting, err := templates.ParseMeetingType(meetingType)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "cli", "meeting-type", "", err)
				}
				req.MeetingType = meeting
			}
			if !skipChecks {
				if err := runPreflight(cmd, rt, true); err != nil {
					return err
				}
			}
			return executeRun(cmd, rt, bar, func(runCtx context.Context) (string, error) {
				return rt.manager.UploadExisting(runCtx, req)
			})
		},
	}

	cmd.Flags().StringVar(&stamp, "stamp", "", "Run timestamp of the files to upload (YYYY-MM-DD-HH-MM)")
	cmd.Flags().StringVar(&date, "date", "", "Date used in titles (default today)")
	cmd.Flags().StringVar(&location, "location", "", "Location used in descriptions")
	cmd.Flags().StringVar(&meetingType, "meeting-type", "", "Sermon, Worship meeting, or Prayer meeting")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Skip dependency and credential preflight")
	return cmd
}
