package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"sermonmux/internal/artifacts"
	"sermonmux/internal/config"
	"sermonmux/internal/credentials"
	"sermonmux/internal/logging"
	"sermonmux/internal/orchestrator"
	"sermonmux/internal/transcode"
	"sermonmux/internal/upload"
)

// runtime bundles what run commands and serve share.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *artifacts.Store
	manager *orchestrator.Manager
}

type runtimeOptions struct {
	hub      *logging.StreamHub
	progress upload.ProgressFunc
}

func (c *commandContext) openRuntime(cmd *cobra.Command, opts runtimeOptions) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.newLogger(cmd.ErrOrStderr(), opts.hub)
	if err != nil {
		return nil, err
	}
	store, err := artifacts.Open(cfg.StateDBPath())
	if err != nil {
		logger.Error("open artifact registry", logging.Error(err))
		return nil, fmt.Errorf("open artifact registry: %w", err)
	}

	executor := transcode.NewExecutor(cfg.FFmpeg.Binary, transcode.Audio{
		Codec:   cfg.FFmpeg.AudioCodec,
		Bitrate: cfg.FFmpeg.AudioBitrate,
	}, logger)

	var manager *orchestrator.Manager
	factory := func(ctx context.Context) (orchestrator.Uploader, error) {
		current := manager.Config()
		httpClient, err := credentials.HTTPClient(ctx, credentials.Files{
			ClientSecrets: current.Upload.ClientSecrets,
			Token:         current.Upload.TokenFile,
		}, current.UploadTimeout())
		if err != nil {
			return nil, err
		}
		return upload.NewClient(httpClient, upload.Options{
			BaseURL:       current.Upload.BaseURL,
			ChunkSize:     current.ChunkSizeBytes(),
			CategoryID:    current.Upload.CategoryID,
			PrivacyStatus: current.Upload.PrivacyStatus,
			Progress:      manager.ProgressObserver(opts.progress),
		}, logger), nil
	}
	manager = orchestrator.NewManager(cfg, store, executor, logger, orchestrator.WithUploaderFactory(factory))

	return &runtime{cfg: cfg, logger: logger, store: store, manager: manager}, nil
}

func (r *runtime) Close() error {
	if r == nil || r.store == nil {
		return nil
	}
	return r.store.Close()
}
