package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/melody-ding/go-mp3vid/internal/batch"
	"github.com/melody-ding/go-mp3vid/internal/config"
	"github.com/melody-ding/go-mp3vid/internal/logx"
	"github.com/melody-ding/go-mp3vid/internal/metrics"
	"github.com/melody-ding/go-mp3vid/internal/probe"
	"github.com/melody-ding/go-mp3vid/internal/processor"
	"github.com/melody-ding/go-mp3vid/internal/render"
	"github.com/melody-ding/go-mp3vid/internal/storage"
	"github.com/melody-ding/go-mp3vid/internal/store"
	"github.com/melody-ding/go-mp3vid/internal/tags"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file (default ./config.yaml if present)")
	dir := flag.String("dir", "", "Directory of MP3 files to convert (overrides input_dir)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	if *dir != "" {
		cfg.InputDir = *dir
	}
	cfg.ExtendPath()

	logger := logx.Setup(cfg.LogConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, cleanup, err := buildRunner(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("setup failed")
		return 1
	}
	defer cleanup()

	sum, err := runner.Run(ctx, cfg.InputDir)

	if cfg.Metrics.Textfile != "" {
		if werr := runner.Metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn().Err(werr).Str("path", cfg.Metrics.Textfile).Msg("metrics not written")
		}
	}

	if err != nil {
		logger.Error().Err(err).Msg("batch aborted")
		return 1
	}
	if cfg.FailOnError && sum.Failed > 0 {
		return 2
	}
	return 0
}

func buildRunner(cfg *config.Config, logger zerolog.Logger) (*batch.Runner, func(), error) {
	cleanup := func() {}

	renderer, err := render.New(cfg.RenderOptions(), render.NewCounter())
	if err != nil {
		return nil, cleanup, err
	}
	composer := processor.NewComposer(cfg.EncoderSettings(), logger)

	runner := &batch.Runner{
		ReadTags: tags.Read,
		Probe:    probe.Duration,
		Renderer: renderer,
		Composer: composer,
		Logger:   logger,
		Options:  cfg.BatchOptions(),
	}

	if cfg.VerifyOutput {
		runner.Verify = func(outputPath string, audioDuration float64) error {
			info, err := processor.Inspect(outputPath)
			if err != nil {
				return err
			}
			return composer.Verify(info, audioDuration)
		}
	}

	if cfg.Metrics.Textfile != "" {
		runner.Metrics = metrics.New()
	}

	if cfg.Publish.Bucket != "" {
		pub, err := storage.NewS3Publisher(storage.Options{
			Bucket:         cfg.Publish.Bucket,
			Prefix:         cfg.Publish.Prefix,
			Region:         cfg.Publish.Region,
			Endpoint:       cfg.Publish.Endpoint,
			ForcePathStyle: cfg.Publish.ForcePathStyle,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("error creating publisher: %w", err)
		}
		runner.Publisher = pub
	}

	if cfg.Ledger.Path != "" {
		ledger, err := store.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("error opening ledger: %w", err)
		}
		runner.Ledger = ledger
		cleanup = func() {
			if err := ledger.Close(); err != nil {
				logger.Warn().Err(err).Msg("ledger close failed")
			}
		}
	}

	return runner, cleanup, nil
}
