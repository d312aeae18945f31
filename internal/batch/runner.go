// Package batch converts every MP3 in a directory, one track at a time.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/melody-ding/go-mp3vid/internal/metrics"
	"github.com/melody-ding/go-mp3vid/internal/probe"
	"github.com/melody-ding/go-mp3vid/internal/scanner"
	"github.com/melody-ding/go-mp3vid/internal/sharding"
	"github.com/melody-ding/go-mp3vid/internal/store"
	"github.com/melody-ding/go-mp3vid/internal/types"
)

// Frame retention policies
const (
	RetainKeep    = "keep"
	RetainDelete  = "delete"
	RetainArchive = "archive"
)

type FrameRenderer interface {
	Render(text string) (types.Frame, error)
}

type VideoComposer interface {
	Compose(ctx context.Context, framePath, audioPath, outputPath string, durationSeconds float64) error
}

type Publisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

type Ledger interface {
	StartRun(id, inputDir string, at time.Time) error
	RecordTrack(runID string, r types.TrackResult) error
	FinishRun(id string, processed, failed, skipped int, at time.Time) error
	LastDone(sourcePath string) (*store.TrackRecord, error)
}

// Options tune a run; the zero value keeps frames and converts every track
type Options struct {
	FrameRetention string
	FrameDir       string
	SkipExisting   bool
	ReportPath     string
}

// Runner wires the per-track stages together. ReadTags, Probe, Renderer and
// Composer are required; Verify, Publisher, Ledger and Metrics are optional.
type Runner struct {
	ReadTags  func(path string) (types.TagSet, error)
	Probe     func(path string) (float64, error)
	Renderer  FrameRenderer
	Composer  VideoComposer
	Verify    func(outputPath string, audioDuration float64) error
	Publisher Publisher
	Ledger    Ledger
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
	Options   Options
}

// Summary reports the outcome of a run
type Summary struct {
	RunID     string              `json:"run_id"`
	InputDir  string              `json:"input_dir"`
	Started   time.Time           `json:"started"`
	Finished  time.Time           `json:"finished"`
	Total     int                 `json:"total"`
	Processed int                 `json:"processed"`
	Failed    int                 `json:"failed"`
	Skipped   int                 `json:"skipped"`
	Archives  []string            `json:"frame_archives,omitempty"`
	Results   []types.TrackResult `json:"results"`
}

// stageError tags an error with the pipeline stage that produced it
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func (r *Runner) validate() error {
	switch {
	case r.ReadTags == nil:
		return errors.New("batch: tag reader is required")
	case r.Probe == nil:
		return errors.New("batch: duration prober is required")
	case r.Renderer == nil:
		return errors.New("batch: frame renderer is required")
	case r.Composer == nil:
		return errors.New("batch: video composer is required")
	}
	switch r.Options.FrameRetention {
	case "", RetainKeep, RetainDelete, RetainArchive:
	default:
		return fmt.Errorf("batch: unknown frame retention %q", r.Options.FrameRetention)
	}
	return nil
}

// Run converts every MP3 in inputDir in listing order. Per-track failures
// are logged and counted; only setup errors and cancellation end the run
// early.
func (r *Runner) Run(ctx context.Context, inputDir string) (Summary, error) {
	if err := r.validate(); err != nil {
		return Summary{}, err
	}

	sum := Summary{
		RunID:    NewRunID(),
		InputDir: inputDir,
		Started:  time.Now(),
	}
	log := r.Logger.With().Str("run", sum.RunID).Logger()

	tracks, err := scanner.ListTracks(inputDir)
	if err != nil {
		return sum, err
	}
	sum.Total = len(tracks)
	log.Info().Str("dir", inputDir).Int("tracks", len(tracks)).Msg("starting batch")

	ledger := r.Ledger
	if ledger != nil {
		if err := ledger.StartRun(sum.RunID, inputDir, sum.Started); err != nil {
			log.Warn().Err(err).Msg("ledger unavailable, continuing without it")
			ledger = nil
		}
	}

	var frames []string
	var runErr error
	for i, track := range tracks {
		if err := ctx.Err(); err != nil {
			runErr = err
			log.Warn().Err(err).Int("remaining", len(tracks)-i).Msg("batch interrupted")
			break
		}

		res := r.processTrack(ctx, log, ledger, track)
		sum.Results = append(sum.Results, res)
		switch res.Status {
		case types.StatusDone:
			sum.Processed++
		case types.StatusSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
		if res.FramePath != "" && r.Options.FrameRetention == RetainArchive {
			frames = append(frames, res.FramePath)
		}

		r.Metrics.Track(res.Status)
		if ledger != nil {
			if err := ledger.RecordTrack(sum.RunID, res); err != nil {
				log.Warn().Err(err).Str("file", track.Path).Msg("ledger write failed")
			}
		}
	}

	if len(frames) > 0 {
		sum.Archives = r.archiveFrames(log, sum.RunID, frames)
	}

	sum.Finished = time.Now()
	r.Metrics.Finish(sum.Finished)
	if ledger != nil {
		if err := ledger.FinishRun(sum.RunID, sum.Processed, sum.Failed, sum.Skipped, sum.Finished); err != nil {
			log.Warn().Err(err).Msg("ledger write failed")
		}
	}
	if r.Options.ReportPath != "" {
		if err := writeReport(r.Options.ReportPath, sum); err != nil {
			log.Error().Err(err).Str("path", r.Options.ReportPath).Msg("report not written")
		}
	}

	log.Info().
		Int("processed", sum.Processed).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Dur("elapsed", sum.Finished.Sub(sum.Started)).
		Msg("batch finished")

	return sum, runErr
}

func (r *Runner) processTrack(ctx context.Context, log zerolog.Logger, ledger Ledger, track types.Track) (res types.TrackResult) {
	start := time.Now()
	res = types.TrackResult{
		Name:       track.Name,
		SourcePath: track.Path,
		OutputPath: scanner.OutputPath(track),
	}
	tlog := log.With().Str("file", filepath.Base(track.Path)).Logger()

	defer func() {
		if p := recover(); p != nil {
			res.Status = types.StatusFailed
			res.Error = fmt.Sprintf("panic: %v", p)
			tlog.Error().Str("stage", res.Stage).Interface("panic", p).Msg("track failed")
		}
		res.ElapsedMS = time.Since(start).Milliseconds()
	}()

	if r.Options.SkipExisting && nonEmpty(res.OutputPath) {
		res.Status = types.StatusSkipped
		ev := tlog.Info().Str("output", res.OutputPath)
		if ledger != nil {
			if prev, err := ledger.LastDone(track.Path); err == nil && prev != nil {
				ev = ev.Str("converted_in", prev.RunID)
			}
		}
		ev.Msg("output exists, skipping")
		return res
	}

	err := r.convert(ctx, track, &res)
	if err != nil {
		res.Status = types.StatusFailed
		var se *stageError
		if errors.As(err, &se) {
			res.Stage = se.stage
		}
		res.Error = err.Error()
		tlog.Error().Err(err).Str("stage", res.Stage).Msg("track failed")
		return res
	}

	res.Status = types.StatusDone
	tlog.Info().
		Str("output", res.OutputPath).
		Uint64("frame", res.FrameID).
		Int("loops", res.LoopCount).
		Dur("elapsed", time.Since(start)).
		Msg("track converted")
	return res
}

func (r *Runner) convert(ctx context.Context, track types.Track, res *types.TrackResult) error {
	res.Stage = metrics.StageTags
	done := r.Metrics.Stage(metrics.StageTags)
	tags, err := r.ReadTags(track.Path)
	done()
	if err != nil {
		return &stageError{metrics.StageTags, err}
	}
	track.Tags = tags
	info := InfoText(track.Name, tags)

	res.Stage = metrics.StageProbe
	done = r.Metrics.Stage(metrics.StageProbe)
	track.Duration, err = r.Probe(track.Path)
	done()
	if err != nil {
		return &stageError{metrics.StageProbe, err}
	}
	res.Duration = track.Duration

	job := types.RenderJob{
		Track:      track,
		OutputPath: res.OutputPath,
		LoopCount:  probe.LoopCount(track.Duration),
	}
	res.LoopCount = job.LoopCount

	res.Stage = metrics.StageRender
	done = r.Metrics.Stage(metrics.StageRender)
	job.Frame, err = r.Renderer.Render(info)
	done()
	if err != nil {
		return &stageError{metrics.StageRender, err}
	}
	res.FrameID = job.Frame.ID
	res.FramePath = job.Frame.Path
	if r.Options.FrameRetention == RetainDelete {
		defer func() {
			if err := os.Remove(job.Frame.Path); err == nil {
				res.FramePath = ""
			}
		}()
	}

	res.Stage = metrics.StageEncode
	done = r.Metrics.Stage(metrics.StageEncode)
	err = r.Composer.Compose(ctx, job.Frame.Path, track.Path, job.OutputPath, track.Duration)
	done()
	if err != nil {
		return &stageError{metrics.StageEncode, err}
	}

	if r.Verify != nil {
		res.Stage = metrics.StageVerify
		done = r.Metrics.Stage(metrics.StageVerify)
		err = r.Verify(job.OutputPath, track.Duration)
		done()
		if err != nil {
			return &stageError{metrics.StageVerify, err}
		}
	}

	if r.Publisher != nil {
		res.Stage = metrics.StagePublish
		done = r.Metrics.Stage(metrics.StagePublish)
		url, err := r.Publisher.Publish(ctx, job.OutputPath)
		done()
		if err != nil {
			return &stageError{metrics.StagePublish, err}
		}
		res.Published = url
	}

	res.Stage = ""
	return nil
}

func (r *Runner) archiveFrames(log zerolog.Logger, runID string, frames []string) []string {
	dir := r.Options.FrameDir
	if dir == "" {
		dir = filepath.Dir(frames[0])
	}

	shards, err := sharding.ArchiveFrames(frames, dir, "frames-"+runID, sharding.DefaultShardSize)
	if err != nil {
		log.Error().Err(err).Msg("frame archive failed, keeping frames")
		return shards
	}
	for _, f := range frames {
		if err := os.Remove(f); err != nil {
			log.Warn().Err(err).Str("frame", f).Msg("frame not removed")
		}
	}
	log.Info().Strs("archives", shards).Int("frames", len(frames)).Msg("frames archived")
	return shards
}

func writeReport(path string, sum Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
