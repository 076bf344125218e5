package driver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"NewsBlast/internal/chunk"
	"NewsBlast/internal/metrics"
	"NewsBlast/internal/models"
	"NewsBlast/internal/orchestrator"
	"NewsBlast/internal/progress"
)

const (
	defaultChunkSize  = 50
	defaultChunkDelay = 500 * time.Millisecond
)

// Dispatcher is the orchestrator surface the driver needs: one synchronous
// call per chunk.
type Dispatcher interface {
	SendChunk(ctx context.Context, req *orchestrator.ChunkRequest) (*orchestrator.ChunkResponse, error)
}

// Report summarizes a full send: the initial round plus every retry round.
type Report struct {
	NewsletterID string

	TotalSent   int
	TotalFailed int
	RetryRounds int

	// PermanentlyFailed lists addresses that still failed after the
	// chunk-size-1 rung of the retry ladder; they need manual follow-up.
	PermanentlyFailed []string
}

// Scheduler drives a newsletter through the engine chunk by chunk. The
// engine itself never self-schedules; implementations of this interface
// decide whether that loop runs in a background worker, a cron job, or a
// manually triggered pass.
type Scheduler interface {
	Run(ctx context.Context, newsletterID, subject, html string, recipients []string) (*Report, error)
}

// Sequential runs chunks one at a time with an enforced inter-chunk delay,
// then walks the retry ladder over whatever failed.
type Sequential struct {
	Dispatcher Dispatcher
	Store      progress.Store
	Settings   orchestrator.SettingsProvider
	Log        *zap.Logger
}

func NewSequential(d Dispatcher, store progress.Store, settings orchestrator.SettingsProvider, log *zap.Logger) *Sequential {
	return &Sequential{Dispatcher: d, Store: store, Settings: settings, Log: log}
}

func (s *Sequential) Run(ctx context.Context, newsletterID, subject, html string, recipients []string) (*Report, error) {
	settings, err := s.Settings.Settings(ctx, newsletterID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	chunkSize := settings.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	delay := settings.ChunkDelay
	if delay <= 0 {
		delay = defaultChunkDelay
	}

	chunks, err := chunk.Plan(recipients, chunkSize)
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Every(delay), 1)

	s.Log.Info("starting newsletter send",
		zap.String("newsletter_id", newsletterID),
		zap.Int("recipients", len(recipients)),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", chunkSize),
	)

	report := &Report{NewsletterID: newsletterID}

	if err := s.runRound(ctx, limiter, newsletterID, subject, html, chunks, models.ModeInitial, 0); err != nil {
		return nil, err
	}

	failed, err := s.Store.FailedRecipients(ctx, newsletterID)
	if err != nil {
		return nil, err
	}

	// Retry pass: regroup failures into progressively smaller chunks so a
	// single bad address cannot keep blocking its neighbors.
	size := chunkSize
	for len(failed) > 0 {
		next, ok := chunk.NextRetrySize(settings.RetryChunkSizes, size)
		if !ok {
			break
		}
		size = next

		retryChunks, err := chunk.Plan(failed, size)
		if err != nil {
			return nil, err
		}

		report.RetryRounds++
		metrics.RetryRounds.Inc()
		s.Log.Info("starting retry round",
			zap.String("newsletter_id", newsletterID),
			zap.Int("round", report.RetryRounds),
			zap.Int("failed_recipients", len(failed)),
			zap.Int("chunk_size", size),
		)

		if err := s.runRound(ctx, limiter, newsletterID, subject, html, retryChunks, models.ModeRetry, report.RetryRounds); err != nil {
			return nil, err
		}

		failed, err = s.Store.FailedRecipients(ctx, newsletterID)
		if err != nil {
			return nil, err
		}
	}

	// A recipient counts as sent if any round delivered to it; whatever is
	// still failing after the ladder is permanent.
	report.TotalSent = len(chunk.Normalize(recipients)) - len(failed)
	report.TotalFailed = len(failed)
	report.PermanentlyFailed = failed

	s.Log.Info("newsletter send finished",
		zap.String("newsletter_id", newsletterID),
		zap.Int("retry_rounds", report.RetryRounds),
		zap.Int("permanently_failed", len(report.PermanentlyFailed)),
	)

	return report, nil
}

func (s *Sequential) runRound(ctx context.Context, limiter *rate.Limiter, newsletterID, subject, html string, chunks [][]string, mode models.SendMode, round int) error {
	for i, c := range chunks {
		// The driver, not the engine, enforces the inter-chunk delay.
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := s.Dispatcher.SendChunk(ctx, &orchestrator.ChunkRequest{
			NewsletterID: newsletterID,
			HTML:         html,
			Subject:      subject,
			Emails:       c,
			ChunkIndex:   i,
			TotalChunks:  len(chunks),
			Mode:         mode,
			RetryRound:   round,
		})
		if err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i, len(chunks), err)
		}
		if !resp.Success {
			return fmt.Errorf("chunk %d/%d: %s", i, len(chunks), resp.Error)
		}
	}
	return nil
}
