package orchestrator

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"NewsBlast/internal/chunk"
	"NewsBlast/internal/models"
	"NewsBlast/internal/progress"
	"NewsBlast/internal/transport"
)

// ValidationError is a malformed chunk request. It is surfaced before any
// transport or persistence action and is never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// SettingsProvider supplies per-newsletter delivery configuration.
type SettingsProvider interface {
	Settings(ctx context.Context, newsletterID string) (models.SendSettings, error)
}

// ChunkSender delivers one chunk and always returns a well-formed result.
type ChunkSender interface {
	SendChunk(ctx context.Context, recipients []string, msg *transport.Message, chunkIndex int) models.ChunkResult
}

// ChunkRequest is one chunk's worth of work, as posted by the external
// driver. Mode defaults to initial.
type ChunkRequest struct {
	NewsletterID string          `json:"newsletterId"`
	HTML         string          `json:"html"`
	Subject      string          `json:"subject"`
	Emails       []string        `json:"emails"`
	ChunkIndex   int             `json:"chunkIndex"`
	TotalChunks  int             `json:"totalChunks"`
	Mode         models.SendMode `json:"mode,omitempty"`
	// RetryRound numbers the retry passes; leave 0 for the initial round
	// and count up per retry pass so the store can tell rounds apart.
	RetryRound int `json:"retryRound,omitempty"`
}

// ChunkResponse reports the outcome of processing one chunk. Success refers
// to the chunk being processed and recorded, not to every delivery
// succeeding; failed deliveries are counted in FailedCount and picked up by
// the retry pass.
type ChunkResponse struct {
	Success     bool   `json:"success"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	SentCount   int    `json:"sentCount"`
	FailedCount int    `json:"failedCount"`
	IsComplete  bool   `json:"isComplete"`
	Error       string `json:"error,omitempty"`
}

// Orchestrator is the engine's entry point: one synchronous call per chunk.
// It holds no per-newsletter state of its own; everything durable lives in
// the progress store, so it is safe to invoke from short-lived request
// handlers.
type Orchestrator struct {
	Sender   ChunkSender
	Store    progress.Store
	Settings SettingsProvider
	Log      *zap.Logger
}

func New(s ChunkSender, store progress.Store, settings SettingsProvider, log *zap.Logger) *Orchestrator {
	return &Orchestrator{Sender: s, Store: store, Settings: settings, Log: log}
}

// SendChunk validates the request, delivers the chunk, and records the
// result durably before reporting back. A PersistenceError propagates even
// though the send itself may have succeeded; the caller must not assume the
// chunk is recorded.
func (o *Orchestrator) SendChunk(ctx context.Context, req *ChunkRequest) (*ChunkResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = models.ModeInitial
	}

	// Confirm the newsletter exists before any transport action.
	if _, err := o.Store.Get(ctx, req.NewsletterID); err != nil {
		return nil, err
	}

	settings, err := o.Settings.Settings(ctx, req.NewsletterID)
	if err != nil {
		return nil, err
	}

	recipients := chunk.Normalize(req.Emails)
	if len(recipients) == 0 {
		return nil, &ValidationError{Msg: "Missing required fields"}
	}

	msg := &transport.Message{
		From:    settings.FromAddress,
		ReplyTo: settings.ReplyTo,
		Subject: req.Subject,
		HTML:    req.HTML,
	}

	result := o.Sender.SendChunk(ctx, recipients, msg, req.ChunkIndex)

	prog, err := o.Store.RecordChunk(ctx, req.NewsletterID, result, progress.Round{
		Mode:        mode,
		Number:      req.RetryRound,
		TotalChunks: req.TotalChunks,
	})
	if err != nil {
		o.Log.Error("chunk result could not be recorded",
			zap.String("newsletter_id", req.NewsletterID),
			zap.Int("chunk_index", req.ChunkIndex),
			zap.Int("sent", result.SentCount),
			zap.Int("failed", result.FailedCount),
			zap.Error(err),
		)
		return nil, err
	}

	o.Log.Info("chunk recorded",
		zap.String("newsletter_id", req.NewsletterID),
		zap.String("mode", string(mode)),
		zap.Int("chunk_index", req.ChunkIndex),
		zap.Int("total_chunks", req.TotalChunks),
		zap.Int("sent", result.SentCount),
		zap.Int("failed", result.FailedCount),
		zap.Bool("complete", prog.IsComplete),
	)

	return &ChunkResponse{
		Success:     true,
		ChunkIndex:  req.ChunkIndex,
		TotalChunks: req.TotalChunks,
		SentCount:   result.SentCount,
		FailedCount: result.FailedCount,
		IsComplete:  prog.IsComplete,
	}, nil
}

func validate(req *ChunkRequest) error {
	if req.NewsletterID == "" || strings.TrimSpace(req.Subject) == "" ||
		strings.TrimSpace(req.HTML) == "" || len(req.Emails) == 0 {
		return &ValidationError{Msg: "Missing required fields"}
	}
	if req.ChunkIndex < 0 {
		return &ValidationError{Msg: "chunkIndex must be >= 0"}
	}
	if req.TotalChunks < 1 {
		return &ValidationError{Msg: "totalChunks must be >= 1"}
	}
	if req.ChunkIndex >= req.TotalChunks {
		return &ValidationError{Msg: "chunkIndex must be < totalChunks"}
	}
	if req.Mode != "" && req.Mode != models.ModeInitial && req.Mode != models.ModeRetry {
		return &ValidationError{Msg: "invalid mode"}
	}
	if req.RetryRound < 0 {
		return &ValidationError{Msg: "retryRound must be >= 0"}
	}
	return nil
}
