package sender

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"NewsBlast/internal/metrics"
	"NewsBlast/internal/models"
	"NewsBlast/internal/transport"
)

// ChunkSender delivers one chunk as a single BCC message over a fresh
// transport connection.
type ChunkSender struct {
	Dialer transport.Dialer
	Log    *zap.Logger
}

func New(dialer transport.Dialer, log *zap.Logger) *ChunkSender {
	return &ChunkSender{Dialer: dialer, Log: log}
}

// SendChunk attempts delivery to every recipient in the chunk and always
// returns a well-formed ChunkResult, never an error. Transport failures are
// converted into per-recipient failed outcomes so progress recording is
// uniform regardless of failure mode.
func (s *ChunkSender) SendChunk(ctx context.Context, recipients []string, msg *transport.Message, chunkIndex int) models.ChunkResult {
	startedAt := time.Now().UTC()

	err := s.deliver(ctx, recipients, msg)

	result := models.ChunkResult{
		ChunkIndex:  chunkIndex,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
		Results:     make([]models.RecipientOutcome, 0, len(recipients)),
	}

	var rejections *transport.RecipientError
	switch {
	case err == nil:
		for _, addr := range recipients {
			result.Results = append(result.Results, models.RecipientOutcome{
				Email:   addr,
				Success: true,
			})
		}
	case errors.As(err, &rejections):
		for _, addr := range recipients {
			if reason, rejected := rejections.Failed[addr]; rejected {
				result.Results = append(result.Results, models.RecipientOutcome{
					Email: addr,
					Error: reason,
				})
			} else {
				result.Results = append(result.Results, models.RecipientOutcome{
					Email:   addr,
					Success: true,
				})
			}
		}
	default:
		for _, addr := range recipients {
			result.Results = append(result.Results, models.RecipientOutcome{
				Email: addr,
				Error: err.Error(),
			})
		}
	}

	for _, r := range result.Results {
		if r.Success {
			result.SentCount++
		} else {
			result.FailedCount++
		}
	}

	metrics.ChunksProcessed.Inc()
	metrics.ChunkSendDuration.Observe(result.CompletedAt.Sub(startedAt).Seconds())
	metrics.RecipientsSent.Add(float64(result.SentCount))
	metrics.RecipientsFailed.Add(float64(result.FailedCount))
	if result.SentCount == 0 {
		metrics.ChunksFailed.Inc()
	}

	if err != nil {
		s.Log.Error("chunk send failed",
			zap.Int("chunk_index", chunkIndex),
			zap.Int("recipients", len(recipients)),
			zap.Int("failed", result.FailedCount),
			zap.Error(err),
		)
	} else {
		s.Log.Info("chunk sent",
			zap.Int("chunk_index", chunkIndex),
			zap.Int("recipients", len(recipients)),
		)
	}

	return result
}

// deliver opens a connection, sends the BCC message, and closes the
// connection on every path.
func (s *ChunkSender) deliver(ctx context.Context, recipients []string, msg *transport.Message) error {
	conn, err := s.Dialer.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			s.Log.Warn("transport close failed", zap.Error(cerr))
		}
	}()

	out := *msg
	out.BCC = recipients

	return conn.Send(ctx, &out)
}
