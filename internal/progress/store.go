package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NewsBlast/internal/models"
)

// ErrNotFound is returned when a newsletter id is unknown.
var ErrNotFound = errors.New("progress: newsletter not found")

// PersistenceError is a durable-state write failure. The send attempt itself
// may have succeeded even though recording it failed; the caller must not
// assume the chunk is safely recorded and may retry RecordChunk with the
// same result.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Round carries the caller-announced metadata for the sending round a chunk
// belongs to.
type Round struct {
	Mode models.SendMode
	// Number is 0 for the initial round and increments per retry round.
	Number      int
	TotalChunks int
}

// Progress is the aggregate view returned after recording a chunk.
type Progress struct {
	TotalSent   int
	TotalFailed int
	IsComplete  bool
}

// Store persists newsletter sending state. RecordChunk must be atomic per
// newsletter id: two concurrent calls for the same newsletter must not lose
// an update.
type Store interface {
	Create(ctx context.Context, subject, htmlContent string) (*models.Newsletter, error)
	Get(ctx context.Context, id string) (*models.Newsletter, error)
	RecordChunk(ctx context.Context, id string, cr models.ChunkResult, round Round) (Progress, error)
	FailedRecipients(ctx context.Context, id string) ([]string, error)
}

// Apply merges one chunk result into a newsletter's sending state and
// returns the updated aggregates. It is the single merge rule shared by
// every Store implementation.
//
// A new round begins when the round metadata no longer matches the state
// (first chunk ever, or a mode/scheme change for a retry pass); the previous
// round's results are archived, never discarded. Within a round, recording
// is idempotent: a result already present at the chunk index is replaced,
// and aggregates are always recomputed from the recorded results rather
// than incremented.
func Apply(n *models.Newsletter, cr models.ChunkResult, round Round) Progress {
	st := n.SendingState
	if st == nil {
		st = &models.SendingState{}
		n.SendingState = st
	}

	if st.SendingStartedAt == nil || st.Mode != round.Mode ||
		st.Round != round.Number || st.TotalChunks != round.TotalChunks {
		st.PriorResults = append(st.PriorResults, st.ChunkResults...)
		st.ChunkResults = nil
		st.Mode = round.Mode
		st.Round = round.Number
		st.TotalChunks = round.TotalChunks
		now := time.Now().UTC()
		st.SendingStartedAt = &now
		st.SendingCompletedAt = nil
	}

	replaced := false
	for i := range st.ChunkResults {
		if st.ChunkResults[i].ChunkIndex == cr.ChunkIndex {
			st.ChunkResults[i] = cr
			replaced = true
			break
		}
	}
	if !replaced {
		st.ChunkResults = append(st.ChunkResults, cr)
	}

	st.TotalSent = 0
	st.TotalFailed = 0
	for _, c := range st.ChunkResults {
		st.TotalSent += c.SentCount
		st.TotalFailed += c.FailedCount
	}
	// Chunks within a round are disjoint, so the recipients attempted so far
	// is the sum of recorded outcomes. At completion this is the round total.
	st.TotalRecipients = st.TotalSent + st.TotalFailed

	if n.Status == models.StatusDraft {
		n.Status = models.StatusSending
	}

	complete := st.IsComplete()
	if complete && st.SendingCompletedAt == nil {
		now := time.Now().UTC()
		st.SendingCompletedAt = &now
		if st.Mode == models.ModeInitial {
			n.Status = models.StatusSent
		}
	}

	return Progress{
		TotalSent:   st.TotalSent,
		TotalFailed: st.TotalFailed,
		IsComplete:  complete,
	}
}
