package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsBlast/internal/models"
)

func chunkResult(index, sent, failed int) models.ChunkResult {
	now := time.Now().UTC()
	cr := models.ChunkResult{
		ChunkIndex:  index,
		StartedAt:   now,
		CompletedAt: now,
		SentCount:   sent,
		FailedCount: failed,
	}
	for i := 0; i < sent; i++ {
		cr.Results = append(cr.Results, models.RecipientOutcome{
			Email:   emailFor(index, i),
			Success: true,
		})
	}
	for i := 0; i < failed; i++ {
		cr.Results = append(cr.Results, models.RecipientOutcome{
			Email: emailFor(index, sent+i),
			Error: "mailbox unavailable",
		})
	}
	return cr
}

func emailFor(chunk, i int) string {
	return string(rune('a'+chunk)) + "-" + string(rune('a'+i)) + "@example.com"
}

func newStoreWithNewsletter(t *testing.T) (*MemoryStore, string) {
	t.Helper()
	store := NewMemoryStore()
	n, err := store.Create(context.Background(), "Weekly Update", "<p>news</p>")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, n.Status)
	return store, n.ID
}

func TestRecordChunkIdempotentReplace(t *testing.T) {
	store, id := newStoreWithNewsletter(t)
	ctx := context.Background()
	round := Round{Mode: models.ModeInitial, TotalChunks: 2}

	cr := chunkResult(0, 5, 0)

	p1, err := store.RecordChunk(ctx, id, cr, round)
	require.NoError(t, err)
	assert.Equal(t, 5, p1.TotalSent)
	assert.Equal(t, 0, p1.TotalFailed)
	assert.False(t, p1.IsComplete)

	// Re-sending the same chunk index must not double-count.
	p2, err := store.RecordChunk(ctx, id, cr, round)
	require.NoError(t, err)
	assert.Equal(t, p1.TotalSent, p2.TotalSent)
	assert.Equal(t, p1.TotalFailed, p2.TotalFailed)

	n, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, n.SendingState.ChunkResults, 1)
}

func TestRecordChunkCompletionLaw(t *testing.T) {
	store, id := newStoreWithNewsletter(t)
	ctx := context.Background()
	round := Round{Mode: models.ModeInitial, TotalChunks: 3}

	// Out-of-order recording: completion only once all indices are present.
	p, err := store.RecordChunk(ctx, id, chunkResult(2, 5, 0), round)
	require.NoError(t, err)
	assert.False(t, p.IsComplete)

	p, err = store.RecordChunk(ctx, id, chunkResult(0, 5, 0), round)
	require.NoError(t, err)
	assert.False(t, p.IsComplete)

	p, err = store.RecordChunk(ctx, id, chunkResult(1, 5, 0), round)
	require.NoError(t, err)
	assert.True(t, p.IsComplete)
	assert.Equal(t, 15, p.TotalSent)

	// Completion is stable under a duplicate call.
	p, err = store.RecordChunk(ctx, id, chunkResult(1, 5, 0), round)
	require.NoError(t, err)
	assert.True(t, p.IsComplete)

	n, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, n.Status)
	require.NotNil(t, n.SendingState.SendingCompletedAt)
}

func TestRecordChunkStatusTransitions(t *testing.T) {
	store, id := newStoreWithNewsletter(t)
	ctx := context.Background()
	round := Round{Mode: models.ModeInitial, TotalChunks: 2}

	_, err := store.RecordChunk(ctx, id, chunkResult(0, 5, 0), round)
	require.NoError(t, err)

	n, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSending, n.Status)
	require.NotNil(t, n.SendingState.SendingStartedAt)
	assert.Nil(t, n.SendingState.SendingCompletedAt)
}

func TestRecordChunkAggregateInvariant(t *testing.T) {
	store, id := newStoreWithNewsletter(t)
	ctx := context.Background()
	round := Round{Mode: models.ModeInitial, TotalChunks: 3}

	_, err := store.RecordChunk(ctx, id, chunkResult(0, 4, 0), round)
	require.NoError(t, err)
	_, err = store.RecordChunk(ctx, id, chunkResult(1, 2, 2), round)
	require.NoError(t, err)

	n, err := store.Get(ctx, id)
	require.NoError(t, err)
	st := n.SendingState

	total := 0
	for _, cr := range st.ChunkResults {
		total += len(cr.Results)
	}
	assert.Equal(t, total, st.TotalSent+st.TotalFailed)
	assert.Equal(t, 6, st.TotalSent)
	assert.Equal(t, 2, st.TotalFailed)
	assert.Equal(t, 8, st.TotalRecipients)
}

func TestRetryRoundArchivesPriorResults(t *testing.T) {
	store, id := newStoreWithNewsletter(t)
	ctx := context.Background()

	initial := Round{Mode: models.ModeInitial, TotalChunks: 1}
	p, err := store.RecordChunk(ctx, id, chunkResult(0, 2, 2), initial)
	require.NoError(t, err)
	assert.True(t, p.IsComplete)
	assert.Equal(t, 2, p.TotalFailed)

	failed, err := store.FailedRecipients(ctx, id)
	require.NoError(t, err)
	require.Len(t, failed, 2)

	// A retry round over the failed addresses starts a fresh round; the
	// initial round's outcomes move to the archive.
	retry := Round{Mode: models.ModeRetry, TotalChunks: 2}
	p, err = store.RecordChunk(ctx, id, chunkResult(0, 1, 0), retry)
	require.NoError(t, err)
	assert.False(t, p.IsComplete)
	assert.Equal(t, 1, p.TotalSent)

	p, err = store.RecordChunk(ctx, id, chunkResult(1, 0, 1), retry)
	require.NoError(t, err)
	assert.True(t, p.IsComplete)
	assert.Equal(t, 1, p.TotalFailed)

	n, err := store.Get(ctx, id)
	require.NoError(t, err)
	st := n.SendingState
	assert.Equal(t, models.ModeRetry, st.Mode)
	assert.Len(t, st.ChunkResults, 2)
	assert.Len(t, st.PriorResults, 1) // the initial round's single chunk
	// Status was already sent after the initial round; retries never regress it.
	assert.Equal(t, models.StatusSent, n.Status)
}

func TestConsecutiveRetryRoundsWithSameSchemeAreDistinct(t *testing.T) {
	store, id := newStoreWithNewsletter(t)
	ctx := context.Background()

	_, err := store.RecordChunk(ctx, id, chunkResult(0, 2, 2), Round{Mode: models.ModeInitial, TotalChunks: 1})
	require.NoError(t, err)

	// Two retry rounds that happen to share totalChunks=2; the round number
	// keeps the second from being mistaken for duplicate deliveries of the
	// first.
	first := Round{Mode: models.ModeRetry, Number: 1, TotalChunks: 2}
	_, err = store.RecordChunk(ctx, id, chunkResult(0, 1, 0), first)
	require.NoError(t, err)
	_, err = store.RecordChunk(ctx, id, chunkResult(1, 0, 1), first)
	require.NoError(t, err)

	second := Round{Mode: models.ModeRetry, Number: 2, TotalChunks: 2}
	p, err := store.RecordChunk(ctx, id, chunkResult(0, 0, 1), second)
	require.NoError(t, err)
	assert.False(t, p.IsComplete)

	n, err := store.Get(ctx, id)
	require.NoError(t, err)
	st := n.SendingState
	assert.Equal(t, 2, st.Round)
	assert.Len(t, st.ChunkResults, 1)
	assert.Len(t, st.PriorResults, 3) // initial chunk + both first-retry chunks
}

func TestGetUnknownNewsletter(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.RecordChunk(context.Background(), "nope", chunkResult(0, 1, 0), Round{Mode: models.ModeInitial, TotalChunks: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	store, id := newStoreWithNewsletter(t)
	ctx := context.Background()
	round := Round{Mode: models.ModeInitial, TotalChunks: 1}

	_, err := store.RecordChunk(ctx, id, chunkResult(0, 2, 0), round)
	require.NoError(t, err)

	n, err := store.Get(ctx, id)
	require.NoError(t, err)
	n.SendingState.ChunkResults[0].Results[0].Success = false

	fresh, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, fresh.SendingState.ChunkResults[0].Results[0].Success)
}
