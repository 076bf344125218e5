package chunk

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPartition(t *testing.T) {
	tests := []struct {
		name       string
		recipients []string
		chunkSize  int
		wantSizes  []int
	}{
		{
			name:       "exact multiple",
			recipients: addresses(100),
			chunkSize:  50,
			wantSizes:  []int{50, 50},
		},
		{
			name:       "remainder in last chunk",
			recipients: addresses(125),
			chunkSize:  50,
			wantSizes:  []int{50, 50, 25},
		},
		{
			name:       "single partial chunk",
			recipients: addresses(3),
			chunkSize:  10,
			wantSizes:  []int{3},
		},
		{
			name:       "chunk size one",
			recipients: addresses(4),
			chunkSize:  1,
			wantSizes:  []int{1, 1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Plan(tt.recipients, tt.chunkSize)
			require.NoError(t, err)
			require.Len(t, chunks, len(tt.wantSizes))

			var flat []string
			for i, c := range chunks {
				assert.Len(t, c, tt.wantSizes[i])
				assert.NotEmpty(t, c)
				flat = append(flat, c...)
			}

			// Concatenation reproduces the normalized input in order.
			assert.Equal(t, Normalize(tt.recipients), flat)
		})
	}
}

func TestPlanDeduplicatesCaseInsensitively(t *testing.T) {
	chunks, err := Plan([]string{"A@x.com", "a@x.com"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"a@x.com"}, chunks[0])
}

func TestPlanTrimsAndKeepsFirstOccurrence(t *testing.T) {
	chunks, err := Plan([]string{"  Bob@x.com ", "alice@x.com", "bob@X.COM", ""}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"bob@x.com", "alice@x.com"}, chunks[0])
}

func TestPlanInvalidInput(t *testing.T) {
	_, err := Plan(nil, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Plan([]string{"a@x.com"}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Plan([]string{"a@x.com"}, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Whitespace-only input normalizes to nothing.
	_, err = Plan([]string{"   ", ""}, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNextRetrySizeLadder(t *testing.T) {
	ladder := []int{10, 5, 1}

	size, ok := NextRetrySize(ladder, 50)
	require.True(t, ok)
	assert.Equal(t, 10, size)

	size, ok = NextRetrySize(ladder, 10)
	require.True(t, ok)
	assert.Equal(t, 5, size)

	size, ok = NextRetrySize(ladder, 5)
	require.True(t, ok)
	assert.Equal(t, 1, size)

	_, ok = NextRetrySize(ladder, 1)
	assert.False(t, ok)
}

func TestNextRetrySizeEmptyLadder(t *testing.T) {
	_, ok := NextRetrySize(nil, 50)
	assert.False(t, ok)
}

func addresses(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("user%d@example.com", i)
	}
	return out
}
