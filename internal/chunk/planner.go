package chunk

import (
	"errors"
	"strings"
)

// ErrInvalidInput is returned when the recipient list is empty (after
// normalization) or the chunk size is not positive.
var ErrInvalidInput = errors.New("chunk: invalid input")

// Plan deduplicates the recipient list and partitions it into ordered chunks.
//
// Addresses are trimmed and compared case-insensitively; the first occurrence
// wins. Concatenating the chunks in order reproduces the deduplicated input,
// every chunk except possibly the last has exactly chunkSize elements, and no
// chunk is empty.
func Plan(recipients []string, chunkSize int) ([][]string, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidInput
	}

	deduped := Normalize(recipients)
	if len(deduped) == 0 {
		return nil, ErrInvalidInput
	}

	chunks := make([][]string, 0, (len(deduped)+chunkSize-1)/chunkSize)
	for start := 0; start < len(deduped); start += chunkSize {
		end := start + chunkSize
		if end > len(deduped) {
			end = len(deduped)
		}
		chunks = append(chunks, deduped[start:end])
	}

	return chunks, nil
}

// Normalize trims and lowercases addresses, drops empties, and collapses
// case-insensitive duplicates keeping the first occurrence.
func Normalize(recipients []string) []string {
	seen := make(map[string]bool, len(recipients))
	out := make([]string, 0, len(recipients))

	for _, addr := range recipients {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}

	return out
}

// NextRetrySize picks the first ladder value strictly smaller than the
// previous chunk size. The ladder is consulted in order. ok is false when no
// smaller value remains, meaning retries are exhausted and remaining
// failures are terminal.
func NextRetrySize(ladder []int, previous int) (size int, ok bool) {
	for _, v := range ladder {
		if v > 0 && v < previous {
			return v, true
		}
	}
	return 0, false
}
