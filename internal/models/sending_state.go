package models

import "time"

// RecipientOutcome records one delivery attempt for one address. Outcomes are
// never edited after creation; a retry produces a new outcome in a new chunk.
type RecipientOutcome struct {
	Email   string `json:"email"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ChunkResult is the immutable result of one chunk send attempt.
type ChunkResult struct {
	ChunkIndex  int                `json:"chunk_index"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
	SentCount   int                `json:"sent_count"`
	FailedCount int                `json:"failed_count"`
	Results     []RecipientOutcome `json:"results"`
}

// SendingState is the durable per-newsletter delivery record. Counters and
// completion always describe the current round; results from earlier rounds
// are archived in PriorResults so the audit trail survives retries.
type SendingState struct {
	Mode SendMode `json:"mode"`
	// Round numbers the retry passes; 0 is the initial round. It
	// disambiguates consecutive retry rounds that happen to share a
	// totalChunks scheme.
	Round           int           `json:"round"`
	TotalRecipients int           `json:"total_recipients"`
	TotalSent       int           `json:"total_sent"`
	TotalFailed     int           `json:"total_failed"`
	TotalChunks     int           `json:"total_chunks"`
	ChunkResults    []ChunkResult `json:"chunk_results"`

	PriorResults []ChunkResult `json:"prior_results,omitempty"`

	SendingStartedAt   *time.Time `json:"sending_started_at,omitempty"`
	SendingCompletedAt *time.Time `json:"sending_completed_at,omitempty"`
}

// IsComplete reports whether every chunk index of the current round has a
// recorded result. Recording order does not matter.
func (s *SendingState) IsComplete() bool {
	if s.TotalChunks <= 0 {
		return false
	}
	seen := make(map[int]bool, len(s.ChunkResults))
	for _, cr := range s.ChunkResults {
		if cr.ChunkIndex >= 0 && cr.ChunkIndex < s.TotalChunks {
			seen[cr.ChunkIndex] = true
		}
	}
	return len(seen) == s.TotalChunks
}

// FailedEmails lists the addresses that failed in the current round, in
// chunk order.
func (s *SendingState) FailedEmails() []string {
	var failed []string
	for _, cr := range s.ChunkResults {
		for _, r := range cr.Results {
			if !r.Success {
				failed = append(failed, r.Email)
			}
		}
	}
	return failed
}
