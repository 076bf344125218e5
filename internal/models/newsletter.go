package models

import "time"

type NewsletterStatus string

const (
	StatusDraft   NewsletterStatus = "draft"
	StatusSending NewsletterStatus = "sending"
	StatusSent    NewsletterStatus = "sent"
)

// SendMode distinguishes the initial pass over the full recipient list from a
// retry pass over previously failed addresses.
type SendMode string

const (
	ModeInitial SendMode = "initial"
	ModeRetry   SendMode = "retry"
)

type Newsletter struct {
	ID          string           `json:"id"`
	Subject     string           `json:"subject"`
	HTMLContent string           `json:"html_content"`
	Status      NewsletterStatus `json:"status"`

	// SendingState is owned exclusively by the dispatch engine. The
	// surrounding CMS must treat it as opaque.
	SendingState *SendingState `json:"sending_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SendSettings is the per-newsletter delivery configuration supplied by the
// settings provider.
type SendSettings struct {
	FromAddress      string
	ReplyTo          string
	ChunkSize        int
	ChunkDelay       time.Duration
	RetryChunkSizes  []int
	TransportTimeout time.Duration
}
