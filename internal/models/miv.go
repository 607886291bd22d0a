package models

import (
	"bytes"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxBodySize is the largest body accepted for a single miv.
	MaxBodySize = 1 << 20

	// MaxSubjectLength is the longest subject accepted, in runes.
	MaxSubjectLength = 200
)

// Miv validation errors.
var (
	ErrEmptySubject          = errors.New("subject is required")
	ErrSubjectTooLong        = errors.New("subject exceeds 200 characters")
	ErrEmptyBody             = errors.New("body is required")
	ErrMissingConversationID = errors.New("conversation id is required")
	ErrBodyTooLarge          = errors.New("body exceeds 1MiB")
)

// Miv is a single message inside a conversation.
//
// A miv never stores which basket it belongs to. The basket is derived per
// viewing desk from ReadAt, IsAck, IsForgotten and the owning conversation's
// archived flag.
type Miv struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	// SeqNo is the 1-based position within the conversation.
	SeqNo int `json:"seq_no"`

	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`

	// Body is opaque to the core; JSON encodes it as base64.
	Body        []byte `json:"body"`
	IsEncrypted bool   `json:"is_encrypted"`

	// IsAck marks an acknowledgment that does not solicit a reply.
	IsAck bool `json:"is_ack"`

	// IsForgotten means the sender stopped tracking this miv for a reply.
	IsForgotten bool `json:"is_forgotten"`

	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`

	// ReadAt is set once by the recipient and never cleared.
	ReadAt *time.Time `json:"read_at,omitempty"`
}

// IsRead reports whether the recipient has read the miv.
func (m *Miv) IsRead() bool {
	return m.ReadAt != nil
}

// Involves reports whether desk is the sender or the recipient.
func (m *Miv) Involves(desk string) bool {
	return desk != "" && (m.From == desk || m.To == desk)
}

// Counterpart returns the other party of the miv from desk's point of view,
// or "" if desk is not a party.
func (m *Miv) Counterpart(desk string) string {
	switch desk {
	case m.From:
		return m.To
	case m.To:
		return m.From
	default:
		return ""
	}
}

// ValidateSubject checks a conversation subject.
func ValidateSubject(subject string) error {
	trimmed := strings.TrimSpace(subject)
	if trimmed == "" {
		return ErrEmptySubject
	}
	if utf8.RuneCountInString(trimmed) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	return nil
}

// ValidateBody checks a miv body. allowEmpty is used for ACKs. An encrypted
// body is opaque, so only a zero-length one counts as empty.
func ValidateBody(body []byte, allowEmpty, encrypted bool) error {
	if len(body) > MaxBodySize {
		return ErrBodyTooLarge
	}
	if allowEmpty {
		return nil
	}
	if len(body) == 0 || (!encrypted && len(bytes.TrimSpace(body)) == 0) {
		return ErrEmptyBody
	}
	return nil
}
