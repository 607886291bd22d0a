package models

import "time"

// ConversationState is the tagged lifecycle state of a conversation.
type ConversationState string

const (
	ConversationOpen     ConversationState = "open"
	ConversationArchived ConversationState = "archived"
)

// Conversation groups the mivs exchanged between two desks under a subject.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string `json:"id"`

	// Subject is the subject the conversation was opened with.
	Subject string `json:"subject"`

	// OriginDesk is the desk that sent the first miv.
	OriginDesk string `json:"desk_id"`

	// CreatedAt is when the first miv was sent.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when a miv was last appended or the conversation archived.
	UpdatedAt time.Time `json:"updated_at"`

	// MivCount is the cached number of mivs in the conversation.
	MivCount int `json:"miv_count"`

	// IsArchived is monotonic: once true it never goes back to false.
	IsArchived bool `json:"is_archived"`

	// ArchivedAt is when the conversation was archived.
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// State returns the tagged state of the conversation.
func (c *Conversation) State() ConversationState {
	if c.IsArchived {
		return ConversationArchived
	}
	return ConversationOpen
}

// ConversationSummary is a conversation with its latest miv and the number
// of mivs the viewing desk has not read yet.
type ConversationSummary struct {
	Conversation *Conversation `json:"conversation"`
	LatestMiv    *Miv          `json:"latest_miv,omitempty"`
	UnreadCount  int           `json:"unread_count"`
}

// NewConversationInput is the input for opening a conversation.
type NewConversationInput struct {
	From        string
	To          string
	Subject     string
	Body        []byte
	IsEncrypted bool
}

// Validate checks the input. A self-addressed conversation is rejected with
// ErrInvalidRecipient rather than a validation error.
func (in *NewConversationInput) Validate() error {
	validation := &ValidationErrors{}
	if err := ValidateDeskID(in.From); err != nil {
		validation.Add("from", err)
	}
	if err := ValidateDeskID(in.To); err != nil {
		validation.Add("to", err)
	}
	if err := ValidateSubject(in.Subject); err != nil {
		validation.Add("subject", err)
	}
	if err := ValidateBody(in.Body, false, in.IsEncrypted); err != nil {
		validation.Add("body", err)
	}
	if err := validation.Err(); err != nil {
		return err
	}
	if in.From == in.To {
		return ErrInvalidRecipient
	}
	return nil
}

// ReplyInput is the input for appending a reply or ACK to a conversation.
type ReplyInput struct {
	ConversationID string
	From           string
	Body           []byte
	IsAck          bool
	IsEncrypted    bool
}

// Validate checks the input. ACKs may carry an empty body.
func (in *ReplyInput) Validate() error {
	validation := &ValidationErrors{}
	if in.ConversationID == "" {
		validation.Add("conversation_id", ErrMissingConversationID)
	}
	if err := ValidateDeskID(in.From); err != nil {
		validation.Add("from", err)
	}
	if err := ValidateBody(in.Body, in.IsAck, in.IsEncrypted); err != nil {
		validation.Add("body", err)
	}
	return validation.Err()
}
