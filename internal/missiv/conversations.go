package missiv

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/tOgg1/missiv/internal/basket"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/models"
)

// MivView is a miv annotated with the viewing desk's basket.
type MivView struct {
	*models.Miv
	Basket models.Basket `json:"basket,omitempty"`
}

// ConversationDetail is a conversation with its mivs in seq_no order.
type ConversationDetail struct {
	Conversation *models.Conversation `json:"conversation"`
	Mivs         []*MivView           `json:"mivs"`
}

func newDetail(conv *models.Conversation, mivs []*models.Miv, viewer string) *ConversationDetail {
	detail := &ConversationDetail{Conversation: conv, Mivs: make([]*MivView, 0, len(mivs))}
	for _, m := range mivs {
		view := &MivView{Miv: m}
		if viewer != "" {
			// Only parties reach this point, so Resolve cannot fail.
			view.Basket, _ = basket.Resolve(conv, m, viewer)
		}
		detail.Mivs = append(detail.Mivs, view)
	}
	return detail
}

func involves(mivs []*models.Miv, desk string) bool {
	for _, m := range mivs {
		if m.Involves(desk) {
			return true
		}
	}
	return false
}

// CreateConversation opens a conversation with its first miv. Both are
// written or neither is.
func (s *Service) CreateConversation(ctx context.Context, in models.NewConversationInput) (*ConversationDetail, error) {
	const op = "create_conversation"
	if err := in.Validate(); err != nil {
		return nil, s.fail(op, err)
	}

	conv := &models.Conversation{
		Subject:    in.Subject,
		OriginDesk: in.From,
	}
	first := &models.Miv{
		From:        in.From,
		To:          in.To,
		Subject:     in.Subject,
		Body:        in.Body,
		IsEncrypted: in.IsEncrypted,
	}

	err := s.write(ctx, func(tx *sql.Tx, out *outbox) error {
		now := s.timestamp()
		conv.ID, conv.CreatedAt, conv.UpdatedAt = "", now, now
		first.ID, first.CreatedAt = "", now
		if err := s.conversations.Create(ctx, tx, conv); err != nil {
			return err
		}
		first.ConversationID = conv.ID
		if err := s.mivs.Append(ctx, tx, first); err != nil {
			return err
		}
		return out.add(ctx, tx, models.EventTypeMivReceived, models.NotificationPayload{
			Kind:           models.NotificationNewMiv,
			DeskID:         in.To,
			ConversationID: conv.ID,
			MivID:          first.ID,
			From:           in.From,
			Subject:        in.Subject,
			Message:        fmt.Sprintf("New miv from %s: %s", in.From, in.Subject),
		}, now)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	conv.MivCount = 1
	s.metrics.ConversationCreated()
	s.metrics.MivAppended("first")
	logger := logging.WithConversation(logging.WithDesk(s.logger, in.From), conv.ID)
	logger.Info().
		Str("to", in.To).
		Int("body_bytes", len(in.Body)).
		Msg("conversation created")

	return newDetail(conv, []*models.Miv{first}, in.From), nil
}

// Reply appends a reply or ACK. The recipient is the other party of the
// latest miv. The archived flag is re-read inside the append transaction,
// so a reply racing an archive either lands before it or fails.
func (s *Service) Reply(ctx context.Context, in models.ReplyInput) (*models.Miv, error) {
	op := "reply"
	if in.IsAck {
		op = "ack"
	}
	if err := in.Validate(); err != nil {
		return nil, s.fail(op, err)
	}

	var reply *models.Miv

	err := s.write(ctx, func(tx *sql.Tx, out *outbox) error {
		conv, err := s.conversations.GetTx(ctx, tx, in.ConversationID)
		if err != nil {
			return err
		}
		if conv.IsArchived {
			return models.ErrConversationArchived
		}

		latest, err := s.mivs.LatestTx(ctx, tx, conv.ID)
		if err != nil {
			return err
		}
		recipient := latest.Counterpart(in.From)
		if recipient == "" {
			return models.ErrNotParticipant
		}

		now := s.timestamp()
		if now.Before(latest.CreatedAt) {
			now = latest.CreatedAt
		}
		reply = &models.Miv{
			ConversationID: conv.ID,
			From:           in.From,
			To:             recipient,
			Subject:        conv.Subject,
			Body:           in.Body,
			IsAck:          in.IsAck,
			IsEncrypted:    in.IsEncrypted,
			CreatedAt:      now,
		}
		if err := s.mivs.Append(ctx, tx, reply); err != nil {
			return err
		}

		eventType, kind, message := models.EventTypeMivReplied, models.NotificationReply, "Reply from %s in: %s"
		if in.IsAck {
			eventType, kind, message = models.EventTypeMivAcked, models.NotificationAck, "ACK from %s in: %s"
		}
		return out.add(ctx, tx, eventType, models.NotificationPayload{
			Kind:           kind,
			DeskID:         recipient,
			ConversationID: conv.ID,
			MivID:          reply.ID,
			From:           in.From,
			Subject:        conv.Subject,
			Message:        fmt.Sprintf(message, in.From, conv.Subject),
		}, now)
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.MivAppended(op)
	logger := logging.WithConversation(logging.WithDesk(s.logger, in.From), in.ConversationID)
	logger.Info().
		Str("miv_id", reply.ID).
		Int("seq_no", reply.SeqNo).
		Bool("ack", in.IsAck).
		Msg("miv appended")

	return reply, nil
}

// Ack appends an acknowledgment. The body may be empty.
func (s *Service) Ack(ctx context.Context, conversationID, from string, body []byte) (*models.Miv, error) {
	return s.Reply(ctx, models.ReplyInput{
		ConversationID: conversationID,
		From:           from,
		Body:           body,
		IsAck:          true,
	})
}

// GetConversation returns a conversation with its mivs. When viewer is set
// it must be a party; every miv addressed to the viewer is marked read in
// the same transaction and each miv carries the viewer's basket.
func (s *Service) GetConversation(ctx context.Context, conversationID, viewer string) (*ConversationDetail, error) {
	const op = "get_conversation"

	if viewer == "" {
		conv, err := s.conversations.Get(ctx, conversationID)
		if err != nil {
			return nil, s.fail(op, err)
		}
		mivs, err := s.mivs.ListByConversation(ctx, conversationID)
		if err != nil {
			return nil, s.fail(op, err)
		}
		return newDetail(conv, mivs, ""), nil
	}

	if err := validateDesk("viewer", viewer); err != nil {
		return nil, s.fail(op, err)
	}

	var (
		conv    *models.Conversation
		mivs    []*models.Miv
		changed []string
	)

	err := s.write(ctx, func(tx *sql.Tx, out *outbox) error {
		now := s.timestamp()
		var err error
		conv, err = s.conversations.GetTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		mivs, err = s.mivs.ListByConversationTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if !involves(mivs, viewer) {
			return models.ErrNotParticipant
		}

		changed, err = s.mivs.MarkReadForDesk(ctx, tx, conversationID, viewer, now)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}

		byID := make(map[string]*models.Miv, len(mivs))
		for _, m := range mivs {
			byID[m.ID] = m
		}
		for _, id := range changed {
			m := byID[id]
			if m == nil {
				continue
			}
			readAt := now
			m.ReadAt = &readAt
			if err := out.add(ctx, tx, models.EventTypeMivRead, readReceipt(conv, m, viewer), now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.metrics.MivsRead(len(changed))
	logger := logging.WithConversation(logging.WithDesk(s.logger, viewer), conversationID)
	logger.Debug().
		Int("marked_read", len(changed)).
		Msg("conversation viewed")

	return newDetail(conv, mivs, viewer), nil
}

// ListConversations returns the desk's conversations, archived included,
// most recently updated first, each with its latest miv and the desk's
// unread count.
func (s *Service) ListConversations(ctx context.Context, desk string) ([]*models.ConversationSummary, error) {
	const op = "list_conversations"
	if err := validateDesk("desk_id", desk); err != nil {
		return nil, s.fail(op, err)
	}

	snapshot, err := s.snapshots.LoadForDesk(ctx, desk)
	if err != nil {
		return nil, s.fail(op, err)
	}

	byConversation := make(map[string][]*models.Miv, len(snapshot.Conversations))
	for _, m := range snapshot.Mivs {
		byConversation[m.ConversationID] = append(byConversation[m.ConversationID], m)
	}

	summaries := make([]*models.ConversationSummary, 0, len(snapshot.Conversations))
	for id, conv := range snapshot.Conversations {
		summaries = append(summaries, summarize(conv, byConversation[id], desk))
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i].Conversation, summaries[j].Conversation
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})

	s.logger.Debug().Str("desk_id", desk).Int("conversations", len(summaries)).Msg("listed conversations")
	return summaries, nil
}

// Summarize returns the latest miv of a conversation and the number of
// mivs addressed to viewer that are still unread. An empty viewer skips
// the participant check and reports no unread mivs.
func (s *Service) Summarize(ctx context.Context, conversationID, viewer string) (*models.ConversationSummary, error) {
	const op = "summarize"
	if viewer != "" {
		if err := validateDesk("viewer", viewer); err != nil {
			return nil, s.fail(op, err)
		}
	}

	var summary *models.ConversationSummary
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		conv, err := s.conversations.GetTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		mivs, err := s.mivs.ListByConversationTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if viewer != "" && !involves(mivs, viewer) {
			return models.ErrNotParticipant
		}
		summary = summarize(conv, mivs, viewer)
		return nil
	})
	if err != nil {
		return nil, s.fail(op, err)
	}
	return summary, nil
}

func summarize(conv *models.Conversation, mivs []*models.Miv, viewer string) *models.ConversationSummary {
	summary := &models.ConversationSummary{Conversation: conv}
	for _, m := range mivs {
		if summary.LatestMiv == nil || m.SeqNo > summary.LatestMiv.SeqNo {
			summary.LatestMiv = m
		}
		if viewer != "" && m.To == viewer && m.ReadAt == nil {
			summary.UnreadCount++
		}
	}
	return summary
}

// ArchiveConversation archives a conversation for every viewer. Archiving
// is terminal and a second call is a no-op. When actor is set it must be a
// party to the conversation.
func (s *Service) ArchiveConversation(ctx context.Context, conversationID, actor string) error {
	const op = "archive"
	if actor != "" {
		if err := validateDesk("actor", actor); err != nil {
			return s.fail(op, err)
		}
	}

	var changed bool

	err := s.write(ctx, func(tx *sql.Tx, out *outbox) error {
		now := s.timestamp()
		conv, err := s.conversations.GetTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		latest, err := s.mivs.LatestTx(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if actor != "" && !latest.Involves(actor) {
			return models.ErrNotParticipant
		}

		changed, err = s.conversations.Archive(ctx, tx, conversationID, now)
		if err != nil || !changed {
			return err
		}

		for _, desk := range []string{latest.From, latest.To} {
			err := out.add(ctx, tx, models.EventTypeConversationArchived, models.NotificationPayload{
				Kind:           models.NotificationArchived,
				DeskID:         desk,
				ConversationID: conversationID,
				From:           actor,
				Subject:        conv.Subject,
				Message:        fmt.Sprintf("Conversation archived: %s", conv.Subject),
			}, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.fail(op, err)
	}

	if changed {
		s.metrics.ConversationArchived()
		logger := logging.WithConversation(s.logger, conversationID)
		logger.Info().Str("actor", actor).Msg("conversation archived")
	}
	return nil
}

func readReceipt(conv *models.Conversation, m *models.Miv, reader string) models.NotificationPayload {
	return models.NotificationPayload{
		Kind:           models.NotificationReadReceipt,
		DeskID:         m.From,
		ConversationID: m.ConversationID,
		MivID:          m.ID,
		From:           reader,
		Subject:        conv.Subject,
		Message:        fmt.Sprintf("%s read your miv: %s", reader, conv.Subject),
	}
}
