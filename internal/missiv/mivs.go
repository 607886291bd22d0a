package missiv

import (
	"context"
	"database/sql"

	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/models"
)

// MarkMivRead sets read_at on a miv addressed to reader. Repeated calls and
// calls by the sender are no-ops. A read receipt goes to the sender only
// when read_at actually changed.
func (s *Service) MarkMivRead(ctx context.Context, mivID, reader string) error {
	const op = "mark_read"
	if err := validateDesk("reader", reader); err != nil {
		return s.fail(op, err)
	}

	var changed bool

	err := s.write(ctx, func(tx *sql.Tx, out *outbox) error {
		now := s.timestamp()
		m, ok, err := s.mivs.MarkRead(ctx, tx, mivID, reader, now)
		if err != nil {
			return err
		}
		changed = ok
		if !changed {
			return nil
		}
		conv, err := s.conversations.GetTx(ctx, tx, m.ConversationID)
		if err != nil {
			return err
		}
		return out.add(ctx, tx, models.EventTypeMivRead, readReceipt(conv, m, reader), now)
	})
	if err != nil {
		return s.fail(op, err)
	}

	if changed {
		s.metrics.MivsRead(1)
		logger := logging.WithDesk(s.logger, reader)
		logger.Debug().Str("miv_id", mivID).Msg("miv read")
	}
	return nil
}

// ForgetMiv removes a miv from its sender's SENT basket. Only the sender
// may forget a miv; the recipient's view is untouched.
func (s *Service) ForgetMiv(ctx context.Context, mivID, requestor string) error {
	const op = "forget"
	if err := validateDesk("requestor", requestor); err != nil {
		return s.fail(op, err)
	}

	var changed bool

	err := s.write(ctx, func(tx *sql.Tx, out *outbox) error {
		now := s.timestamp()
		m, ok, err := s.mivs.MarkForgotten(ctx, tx, mivID, requestor)
		if err != nil {
			return err
		}
		changed = ok
		if !changed {
			return nil
		}
		return out.add(ctx, tx, models.EventTypeMivForgotten, models.NotificationPayload{
			Kind:           models.NotificationForgotten,
			DeskID:         requestor,
			ConversationID: m.ConversationID,
			MivID:          m.ID,
			Subject:        m.Subject,
			Message:        "Stopped tracking miv: " + m.Subject,
		}, now)
	})
	if err != nil {
		return s.fail(op, err)
	}

	if changed {
		s.metrics.MivForgotten()
		logger := logging.WithDesk(s.logger, requestor)
		logger.Info().Str("miv_id", mivID).Msg("miv forgotten")
	}
	return nil
}
