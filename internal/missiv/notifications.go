package missiv

import (
	"context"
	"errors"

	"github.com/tOgg1/missiv/internal/db"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/models"
)

// Notifications returns a page of desk's notification feed with its unread
// count.
func (s *Service) Notifications(ctx context.Context, desk string, q db.FeedQuery) (*db.DeskFeed, error) {
	const op = "list_notifications"
	if err := validateDesk("desk_id", desk); err != nil {
		return nil, s.fail(op, err)
	}
	feed, err := s.events.ListForDesk(ctx, desk, q)
	if errors.Is(err, db.ErrInvalidCursor) {
		validation := &models.ValidationErrors{}
		validation.Add("cursor", err)
		return nil, s.fail(op, validation)
	}
	if err != nil {
		return nil, s.fail(op, err)
	}
	return feed, nil
}

// MarkNotificationRead marks one of desk's notifications read. Repeated
// calls keep the first read_at.
func (s *Service) MarkNotificationRead(ctx context.Context, eventID, desk string) (*models.Event, error) {
	const op = "read_notification"
	if err := validateDesk("desk_id", desk); err != nil {
		return nil, s.fail(op, err)
	}
	event, changed, err := s.events.MarkRead(ctx, eventID, desk, s.timestamp())
	if err != nil {
		return nil, s.fail(op, err)
	}
	if changed {
		s.metrics.NotificationRead()
		logger := logging.WithDesk(s.logger, desk)
		logger.Debug().Str("event_id", eventID).Msg("notification read")
	}
	return event, nil
}
