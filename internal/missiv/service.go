// Package missiv implements the desk-to-desk messaging operations.
//
// Every mutation runs in a single SQLite transaction. Notifications are
// stored in that same transaction and handed to in-process subscribers only
// after it commits.
package missiv

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"github.com/tOgg1/missiv/internal/db"
	"github.com/tOgg1/missiv/internal/events"
	"github.com/tOgg1/missiv/internal/logging"
	"github.com/tOgg1/missiv/internal/metrics"
	"github.com/tOgg1/missiv/internal/models"
)

const (
	defaultRetryAttempts = 5
	defaultRetryBackoff  = 20 * time.Millisecond
)

// Service is the operation surface of missiv. It is safe for concurrent use.
type Service struct {
	db            *db.DB
	conversations *db.ConversationRepository
	mivs          *db.MivRepository
	events        *db.EventRepository
	snapshots     *db.SnapshotRepository

	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time

	retryAttempts int
	retryBackoff  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher delivers committed notifications to pub.
func WithPublisher(pub events.Publisher) Option {
	return func(s *Service) {
		s.publisher = pub
	}
}

// WithMetrics records operation metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRetry sets how often a transaction is retried on SQLite busy errors.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		s.retryAttempts = attempts
		s.retryBackoff = backoff
	}
}

// New creates a Service backed by database.
func New(database *db.DB, opts ...Option) *Service {
	s := &Service{
		db:            database,
		conversations: db.NewConversationRepository(database),
		mivs:          db.NewMivRepository(database),
		events:        db.NewEventRepository(database),
		snapshots:     db.NewSnapshotRepository(database),
		logger:        logging.Component("missiv"),
		now:           time.Now,
		retryAttempts: defaultRetryAttempts,
		retryBackoff:  defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the notification store, for feed listings.
func (s *Service) Events() *db.EventRepository {
	return s.events
}

// Ping checks that the database is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// outbox collects notifications written in a transaction for publishing
// after commit.
type outbox struct {
	repo    *db.EventRepository
	pending []*models.Event
}

func (o *outbox) add(ctx context.Context, tx *sql.Tx, eventType models.EventType, payload models.NotificationPayload, at time.Time) error {
	event, err := models.NewNotificationEvent(eventType, payload, at)
	if err != nil {
		return err
	}
	if err := o.repo.CreateWithTx(ctx, tx, event); err != nil {
		return err
	}
	o.pending = append(o.pending, event)
	return nil
}

// write runs fn in a retrying transaction and publishes its notifications
// once committed.
func (s *Service) write(ctx context.Context, fn func(tx *sql.Tx, out *outbox) error) error {
	var out *outbox
	err := s.db.TransactionWithRetry(ctx, s.retryAttempts, s.retryBackoff, func(tx *sql.Tx) error {
		// A retried attempt starts from an empty outbox.
		out = &outbox{repo: s.events}
		return fn(tx, out)
	})
	if err != nil {
		return err
	}

	for _, event := range out.pending {
		s.metrics.NotificationPublished(event.Type)
		if s.publisher != nil {
			s.publisher.Publish(ctx, event)
		}
	}
	return nil
}

// fail records a failed operation and returns err unchanged.
func (s *Service) fail(op string, err error) error {
	s.metrics.OperationFailed(op, err)
	code := models.ErrorCode(err)
	event := s.logger.Debug()
	if code == models.CodeInternal {
		event = s.logger.Warn()
	}
	event.Err(err).Str("op", op).Str("code", code).Msg("operation failed")
	return err
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

func validateDesk(field, desk string) error {
	if err := models.ValidateDeskID(desk); err != nil {
		validation := &models.ValidationErrors{}
		validation.Add(field, err)
		return validation
	}
	return nil
}
