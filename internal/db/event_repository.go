package db

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/missiv/internal/models"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
	ErrInvalidCursor = errors.New("invalid event cursor")
)

const (
	defaultEventPage  = 100
	defaultPruneBatch = 1000
	insertColumns     = `id, timestamp, type, entity_type, entity_id, payload_json, metadata_json`
	eventColumns      = insertColumns + `, read_at`
)

// EventRepository stores the append-only notification log. Rows are keyed
// by (timestamp, id) so pages stay stable while new events arrive.
type EventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventFilter narrows Find. Zero fields do not filter.
type EventFilter struct {
	Types      []models.EventType
	EntityType models.EntityType
	EntityID   string
	Since      time.Time // inclusive
	Until      time.Time // exclusive
	Cursor     string    // NextCursor of a previous page
	UnreadOnly bool
	Limit      int
}

type EventPage struct {
	Events     []*models.Event `json:"events"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// FeedQuery selects a page of one desk's notifications.
type FeedQuery struct {
	Cursor     string
	Limit      int
	UnreadOnly bool
}

// DeskFeed is a page of notifications plus the desk's total unread count,
// which does not depend on the page.
type DeskFeed struct {
	EventPage
	UnreadCount int64 `json:"unread_count"`
}

// FeedStats describes the size of the log.
type FeedStats struct {
	Count  int64
	Oldest *time.Time
}

// Create records event outside any transaction.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return r.insert(ctx, r.db, event)
}

// CreateWithTx records event inside tx, so it commits or rolls back with the
// state change it describes.
func (r *EventRepository) CreateWithTx(ctx context.Context, tx *sql.Tx, event *models.Event) error {
	if tx == nil {
		return fmt.Errorf("%w: transaction is required", ErrInvalidEvent)
	}
	return r.insert(ctx, tx, event)
}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

func (r *EventRepository) insert(ctx context.Context, exec execer, event *models.Event) error {
	if event == nil || event.Type == "" || event.EntityType == "" || event.EntityID == "" {
		return fmt.Errorf("%w: type, entity type and entity id are required", ErrInvalidEvent)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	var payload, metadata sql.NullString
	if len(event.Payload) > 0 {
		payload = sql.NullString{String: string(event.Payload), Valid: true}
	}
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("encode event metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	_, err := exec.ExecContext(ctx,
		`INSERT INTO events (`+insertColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, formatTime(event.Timestamp), string(event.Type), string(event.EntityType),
		event.EntityID, payload, metadata,
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.Type, err)
	}
	return nil
}

// Find returns events matching f, oldest first.
func (r *EventRepository) Find(ctx context.Context, f EventFilter) (*EventPage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventPage
	}

	var where []string
	var args []any
	if len(f.Types) > 0 {
		where = append(where, "type IN (?"+strings.Repeat(", ?", len(f.Types)-1)+")")
		for _, t := range f.Types {
			args = append(args, string(t))
		}
	}
	if f.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, string(f.EntityType))
	}
	if f.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if !f.Since.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, formatTime(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, formatTime(f.Until))
	}
	if f.UnreadOnly {
		where = append(where, "read_at IS NULL")
	}
	if f.Cursor != "" {
		ts, id, err := decodeCursor(f.Cursor)
		if err != nil {
			return nil, err
		}
		where = append(where, "(timestamp, id) > (?, ?)")
		args = append(args, ts, id)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp, id LIMIT ?"
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	page := &EventPage{Events: make([]*models.Event, 0, limit)}
	for rows.Next() {
		event, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		page.Events = append(page.Events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if len(page.Events) > limit {
		page.Events = page.Events[:limit]
		page.NextCursor = encodeCursor(page.Events[limit-1])
	}
	return page, nil
}

// Get returns a single event by id.
func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := r.scan(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, ErrEventNotFound)
	}
	return event, err
}

// ListForDesk pages through the notifications addressed to desk, oldest first.
func (r *EventRepository) ListForDesk(ctx context.Context, desk string, q FeedQuery) (*DeskFeed, error) {
	page, err := r.Find(ctx, EventFilter{
		EntityType: models.EntityTypeDesk,
		EntityID:   desk,
		Cursor:     q.Cursor,
		UnreadOnly: q.UnreadOnly,
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, err
	}
	unread, err := r.CountUnread(ctx, desk)
	if err != nil {
		return nil, err
	}
	return &DeskFeed{EventPage: *page, UnreadCount: unread}, nil
}

// CountUnread counts the notifications addressed to desk that it has not
// marked read.
func (r *EventRepository) CountUnread(ctx context.Context, desk string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE entity_type = ? AND entity_id = ? AND read_at IS NULL`,
		string(models.EntityTypeDesk), desk,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread events: %w", err)
	}
	return n, nil
}

// MarkRead sets read_at on a notification addressed to desk. The update is
// conditional: a notification already read keeps its first read_at and
// changed is false. Notifications addressed to another desk are reported
// as not found.
func (r *EventRepository) MarkRead(ctx context.Context, id, desk string, at time.Time) (*models.Event, bool, error) {
	var (
		event   *models.Event
		changed bool
	)
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE events SET read_at = ?
			WHERE id = ? AND entity_type = ? AND entity_id = ? AND read_at IS NULL
		`, formatTime(at.UTC()), id, string(models.EntityTypeDesk), desk)
		if err != nil {
			return fmt.Errorf("mark event %s read: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		changed = n > 0

		event, err = r.scan(tx.QueryRowContext(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = ? AND entity_type = ? AND entity_id = ?`,
			id, string(models.EntityTypeDesk), desk,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("event %s: %w", id, models.ErrNotificationNotFound)
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return event, changed, nil
}

func (r *EventRepository) scan(row interface{ Scan(...any) error }) (*models.Event, error) {
	var (
		event                 models.Event
		ts, typ, entityType   string
		payload, metadataJSON sql.NullString
		readAt                sql.NullString
	)
	if err := row.Scan(&event.ID, &ts, &typ, &entityType, &event.EntityID, &payload, &metadataJSON, &readAt); err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	event.Timestamp = parseTime(ts)
	event.ReadAt = parseTimePtr(readAt)
	event.Type = models.EventType(typ)
	event.EntityType = models.EntityType(entityType)
	if payload.Valid {
		event.Payload = json.RawMessage(payload.String)
	}
	if metadataJSON.Valid {
		if err := json.Unmarshal([]byte(metadataJSON.String), &event.Metadata); err != nil {
			r.db.logger.Warn().Err(err).Str("event_id", event.ID).Msg("skipping unreadable event metadata")
		}
	}
	return &event, nil
}

// cursors carry the sort key of the last row, so a page boundary survives
// retention deleting that row.
func encodeCursor(event *models.Event) string {
	return base64.RawURLEncoding.EncodeToString([]byte(formatTime(event.Timestamp) + "|" + event.ID))
}

func decodeCursor(cursor string) (string, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", "", ErrInvalidCursor
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" || parseTime(ts).IsZero() {
		return "", "", ErrInvalidCursor
	}
	return ts, id, nil
}

func (r *EventRepository) Stats(ctx context.Context) (FeedStats, error) {
	var stats FeedStats
	var oldest sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), MIN(timestamp) FROM events`).Scan(&stats.Count, &oldest); err != nil {
		return FeedStats{}, fmt.Errorf("event stats: %w", err)
	}
	if oldest.Valid {
		t := parseTime(oldest.String)
		stats.Oldest = &t
	}
	return stats, nil
}

// PruneBefore deletes up to batch events older than cutoff, oldest first.
func (r *EventRepository) PruneBefore(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	if batch <= 0 {
		batch = defaultPruneBatch
	}
	return r.prune(ctx, `
		DELETE FROM events WHERE id IN (
			SELECT id FROM events WHERE timestamp < ? ORDER BY timestamp, id LIMIT ?
		)`, formatTime(cutoff), batch)
}

// PruneToCount deletes up to batch of the oldest events beyond the newest keep.
func (r *EventRepository) PruneToCount(ctx context.Context, keep, batch int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	if batch <= 0 {
		batch = defaultPruneBatch
	}
	return r.prune(ctx, `
		DELETE FROM events WHERE id IN (
			SELECT id FROM events ORDER BY timestamp, id
			LIMIT MAX(0, MIN(?, (SELECT COUNT(*) FROM events) - ?))
		)`, batch, keep)
}

func (r *EventRepository) prune(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}
