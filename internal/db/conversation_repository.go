package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/missiv/internal/models"
)

// ConversationRepository handles conversation persistence.
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

type queryRower interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type querier interface {
	queryRower
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}

const conversationColumns = `id, subject, origin_desk, miv_count, is_archived, archived_at, created_at, updated_at`

// Create inserts a conversation inside tx. MivCount starts at zero and is
// maintained by Touch.
func (r *ConversationRepository) Create(ctx context.Context, tx *sql.Tx, conv *models.Conversation) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if strings.TrimSpace(conv.Subject) == "" {
		return models.ErrEmptySubject
	}
	if err := models.ValidateDeskID(conv.OriginDesk); err != nil {
		return err
	}

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	conv.MivCount = 0
	conv.IsArchived = false
	conv.ArchivedAt = nil

	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (
			id, subject, origin_desk, miv_count, is_archived, archived_at, created_at, updated_at
		) VALUES (?, ?, ?, 0, 0, NULL, ?, ?)
	`,
		conv.ID,
		conv.Subject,
		conv.OriginDesk,
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by ID.
func (r *ConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	return r.get(ctx, r.db, id)
}

// GetTx retrieves a conversation by ID inside tx.
func (r *ConversationRepository) GetTx(ctx context.Context, tx *sql.Tx, id string) (*models.Conversation, error) {
	return r.get(ctx, tx, id)
}

func (r *ConversationRepository) get(ctx context.Context, q queryRower, id string) (*models.Conversation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	return r.scanConversation(row)
}

// Touch records an appended miv: bumps miv_count and advances updated_at.
// updated_at never moves backwards.
func (r *ConversationRepository) Touch(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET miv_count = miv_count + 1, updated_at = MAX(updated_at, ?)
		WHERE id = ?
	`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.ErrConversationNotFound
	}
	return nil
}

// Archive sets the archived flag if it is not already set. It reports
// whether the flag changed; archiving twice is not an error.
func (r *ConversationRepository) Archive(ctx context.Context, tx *sql.Tx, id string, at time.Time) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET is_archived = 1, archived_at = ?, updated_at = MAX(updated_at, ?)
		WHERE id = ? AND is_archived = 0
	`, formatTime(at), formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("failed to archive conversation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return true, nil
	}

	// Either already archived or missing.
	if _, err := r.GetTx(ctx, tx, id); err != nil {
		return false, err
	}
	return false, nil
}

// ListByDesk returns the conversations the desk takes part in, most
// recently updated first. Archived conversations are included.
func (r *ConversationRepository) ListByDesk(ctx context.Context, desk string) ([]*models.Conversation, error) {
	return r.listByDesk(ctx, r.db, desk)
}

func (r *ConversationRepository) listByDesk(ctx context.Context, q querier, desk string) ([]*models.Conversation, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		WHERE c.origin_desk = ?
		   OR EXISTS (
			SELECT 1 FROM mivs m
			WHERE m.conversation_id = c.id AND (m.from_desk = ? OR m.to_desk = ?)
		   )
		ORDER BY c.updated_at DESC, c.id
	`, desk, desk, desk)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conv, err := r.scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return conversations, nil
}

func (r *ConversationRepository) scanConversation(scanner interface{ Scan(...any) error }) (*models.Conversation, error) {
	var (
		conv       models.Conversation
		isArchived int
		archivedAt sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := scanner.Scan(
		&conv.ID,
		&conv.Subject,
		&conv.OriginDesk,
		&conv.MivCount,
		&isArchived,
		&archivedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	conv.IsArchived = isArchived != 0
	conv.ArchivedAt = parseTimePtr(archivedAt)
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)
	return &conv, nil
}
