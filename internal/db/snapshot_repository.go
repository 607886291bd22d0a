package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tOgg1/missiv/internal/basket"
	"github.com/tOgg1/missiv/internal/models"
)

// SnapshotRepository loads everything a desk can see in one transaction so
// basket counts and lists agree.
type SnapshotRepository struct {
	db            *DB
	conversations *ConversationRepository
	mivs          *MivRepository
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{
		db:            db,
		conversations: NewConversationRepository(db),
		mivs:          NewMivRepository(db),
	}
}

// LoadForDesk returns the conversations and mivs involving desk.
func (r *SnapshotRepository) LoadForDesk(ctx context.Context, desk string) (*basket.Snapshot, error) {
	snapshot := &basket.Snapshot{Conversations: make(map[string]*models.Conversation)}

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		conversations, err := r.conversations.listByDesk(ctx, tx, desk)
		if err != nil {
			return err
		}
		for _, conv := range conversations {
			snapshot.Conversations[conv.ID] = conv
		}

		mivs, err := r.mivs.listByDesk(ctx, tx, desk)
		if err != nil {
			return err
		}
		snapshot.Mivs = mivs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for desk %s: %w", desk, err)
	}

	return snapshot, nil
}
