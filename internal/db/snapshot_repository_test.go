package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tOgg1/missiv/internal/basket"
	"github.com/tOgg1/missiv/internal/models"
)

func TestSnapshotRepositoryLoadForDesk(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	open, _ := createConversation(t, database, deskA, deskB, "open")
	appendMiv(t, database, open.ID, deskB, deskA, false)
	closed, _ := createConversation(t, database, deskC, deskA, "closed")
	createConversation(t, database, deskB, deskC, "unrelated")

	err := database.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := NewConversationRepository(database).Archive(ctx, tx, closed.ID, time.Now())
		return err
	})
	require.NoError(t, err)

	snapshot, err := NewSnapshotRepository(database).LoadForDesk(ctx, deskA)
	require.NoError(t, err)
	require.Len(t, snapshot.Conversations, 2)
	require.Len(t, snapshot.Mivs, 3)
	require.True(t, snapshot.Conversations[closed.ID].IsArchived)

	counts := basket.Counts(snapshot, deskA)
	require.Equal(t, 1, counts[models.BasketSent])
	require.Equal(t, 1, counts[models.BasketIn])
	require.Equal(t, 1, counts[models.BasketArchived])
	require.Equal(t, 0, counts[models.BasketPending])
}
