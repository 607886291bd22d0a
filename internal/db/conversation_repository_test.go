package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/tOgg1/missiv/internal/models"
)

func TestConversationRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	conv, _ := createConversation(t, database, deskA, deskB, "Lunch?")
	if conv.ID == "" {
		t.Fatal("Create did not set ID")
	}

	got, err := NewConversationRepository(database).Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Subject != "Lunch?" || got.OriginDesk != deskA {
		t.Fatalf("unexpected conversation %+v", got)
	}
	if got.State() != models.ConversationOpen || got.ArchivedAt != nil {
		t.Fatalf("expected open conversation, got %+v", got)
	}
}

func TestConversationRepositoryCreateValidates(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	repo := NewConversationRepository(database)
	err := database.Transaction(ctx, func(tx *sql.Tx) error {
		return repo.Create(ctx, tx, &models.Conversation{Subject: " ", OriginDesk: deskA})
	})
	if !errors.Is(err, models.ErrEmptySubject) {
		t.Fatalf("expected ErrEmptySubject, got %v", err)
	}

	err = database.Transaction(ctx, func(tx *sql.Tx) error {
		return repo.Create(ctx, tx, &models.Conversation{Subject: "s", OriginDesk: "abc"})
	})
	if !errors.Is(err, models.ErrInvalidDeskID) {
		t.Fatalf("expected ErrInvalidDeskID, got %v", err)
	}

	if err := repo.Create(ctx, nil, &models.Conversation{Subject: "s", OriginDesk: deskA}); err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestConversationRepositoryGetNotFound(t *testing.T) {
	database := setupTestDB(t)
	defer database.Close()

	_, err := NewConversationRepository(database).Get(context.Background(), "missing")
	if !errors.Is(err, models.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationRepositoryArchiveIsMonotonic(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	conv, _ := createConversation(t, database, deskA, deskB, "s")
	repo := NewConversationRepository(database)

	first := time.Now().UTC().Add(time.Hour)
	archive := func(at time.Time) (bool, error) {
		var changed bool
		err := database.Transaction(ctx, func(tx *sql.Tx) error {
			var err error
			changed, err = repo.Archive(ctx, tx, conv.ID, at)
			return err
		})
		return changed, err
	}

	changed, err := archive(first)
	if err != nil || !changed {
		t.Fatalf("archive: changed=%v err=%v", changed, err)
	}
	changed, err = archive(first.Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("second archive should be a no-op, changed=%v err=%v", changed, err)
	}

	got, err := repo.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsArchived || got.ArchivedAt == nil || !got.ArchivedAt.Equal(first) {
		t.Fatalf("unexpected archive state %+v", got)
	}
	if !got.UpdatedAt.Equal(first) {
		t.Fatalf("expected updated_at %v, got %v", first, got.UpdatedAt)
	}

	if _, err := archiveMissing(ctx, database, repo); !errors.Is(err, models.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestConversationRepositoryUpdatedAtNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	conv, _ := createConversation(t, database, deskA, deskB, "s")
	repo := NewConversationRepository(database)
	later := conv.UpdatedAt.Add(time.Minute)

	inTx := func(fn func(tx *sql.Tx) error) {
		t.Helper()
		if err := database.Transaction(ctx, fn); err != nil {
			t.Fatalf("transaction: %v", err)
		}
	}
	inTx(func(tx *sql.Tx) error { return repo.Touch(ctx, tx, conv.ID, later) })
	// A writer that read the clock before waiting on the lock.
	inTx(func(tx *sql.Tx) error { return repo.Touch(ctx, tx, conv.ID, later.Add(-30*time.Second)) })
	inTx(func(tx *sql.Tx) error {
		_, err := repo.Archive(ctx, tx, conv.ID, later.Add(-time.Second))
		return err
	})

	got, err := repo.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("expected updated_at to stay at %v, got %v", later, got.UpdatedAt)
	}
	if got.MivCount != 3 || !got.IsArchived {
		t.Fatalf("unexpected conversation %+v", got)
	}
}

func archiveMissing(ctx context.Context, database *DB, repo *ConversationRepository) (bool, error) {
	var changed bool
	err := database.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		changed, err = repo.Archive(ctx, tx, "missing", time.Now())
		return err
	})
	return changed, err
}

func TestConversationRepositoryListByDesk(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	defer database.Close()

	older, _ := createConversation(t, database, deskA, deskB, "older")
	other, _ := createConversation(t, database, deskB, deskC, "other")
	newer, _ := createConversation(t, database, deskC, deskA, "newer")
	appendMiv(t, database, older.ID, deskB, deskA, false)

	list, err := NewConversationRepository(database).ListByDesk(ctx, deskA)
	if err != nil {
		t.Fatalf("ListByDesk: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(list))
	}
	if list[0].ID != older.ID || list[1].ID != newer.ID {
		t.Fatalf("unexpected order: %s, %s", list[0].Subject, list[1].Subject)
	}
	for _, conv := range list {
		if conv.ID == other.ID {
			t.Fatal("listed a conversation the desk is not part of")
		}
	}
}
