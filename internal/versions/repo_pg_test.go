package versions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoCreateDuplicateKey(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	mock.ExpectExec("INSERT INTO generation_versions").
		WithArgs("doc-1", "customization", "v1", "pending", "jd", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: database}
	err = repo.Create(context.Background(), Version{
		DocumentID:   "doc-1",
		Kind:         KindCustomization,
		VersionKey:   "v1",
		InputContext: "jd",
		CreatedAt:    time.Now().UTC(),
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGRepoMarkCompletedTerminalGuard(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	score := 72.5
	mock.ExpectExec("UPDATE generation_versions").
		WithArgs("completed", "rewritten", 72.5, "fit", sqlmock.AnyArg(), "doc-1", "customization", "v1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM generation_versions").
		WithArgs("doc-1", "customization", "v1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("failed"))

	repo := &PGRepo{DB: database}
	err = repo.MarkCompleted(context.Background(), "doc-1", KindCustomization, "v1", "rewritten", &score, "fit", time.Now().UTC())
	if !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	mock.ExpectQuery("SELECT document_id, kind").
		WithArgs("doc-1", "message", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"document_id"}))

	repo := &PGRepo{DB: database}
	if _, err := repo.Get(context.Background(), "doc-1", KindMessage, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPGRepoTrim(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()

	mock.ExpectExec("DELETE FROM generation_versions").
		WithArgs("doc-1", "customization", 50).
		WillReturnResult(sqlmock.NewResult(0, 4))

	repo := &PGRepo{DB: database}
	if err := repo.Trim(context.Background(), "doc-1", KindCustomization, 50); err != nil {
		t.Fatalf("trim: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
