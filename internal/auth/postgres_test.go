package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGCreateIdentityDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into identities").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_email_key"})

	now := time.Now().UTC()
	err := store.Identities(context.Background()).Create(context.Background(), &Identity{
		ID:        "id-1",
		Email:     "ada@example.com",
		Provider:  ProviderLocal,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGFindByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from identities where email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Identities(context.Background()).FindByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGRotateLosesRace(t *testing.T) {
	store, mock := newMockStore(t)

	// A concurrent rotation already consumed the secret: zero rows affected,
	// the transaction rolls back, nothing is inserted.
	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens set revoked = true").
		WithArgs("old-hash", "next-id").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	now := time.Now().UTC()
	err := store.RefreshTokens(context.Background()).Rotate(context.Background(), "old-hash", &RefreshToken{
		ID:         "next-id",
		IdentityID: "id-1",
		SecretHash: "next-hash",
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Hour),
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRotateWinsRace(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("update refresh_tokens set revoked = true").
		WithArgs("old-hash", "next-id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	err := store.RefreshTokens(context.Background()).Rotate(context.Background(), "old-hash", &RefreshToken{
		ID:         "next-id",
		IdentityID: "id-1",
		SecretHash: "next-hash",
		IssuedAt:   now,
		ExpiresAt:  now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRevokeAlreadyRevoked(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update refresh_tokens set revoked = true").
		WithArgs("hash", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.RefreshTokens(context.Background()).Revoke(context.Background(), "hash", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPGPurgeExpired(t *testing.T) {
	store, mock := newMockStore(t)

	cutoff := time.Now().UTC()
	mock.ExpectExec("delete from refresh_tokens where expires_at").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	purged, err := store.RefreshTokens(context.Background()).PurgeExpired(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 3 {
		t.Fatalf("purged: got %d, want 3", purged)
	}
}

func TestPGFindBySecret(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "identity_id", "secret_hash", "issued_at", "expires_at",
		"revoked", "revoked_at", "replaced_by", "user_agent", "ip",
	}).AddRow("tok-1", "id-1", "hash", now, now.Add(time.Hour), false, nil, "", "curl/8", "203.0.113.7")

	mock.ExpectQuery("select .* from refresh_tokens where secret_hash").
		WithArgs("hash").
		WillReturnRows(rows)

	token, err := store.RefreshTokens(context.Background()).FindBySecret(context.Background(), "hash")
	if err != nil {
		t.Fatalf("FindBySecret: %v", err)
	}
	if token.ID != "tok-1" || token.Revoked || !token.IsActive(now) {
		t.Fatalf("unexpected token: %+v", token)
	}
}

func TestPGListActiveSessions(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "identity_id", "user_agent", "ip", "device", "browser", "os",
		"expires_at", "active", "last_activity_at", "created_at",
	}).
		AddRow("s2", "id-1", "ua", "ip", "Desktop", "Chrome", "Linux", now.Add(time.Hour), true, now, now).
		AddRow("s1", "id-1", "ua", "ip", "Mobile", "Safari", "iOS", now.Add(time.Hour), true, now.Add(-time.Minute), now)

	mock.ExpectQuery("select .* from sessions").
		WithArgs("id-1").
		WillReturnRows(rows)

	sessions, err := store.Sessions(context.Background()).ListActiveByIdentity(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("ListActiveByIdentity: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "s2" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
}
