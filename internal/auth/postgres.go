package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Identities(context.Context) IdentityStore { return &pgIdentityStore{db: s.db} }
func (s *PGStore) RefreshTokens(context.Context) RefreshTokenStore {
	return &pgRefreshTokenStore{db: s.db}
}
func (s *PGStore) Sessions(context.Context) SessionStore { return &pgSessionStore{db: s.db} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// Identity store -----------------------------------------------------------

type pgIdentityStore struct{ db *sql.DB }

const identityColumns = `id, email, password_hash, first_name, last_name, avatar_url,
	provider, provider_id, email_verified, verification_token, verification_expires,
	reset_token, reset_expires, active, last_login_at, created_at, updated_at`

func (s *pgIdentityStore) Create(ctx context.Context, identity *Identity) error {
	_, err := s.db.ExecContext(ctx,
		`insert into identities(`+identityColumns+`)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		identity.ID, identity.Email, identity.PasswordHash,
		identity.FirstName, identity.LastName, identity.AvatarURL,
		string(identity.Provider), identity.ProviderID, identity.EmailVerified,
		identity.VerificationToken, nullTime(identity.VerificationExpires),
		identity.ResetToken, nullTime(identity.ResetExpires),
		identity.Active, nullTime(identity.LastLoginAt),
		identity.CreatedAt, identity.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgIdentityStore) Find(ctx context.Context, id string) (*Identity, error) {
	return s.findWhere(ctx, `id = $1`, id)
}

func (s *pgIdentityStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	return s.findWhere(ctx, `email = $1`, email)
}

func (s *pgIdentityStore) FindByProvider(ctx context.Context, provider Provider, providerID string) (*Identity, error) {
	return s.findWhere(ctx, `provider = $1 and provider_id = $2`, string(provider), providerID)
}

func (s *pgIdentityStore) FindByVerificationToken(ctx context.Context, token string) (*Identity, error) {
	return s.findWhere(ctx, `verification_token = $1 and verification_token <> ''`, token)
}

func (s *pgIdentityStore) FindByResetToken(ctx context.Context, token string) (*Identity, error) {
	return s.findWhere(ctx, `reset_token = $1 and reset_token <> ''`, token)
}

func (s *pgIdentityStore) findWhere(ctx context.Context, where string, args ...any) (*Identity, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+identityColumns+` from identities where `+where, args...)

	var (
		identity            Identity
		provider            string
		verificationExpires sql.NullTime
		resetExpires        sql.NullTime
		lastLoginAt         sql.NullTime
	)
	err := row.Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash,
		&identity.FirstName, &identity.LastName, &identity.AvatarURL,
		&provider, &identity.ProviderID, &identity.EmailVerified,
		&identity.VerificationToken, &verificationExpires,
		&identity.ResetToken, &resetExpires,
		&identity.Active, &lastLoginAt,
		&identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	identity.Provider = Provider(provider)
	identity.VerificationExpires = verificationExpires.Time
	identity.ResetExpires = resetExpires.Time
	identity.LastLoginAt = lastLoginAt.Time
	return &identity, nil
}

func (s *pgIdentityStore) Update(ctx context.Context, identity *Identity) error {
	res, err := s.db.ExecContext(ctx,
		`update identities set
			email = $2, password_hash = $3, first_name = $4, last_name = $5,
			avatar_url = $6, provider = $7, provider_id = $8, email_verified = $9,
			verification_token = $10, verification_expires = $11,
			reset_token = $12, reset_expires = $13,
			active = $14, last_login_at = $15, updated_at = $16
		 where id = $1`,
		identity.ID, identity.Email, identity.PasswordHash,
		identity.FirstName, identity.LastName, identity.AvatarURL,
		string(identity.Provider), identity.ProviderID, identity.EmailVerified,
		identity.VerificationToken, nullTime(identity.VerificationExpires),
		identity.ResetToken, nullTime(identity.ResetExpires),
		identity.Active, nullTime(identity.LastLoginAt), identity.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Refresh token store ------------------------------------------------------

type pgRefreshTokenStore struct{ db *sql.DB }

const refreshColumns = `id, identity_id, secret_hash, issued_at, expires_at,
	revoked, revoked_at, replaced_by, user_agent, ip`

const insertRefreshSQL = `insert into refresh_tokens(` + refreshColumns + `)
	 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`

func (s *pgRefreshTokenStore) Insert(ctx context.Context, token *RefreshToken) error {
	_, err := s.db.ExecContext(ctx, insertRefreshSQL,
		token.ID, token.IdentityID, token.SecretHash,
		token.IssuedAt, token.ExpiresAt,
		token.Revoked, nullTime(token.RevokedAt), token.ReplacedBy,
		token.UserAgent, token.IP,
	)
	return err
}

func (s *pgRefreshTokenStore) FindBySecret(ctx context.Context, secretHash string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+refreshColumns+` from refresh_tokens where secret_hash = $1`, secretHash)

	var (
		token     RefreshToken
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&token.ID, &token.IdentityID, &token.SecretHash,
		&token.IssuedAt, &token.ExpiresAt,
		&token.Revoked, &revokedAt, &token.ReplacedBy,
		&token.UserAgent, &token.IP,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	token.RevokedAt = revokedAt.Time
	return &token, nil
}

// Rotate revokes the old token, links it to next, and persists next, in one
// transaction. The conditional update is the serialization point: a
// concurrent rotation of the same secret loses the race and observes zero
// affected rows.
func (s *pgRefreshTokenStore) Rotate(ctx context.Context, oldSecretHash string, next *RefreshToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`update refresh_tokens set revoked = true, revoked_at = now(), replaced_by = $2
		 where secret_hash = $1 and revoked = false`,
		oldSecretHash, next.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUnauthorized
	}

	if _, err := tx.ExecContext(ctx, insertRefreshSQL,
		next.ID, next.IdentityID, next.SecretHash,
		next.IssuedAt, next.ExpiresAt,
		next.Revoked, nullTime(next.RevokedAt), next.ReplacedBy,
		next.UserAgent, next.IP,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *pgRefreshTokenStore) Revoke(ctx context.Context, secretHash, replacedBy string) error {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true, revoked_at = now(), replaced_by = $2
		 where secret_hash = $1 and revoked = false`,
		secretHash, replacedBy,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgRefreshTokenStore) RevokeAllForIdentity(ctx context.Context, identityID string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true, revoked_at = now()
		 where identity_id = $1 and revoked = false`,
		identityID,
	)
	return err
}

func (s *pgRefreshTokenStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`delete from refresh_tokens where expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Session store ------------------------------------------------------------

type pgSessionStore struct{ db *sql.DB }

const sessionColumns = `id, identity_id, user_agent, ip, device, browser, os,
	expires_at, active, last_activity_at, created_at`

func (s *pgSessionStore) Create(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(`+sessionColumns+`)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		session.ID, session.IdentityID, session.UserAgent, session.IP,
		session.Device, session.Browser, session.OS,
		session.ExpiresAt, session.Active, session.LastActivityAt, session.CreatedAt,
	)
	return err
}

func (s *pgSessionStore) Find(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from sessions where id = $1`, sessionID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *pgSessionStore) ListActiveByIdentity(ctx context.Context, identityID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+sessionColumns+` from sessions
		 where identity_id = $1 and active = true
		 order by last_activity_at desc`,
		identityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *pgSessionStore) Deactivate(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`update sessions set active = false where id = $1`, sessionID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgSessionStore) DeactivateAllForIdentity(ctx context.Context, identityID string) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set active = false where identity_id = $1 and active = true`,
		identityID,
	)
	return err
}

func (s *pgSessionStore) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set last_activity_at = $2 where id = $1`, sessionID, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var session Session
	err := row.Scan(
		&session.ID, &session.IdentityID, &session.UserAgent, &session.IP,
		&session.Device, &session.Browser, &session.OS,
		&session.ExpiresAt, &session.Active, &session.LastActivityAt, &session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
