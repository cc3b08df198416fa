package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store used by tests and the dev server. It
// applies the same compare-and-set discipline as PGStore, serialized by a
// single mutex.
type MemoryStore struct {
	mu         sync.Mutex
	identities map[string]*Identity     // by id
	tokens     map[string]*RefreshToken // by secret hash
	sessions   map[string]*Session      // by id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]*Identity),
		tokens:     make(map[string]*RefreshToken),
		sessions:   make(map[string]*Session),
	}
}

func (s *MemoryStore) Identities(context.Context) IdentityStore       { return (*memIdentityStore)(s) }
func (s *MemoryStore) RefreshTokens(context.Context) RefreshTokenStore { return (*memTokenStore)(s) }
func (s *MemoryStore) Sessions(context.Context) SessionStore          { return (*memSessionStore)(s) }

// Identity store -----------------------------------------------------------

type memIdentityStore MemoryStore

func (s *memIdentityStore) Create(_ context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.identities {
		if existing.Email == identity.Email {
			return ErrAlreadyExists
		}
	}
	clone := *identity
	s.identities[identity.ID] = &clone
	return nil
}

func (s *memIdentityStore) Find(_ context.Context, id string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *identity
	return &clone, nil
}

func (s *memIdentityStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	return s.findBy(func(i *Identity) bool { return i.Email == email })
}

func (s *memIdentityStore) FindByProvider(_ context.Context, provider Provider, providerID string) (*Identity, error) {
	return s.findBy(func(i *Identity) bool {
		return i.Provider == provider && i.ProviderID == providerID && providerID != ""
	})
}

func (s *memIdentityStore) FindByVerificationToken(_ context.Context, token string) (*Identity, error) {
	return s.findBy(func(i *Identity) bool {
		return i.VerificationToken == token && token != ""
	})
}

func (s *memIdentityStore) FindByResetToken(_ context.Context, token string) (*Identity, error) {
	return s.findBy(func(i *Identity) bool {
		return i.ResetToken == token && token != ""
	})
}

func (s *memIdentityStore) findBy(match func(*Identity) bool) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range s.identities {
		if match(identity) {
			clone := *identity
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memIdentityStore) Update(_ context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identity.ID]; !ok {
		return ErrNotFound
	}
	clone := *identity
	s.identities[identity.ID] = &clone
	return nil
}

// Refresh token store ------------------------------------------------------

type memTokenStore MemoryStore

func (s *memTokenStore) Insert(_ context.Context, token *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *token
	s.tokens[token.SecretHash] = &clone
	return nil
}

func (s *memTokenStore) FindBySecret(_ context.Context, secretHash string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[secretHash]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *token
	return &clone, nil
}

func (s *memTokenStore) Rotate(_ context.Context, oldSecretHash string, next *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.tokens[oldSecretHash]
	if !ok || old.Revoked {
		return ErrUnauthorized
	}
	old.Revoked = true
	old.RevokedAt = time.Now().UTC()
	old.ReplacedBy = next.ID
	clone := *next
	s.tokens[next.SecretHash] = &clone
	return nil
}

func (s *memTokenStore) Revoke(_ context.Context, secretHash, replacedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[secretHash]
	if !ok || token.Revoked {
		return ErrNotFound
	}
	token.Revoked = true
	token.RevokedAt = time.Now().UTC()
	token.ReplacedBy = replacedBy
	return nil
}

func (s *memTokenStore) RevokeAllForIdentity(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, token := range s.tokens {
		if token.IdentityID == identityID && !token.Revoked {
			token.Revoked = true
			token.RevokedAt = now
		}
	}
	return nil
}

func (s *memTokenStore) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for hash, token := range s.tokens {
		if token.ExpiresAt.Before(cutoff) {
			delete(s.tokens, hash)
			purged++
		}
	}
	return purged, nil
}

// Session store ------------------------------------------------------------

type memSessionStore MemoryStore

func (s *memSessionStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *session
	s.sessions[session.ID] = &clone
	return nil
}

func (s *memSessionStore) Find(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (s *memSessionStore) ListActiveByIdentity(_ context.Context, identityID string) ([]*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []*Session
	for _, session := range s.sessions {
		if session.IdentityID == identityID && session.Active {
			clone := *session
			sessions = append(sessions, &clone)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivityAt.After(sessions[j].LastActivityAt)
	})
	return sessions, nil
}

func (s *memSessionStore) Deactivate(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	session.Active = false
	return nil
}

func (s *memSessionStore) DeactivateAllForIdentity(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.IdentityID == identityID {
			session.Active = false
		}
	}
	return nil
}

func (s *memSessionStore) TouchActivity(_ context.Context, sessionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	session.LastActivityAt = at
	return nil
}
