package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/password"
	"github.com/google/uuid"
)

type record struct {
	identity goOTP.Identity
	hash     string
}

// Memory is an in-process goOTP.UserDirectory. It suits tests, demos and
// single-instance deployments; records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]*record
	byEmail map[string]string

	hasher    *password.Argon2
	dummyHash string
	now       func() time.Time
}

// NewMemory returns an empty directory that hashes passwords with hasher.
func NewMemory(hasher *password.Argon2) (*Memory, error) {
	if hasher == nil {
		return nil, errors.New("password hasher required")
	}
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &Memory{
		byID:      make(map[string]*record),
		byEmail:   make(map[string]string),
		hasher:    hasher,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// GetOrCreate returns the record for email, creating a password-less one
// with names derived from the address when none exists.
func (m *Memory) GetOrCreate(_ context.Context, email string) (goOTP.Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.byEmail[email]; ok {
		return m.byID[id].identity, false, nil
	}

	first, last := NamesFromEmail(email)
	rec := m.insertLocked(goOTP.Identity{
		Email:     email,
		FirstName: first,
		LastName:  last,
	}, "")
	return rec.identity, true, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (goOTP.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return goOTP.Identity{}, goOTP.ErrUserNotFound
	}
	return rec.identity, nil
}

func (m *Memory) MarkVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return goOTP.ErrUserNotFound
	}
	rec.identity.EmailVerified = true
	return nil
}

// Authenticate checks a password. Unknown and password-less accounts are
// verified against a dummy hash so every failure costs the same.
func (m *Memory) Authenticate(_ context.Context, email, plaintext string) (goOTP.Identity, error) {
	m.mu.RLock()
	var rec record
	id, found := m.byEmail[email]
	if found {
		rec = *m.byID[id]
	}
	m.mu.RUnlock()

	hash := rec.hash
	if !found || hash == "" {
		hash = m.dummyHash
	}

	ok, err := m.hasher.Verify(plaintext, hash)
	if err != nil || !ok || !found || rec.hash == "" || !rec.identity.Active {
		return goOTP.Identity{}, goOTP.ErrInvalidCredentials
	}
	return rec.identity, nil
}

// Create stores a password account. Hashing happens outside the lock; the
// uniqueness check is repeated once it is held.
func (m *Memory) Create(_ context.Context, in goOTP.NewUser) (goOTP.Identity, error) {
	m.mu.RLock()
	_, exists := m.byEmail[in.Email]
	m.mu.RUnlock()
	if exists {
		return goOTP.Identity{}, goOTP.ErrAccountExists
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordLength) {
			return goOTP.Identity{}, fmt.Errorf("%w: %v", goOTP.ErrInvalidRequest, err)
		}
		return goOTP.Identity{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[in.Email]; ok {
		return goOTP.Identity{}, goOTP.ErrAccountExists
	}
	rec := m.insertLocked(goOTP.Identity{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}, hash)
	return rec.identity, nil
}

// SetActive enables or disables an account. Disabled accounts cannot log
// in with a password.
func (m *Memory) SetActive(id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return goOTP.ErrUserNotFound
	}
	rec.identity.Active = active
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *Memory) insertLocked(identity goOTP.Identity, hash string) *record {
	identity.ID = uuid.NewString()
	identity.Active = true
	identity.CreatedAt = m.now().UTC()

	rec := &record{identity: identity, hash: hash}
	m.byID[identity.ID] = rec
	m.byEmail[identity.Email] = identity.ID
	return rec
}
