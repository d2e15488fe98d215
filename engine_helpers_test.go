package goOTP

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

type memDirectory struct {
	mu        sync.Mutex
	nextID    int
	byEmail   map[string]*memUser
	byID      map[string]*memUser
	creates   atomic.Int64
	verifyErr error
}

type memUser struct {
	identity Identity
	password string
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		byEmail: map[string]*memUser{},
		byID:    map[string]*memUser{},
	}
}

func (d *memDirectory) insert(email, password string, in NewUser) *memUser {
	d.nextID++
	u := &memUser{
		identity: Identity{
			ID:        "u" + strconv.Itoa(d.nextID),
			Email:     email,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Active:    true,
			CreatedAt: time.Now(),
		},
		password: password,
	}
	d.byEmail[email] = u
	d.byID[u.identity.ID] = u
	d.creates.Add(1)
	return u
}

func (d *memDirectory) GetOrCreate(_ context.Context, email string) (Identity, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.byEmail[email]; ok {
		return u.identity, false, nil
	}
	return d.insert(email, "", NewUser{}).identity, true, nil
}

func (d *memDirectory) GetByID(_ context.Context, id string) (Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byID[id]
	if !ok {
		return Identity{}, ErrUserNotFound
	}
	return u.identity, nil
}

func (d *memDirectory) MarkVerified(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.verifyErr != nil {
		return d.verifyErr
	}
	u, ok := d.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.identity.EmailVerified = true
	return nil
}

func (d *memDirectory) Authenticate(_ context.Context, email, password string) (Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.byEmail[email]
	if !ok || u.password == "" || u.password != password || !u.identity.Active {
		return Identity{}, ErrInvalidCredentials
	}
	return u.identity, nil
}

func (d *memDirectory) Create(_ context.Context, in NewUser) (Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byEmail[in.Email]; ok {
		return Identity{}, ErrAccountExists
	}
	return d.insert(in.Email, in.Password, in).identity, nil
}

type fakeIssuer struct {
	mu      sync.Mutex
	issued  int
	refresh map[string]string
}

func newFakeIssuer() *fakeIssuer {
	return &fakeIssuer{refresh: map[string]string{}}
}

func (f *fakeIssuer) Issue(_ context.Context, user Identity) (TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.issued++
	n := strconv.Itoa(f.issued)
	pair := TokenPair{
		Access:  "access-" + user.ID + "-" + n,
		Refresh: "refresh-" + user.ID + "-" + n,
	}
	f.refresh[pair.Refresh] = user.ID
	return pair, nil
}

func (f *fakeIssuer) Refresh(_ context.Context, token string) (TokenPair, error) {
	f.mu.Lock()
	userID, ok := f.refresh[token]
	if ok {
		delete(f.refresh, token)
	}
	f.mu.Unlock()

	if !ok {
		return TokenPair{}, ErrInvalidToken
	}
	return f.Issue(context.Background(), Identity{ID: userID})
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []EmailMessage
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSender) messages() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailMessage(nil), s.msgs...)
}

type failingAuditSink struct{}

func (failingAuditSink) Emit(context.Context, AuditEvent) error {
	return errors.New("audit backend down")
}

type testEngine struct {
	*Engine
	mr     *miniredis.Miniredis
	users  *memDirectory
	tokens *fakeIssuer
	sender *recordingSender
	audit  *chanSink
}

type chanSink struct {
	ch chan AuditEvent
}

func (s *chanSink) Emit(_ context.Context, e AuditEvent) error {
	select {
	case s.ch <- e:
	default:
	}
	return nil
}

// drain returns every event delivered so far. Call after Engine.Close.
func (s *chanSink) drain() []AuditEvent {
	var out []AuditEvent
	for {
		select {
		case e := <-s.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Mail.Workers = 1
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, configure ...func(*Builder)) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	te := &testEngine{
		mr:     mr,
		users:  newMemDirectory(),
		tokens: newFakeIssuer(),
		sender: &recordingSender{},
		audit:  &chanSink{ch: make(chan AuditEvent, 1024)},
	}

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(te.users).
		WithTokenIssuer(te.tokens).
		WithEmailSender(te.sender).
		WithAuditSink(te.audit)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	te.Engine = engine
	return te
}

// storedCode reads the outstanding challenge straight from Redis.
func (te *testEngine) storedCode(t *testing.T, email string) string {
	t.Helper()

	code, err := te.mr.Get("otp:{" + email + "}")
	if err != nil {
		t.Fatalf("no stored code for %s: %v", email, err)
	}
	return code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}
