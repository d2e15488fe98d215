package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/password"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "first_name", "last_name", "email_verified", "active", "created_at"}

func newMockDirectory(t *testing.T) (*Directory, pgxmock.PgxPoolIface, *password.Argon2) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	hasher, err := password.NewArgon2(password.Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)

	dir, err := NewDirectory(mock, hasher)
	require.NoError(t, err)
	return dir, mock, hasher
}

func TestMigrateCreatesTables(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_audit_logs_email_created").
		WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateInsertsNewUser(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "jane.doe@example.com", "Jane", "Doe", pgxmock.AnyArg()).
		WillReturnRows(mock.NewRows(userCols).AddRow("u1", "jane.doe@example.com", "Jane", "Doe", false, true, now))

	user, created, err := dir.GetOrCreate(context.Background(), "jane.doe@example.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Jane", user.FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateReturnsExistingUser(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "bob@example.com", "Bob", "User", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("bob@example.com").
		WillReturnRows(mock.NewRows(userCols).AddRow("u7", "bob@example.com", "Bob", "User", true, true, now))

	user, created, err := dir.GetOrCreate(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "u7", user.ID)
	assert.True(t, user.EmailVerified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)

	mock.ExpectQuery("SELECT .+ FROM users WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := dir.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, goOTP.ErrUserNotFound)
}

func TestMarkVerified(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)

	mock.ExpectExec("UPDATE users SET email_verified").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET email_verified").
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, dir.MarkVerified(context.Background(), "u1"))
	assert.ErrorIs(t, dir.MarkVerified(context.Background(), "gone"), goOTP.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMapsUniqueViolation(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), "taken@example.com", "", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := dir.Create(context.Background(), goOTP.NewUser{Email: "taken@example.com", Password: "long enough"})
	assert.ErrorIs(t, err, goOTP.ErrAccountExists)
}

func TestCreateRejectsShortPasswordWithoutQuery(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)

	_, err := dir.Create(context.Background(), goOTP.NewUser{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, goOTP.ErrInvalidRequest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate(t *testing.T) {
	dir, mock, hasher := newMockDirectory(t)
	now := time.Now().UTC()
	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	cols := append(append([]string(nil), userCols...), "password_hash")

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(mock.NewRows(cols).AddRow("u1", "alice@example.com", "Alice", "User", true, true, now, hash))
	user, err := dir.Authenticate(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(mock.NewRows(cols).AddRow("u1", "alice@example.com", "Alice", "User", true, true, now, hash))
	_, err = dir.Authenticate(context.Background(), "alice@example.com", "wrong horse")
	assert.ErrorIs(t, err, goOTP.ErrInvalidCredentials)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)
	_, err = dir.Authenticate(context.Background(), "ghost@example.com", "correct horse")
	assert.ErrorIs(t, err, goOTP.ErrInvalidCredentials)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email").
		WithArgs("otp@example.com").
		WillReturnRows(mock.NewRows(cols).AddRow("u2", "otp@example.com", "Otp", "User", true, true, now, ""))
	_, err = dir.Authenticate(context.Background(), "otp@example.com", "anything long")
	assert.ErrorIs(t, err, goOTP.ErrInvalidCredentials)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditSinkInsertsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	meta, _ := json.Marshal(map[string]string{"failed_attempts": "2"})

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs("OTP_FAILED", "a@example.com", "", "203.0.113.1", "curl/8", false, "invalid_otp", meta, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sink := NewAuditSink(mock)
	err = sink.Emit(context.Background(), goOTP.AuditEvent{
		Timestamp: ts,
		EventType: "OTP_FAILED",
		Email:     "a@example.com",
		IP:        "203.0.113.1",
		UserAgent: "curl/8",
		Error:     "invalid_otp",
		Metadata:  map[string]string{"failed_attempts": "2"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
