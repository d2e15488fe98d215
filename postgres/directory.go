package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/directory"
	"github.com/MrEthical07/goOTP/password"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id::text, email, first_name, last_name, email_verified, active, created_at`

// Directory stores users in the users table.
type Directory struct {
	db        DB
	hasher    *password.Argon2
	dummyHash string
	now       func() time.Time
}

// NewDirectory returns a Directory backed by db.
func NewDirectory(db DB, hasher *password.Argon2) (*Directory, error) {
	if db == nil || hasher == nil {
		return nil, errors.New("db and password hasher required")
	}
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Directory{db: db, hasher: hasher, dummyHash: dummy, now: time.Now}, nil
}

// GetOrCreate inserts a password-less user unless the email exists. The
// insert and the uniqueness check are one statement, so concurrent calls
// create at most one row.
func (d *Directory) GetOrCreate(ctx context.Context, email string) (goOTP.Identity, bool, error) {
	first, last := directory.NamesFromEmail(email)

	user, err := scanUser(d.db.QueryRow(ctx,
		`INSERT INTO users (id, email, first_name, last_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING `+userColumns,
		uuid.NewString(), email, first, last, d.now().UTC(),
	))
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return goOTP.Identity{}, false, fmt.Errorf("insert user: %w", err)
	}

	user, err = scanUser(d.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	))
	if err != nil {
		return goOTP.Identity{}, false, fmt.Errorf("find user by email: %w", err)
	}
	return user, false, nil
}

func (d *Directory) GetByID(ctx context.Context, id string) (goOTP.Identity, error) {
	user, err := scanUser(d.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id::text = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return goOTP.Identity{}, goOTP.ErrUserNotFound
	}
	if err != nil {
		return goOTP.Identity{}, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (d *Directory) MarkVerified(ctx context.Context, id string) error {
	tag, err := d.db.Exec(ctx, `UPDATE users SET email_verified = TRUE WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goOTP.ErrUserNotFound
	}
	return nil
}

// Authenticate verifies a password. Lookups that find nothing still run a
// hash comparison against a dummy hash.
func (d *Directory) Authenticate(ctx context.Context, email, plaintext string) (goOTP.Identity, error) {
	var (
		user goOTP.Identity
		hash string
	)
	err := d.db.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.EmailVerified, &user.Active, &user.CreatedAt, &hash)

	found := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return goOTP.Identity{}, fmt.Errorf("find user by email: %w", err)
	}

	candidate := hash
	if !found || candidate == "" {
		candidate = d.dummyHash
	}
	ok, verr := d.hasher.Verify(plaintext, candidate)
	if verr != nil || !ok || !found || hash == "" || !user.Active {
		return goOTP.Identity{}, goOTP.ErrInvalidCredentials
	}
	return user, nil
}

// Create inserts a password account. A unique violation on email maps to
// goOTP.ErrAccountExists.
func (d *Directory) Create(ctx context.Context, in goOTP.NewUser) (goOTP.Identity, error) {
	hash, err := d.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordLength) {
			return goOTP.Identity{}, fmt.Errorf("%w: %v", goOTP.ErrInvalidRequest, err)
		}
		return goOTP.Identity{}, err
	}

	user, err := scanUser(d.db.QueryRow(ctx,
		`INSERT INTO users (id, email, first_name, last_name, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		uuid.NewString(), in.Email, in.FirstName, in.LastName, hash, d.now().UTC(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return goOTP.Identity{}, goOTP.ErrAccountExists
		}
		return goOTP.Identity{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (goOTP.Identity, error) {
	var u goOTP.Identity
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.EmailVerified, &u.Active, &u.CreatedAt)
	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
