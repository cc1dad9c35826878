package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"registrydash/internal/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("username already exists")
)

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"-"`
}

type Repository struct {
	q db.Querier
}

func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

func (r *Repository) ByUsername(ctx context.Context, username string) (User, error) {
	return r.one(ctx, `
		select id::text, username, display_name, password_hash
		from users where username = $1
	`, username)
}

func (r *Repository) ByID(ctx context.Context, id string) (User, error) {
	return r.one(ctx, `
		select id::text, username, display_name, password_hash
		from users where id = $1::uuid
	`, id)
}

func (r *Repository) one(ctx context.Context, sql string, arg string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u User
	err := r.q.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (r *Repository) Create(ctx context.Context, username, displayName, passwordHash string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var u User
	err := r.q.QueryRow(ctx, `
		insert into users (username, display_name, password_hash)
		values ($1, $2, $3)
		returning id::text, username, display_name
	`, username, displayName, passwordHash).Scan(&u.ID, &u.Username, &u.DisplayName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return u, fmt.Errorf("%w: %q", ErrExists, username)
		}
		return u, fmt.Errorf("create user: %w", err)
	}
	u.PasswordHash = passwordHash
	return u, nil
}
