package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

// Users is the read-only identity directory. Account provisioning lives
// in the surrounding service; signaling only resolves and looks up.
type Users struct {
	db *sql.DB
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

func (u *Users) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, core.ErrAuthRequired
	}
	var user domain.User
	err := u.db.QueryRowContext(ctx,
		`SELECT id, name FROM users WHERE token = ?`, token).
		Scan(&user.ID, &user.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrAuthRequired
	}
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return &user, nil
}

func (u *Users) Lookup(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var user domain.User
	err := u.db.QueryRowContext(ctx,
		`SELECT id, name FROM users WHERE id = ?`, string(id)).
		Scan(&user.ID, &user.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUnknownParticipant
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user %s: %w", id, err)
	}
	return &user, nil
}
