package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwrk-planet/signal-relay/internal/auth"
)

const queryDisplayName = `SELECT display_name FROM users WHERE id = $1`

// UserDirectory reads display names from the auth service's users table.
// The relay never writes to it.
type UserDirectory struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewUserDirectory(db *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{db: db, timeout: 2 * time.Second}
}

func (d *UserDirectory) DisplayName(ctx context.Context, subject string) (string, error) {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return "", auth.ErrUnknownUser
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var name *string
	if err := d.db.QueryRow(ctx, queryDisplayName, id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", auth.ErrUnknownUser
		}
		return "", err
	}
	if name == nil {
		return "", nil
	}
	return *name, nil
}
