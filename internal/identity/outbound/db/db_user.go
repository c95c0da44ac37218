package db

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
)

const queryFindUserByEmail = `
SELECT id, email, full_name, password_hash, created_at
FROM identity_users
WHERE email = $1`

const queryCreateUser = `
INSERT INTO identity_users (id, email, full_name, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING created_at`

// FindUserByEmail returns goerror.ErrNotFound when no user has email.
func (s *DB) FindUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, cancel, span := s.startSpan(ctx, "FindUserByEmail")
	defer cancel()
	defer func() { s.endSpan(span, err) }()

	var u entity.User
	err = s.conn.QueryRow(ctx, queryFindUserByEmail, email).
		Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &u, nil
}

// CreateUser returns goerror.ErrConflict when the email is taken.
func (s *DB) CreateUser(ctx context.Context, in entity.NewUser) (_ *entity.User, err error) {
	ctx, cancel, span := s.startSpan(ctx, "CreateUser")
	defer cancel()
	defer func() { s.endSpan(span, err) }()

	u := entity.User{
		ID:           in.ID,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: in.PasswordHash,
	}
	err = s.conn.QueryRow(ctx, queryCreateUser, in.ID, in.Email, in.FullName, in.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &u, nil
}
