package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/lib/pq"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetForUpdate locks the rows of the given users in ascending id order
	// and returns them in that order. It must be called inside InTx.
	GetForUpdate(ctx context.Context, ids ...int64) ([]*model.User, error)
	// Save inserts the user when ID is zero and updates it otherwise. Updating
	// an id with no row returns core.ErrUserNotFound.
	Save(ctx context.Context, user *model.User) error
}

type userRepository struct {
	q querier
}

const userColumns = `id, username, email, password_hash, balance, created_at`

func scanUser(row interface{ Scan(dest ...any) error }, user *model.User) error {
	return row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Balance, &user.CreatedAt)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	err := scanUser(r.q.QueryRowContext(ctx, query, email), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get user by email", err)
	}
	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user := &model.User{}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	err := scanUser(r.q.QueryRowContext(ctx, query, id), user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get user by id", err)
	}
	return user, nil
}

func (r *userRepository) GetForUpdate(ctx context.Context, ids ...int64) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, classify("lock users", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		if err := scanUser(rows, &user); err != nil {
			return nil, classify("scan user", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("lock users", err)
	}

	return users, nil
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	if user.ID == 0 {
		query := `INSERT INTO users (username, email, password_hash, balance)
              VALUES ($1, $2, $3, $4) RETURNING id, created_at`
		err := r.q.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Balance).
			Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			return classify("insert user", err)
		}
		return nil
	}

	query := `UPDATE users
              SET username = $1, email = $2, password_hash = $3, balance = $4
              WHERE id = $5`
	res, err := r.q.ExecContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.Balance, user.ID)
	if err != nil {
		return classify("update user", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("update user", err)
	}
	if affected == 0 {
		return core.ErrUserNotFound
	}
	return nil
}
