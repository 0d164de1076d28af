package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/lib/pq"
)

// Store is the ledger store: users, relations and transactions behind a
// single transactional boundary.
type Store interface {
	Users() UserRepository
	Relations() RelationRepository
	Transactions() TransactionRepository

	// InTx runs fn against a Store bound to one database transaction. The
	// transaction commits when fn returns nil and rolls back otherwise,
	// including on panic and context cancellation. Calling InTx on a
	// transaction-bound Store runs fn in the existing transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type sqlStore struct {
	db *Database
	q  querier
	tx *sql.Tx
}

func NewStore(db *Database) Store {
	return &sqlStore{db: db, q: db.db}
}

func (s *sqlStore) Users() UserRepository {
	return &userRepository{q: s.q}
}

func (s *sqlStore) Relations() RelationRepository {
	return &relationRepository{q: s.q}
}

func (s *sqlStore) Transactions() TransactionRepository {
	return &transactionRepository{q: s.q}
}

func (s *sqlStore) InTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return core.Unavailable("begin transaction", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&sqlStore{db: s.db, q: tx, tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// Postgres constraint names declared in migrations/000001_init.up.sql.
const (
	constraintUserEmail    = "users_email_lower_key"
	constraintUserBalance  = "users_balance_check"
	constraintRelationPair = "user_relations_pair_key"
	constraintRelationSelf = "user_relations_no_self"
)

// classify turns driver errors into core errors. Constraint violations become
// the domain error they guard; everything else is a store failure.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			switch pqErr.Constraint {
			case constraintUserEmail:
				return &core.Error{Kind: core.KindEmailAlreadyExists, Msg: core.ErrEmailAlreadyExists.Msg, Err: err}
			case constraintRelationPair:
				return &core.Error{Kind: core.KindDuplicateRelation, Msg: core.ErrDuplicateRelation.Msg, Err: err}
			}
		case "check_violation":
			switch pqErr.Constraint {
			case constraintUserBalance:
				return &core.Error{Kind: core.KindInsufficientBalance, Msg: core.ErrInsufficientBalance.Msg, Err: err}
			case constraintRelationSelf:
				return &core.Error{Kind: core.KindSelfRelation, Msg: core.ErrSelfRelation.Msg, Err: err}
			}
		}
	}
	return core.Unavailable(op, err)
}
