// Package repositorytest provides an in-memory repository.Store for tests.
//
// InTx serializes transactions on a single mutex and applies a transaction's
// writes only when fn returns nil, which gives the same all-or-nothing and
// no-interleaving guarantees the PostgreSQL store gets from row locks.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/Evgen-Mutagen/paymybuddy/internal/repository"
	"github.com/shopspring/decimal"
)

// Op names a store write that can be made to fail.
type Op string

const (
	OpSaveUser        Op = "save user"
	OpSaveRelation    Op = "save relation"
	OpSaveTransaction Op = "save transaction"
	OpCommit          Op = "commit"
)

type state struct {
	users        map[int64]*model.User
	relations    []*model.Relation
	transactions []*model.Transaction
	nextUser     int64
	nextRelation int64
	nextTx       int64
}

func (s *state) clone() *state {
	c := &state{
		users:        make(map[int64]*model.User, len(s.users)),
		relations:    append([]*model.Relation(nil), s.relations...),
		transactions: append([]*model.Transaction(nil), s.transactions...),
		nextUser:     s.nextUser,
		nextRelation: s.nextRelation,
		nextTx:       s.nextTx,
	}
	for id, u := range s.users {
		cp := *u
		c.users[id] = &cp
	}
	return c
}

// MemStore is safe for concurrent use.
type MemStore struct {
	mu     sync.Mutex
	st     *state
	faults map[Op]error
	now    func() time.Time
}

var _ repository.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		st:     &state{users: make(map[int64]*model.User)},
		faults: make(map[Op]error),
		now:    time.Now,
	}
}

// FailOn makes every subsequent op return err. A nil err clears the fault.
func (s *MemStore) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// AddUser inserts a user directly and returns a copy with its id assigned.
func (s *MemStore) AddUser(username, email string, balance decimal.Decimal) *model.User {
	u := &model.User{Username: username, Email: email, PasswordHash: "x", Balance: balance}
	if err := s.Users().Save(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

// Balance returns the committed balance of the user, or zero if absent.
func (s *MemStore) Balance(email string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.st.byEmail(email); u != nil {
		return u.Balance
	}
	return decimal.Zero
}

// TotalBalance sums every committed balance.
func (s *MemStore) TotalBalance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, u := range s.st.users {
		total = total.Add(u.Balance)
	}
	return total
}

// TransactionCount returns the number of committed transactions.
func (s *MemStore) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.transactions)
}

// RelationCount returns the number of committed relations.
func (s *MemStore) RelationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.relations)
}

func (s *MemStore) Users() repository.UserRepository {
	return &users{run: s.autocommit}
}

func (s *MemStore) Relations() repository.RelationRepository {
	return &relations{run: s.autocommit}
}

func (s *MemStore) Transactions() repository.TransactionRepository {
	return &transactions{run: s.autocommit}
}

func (s *MemStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return core.Unavailable("begin transaction", err)
	}

	v := &txView{st: s.st.clone(), faults: s.faults, now: s.now}
	if err := fn(v); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return core.Unavailable("commit transaction", err)
	}
	if err := s.faults[OpCommit]; err != nil {
		return err
	}
	s.st = v.st
	return nil
}

// autocommit runs a single statement outside of an explicit transaction.
func (s *MemStore) autocommit(fn func(st *state, faults map[Op]error, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(work, s.faults, s.now()); err != nil {
		return err
	}
	s.st = work
	return nil
}

type runner func(fn func(st *state, faults map[Op]error, now time.Time) error) error

type txView struct {
	st     *state
	faults map[Op]error
	now    func() time.Time
}

func (v *txView) run(fn func(st *state, faults map[Op]error, now time.Time) error) error {
	return fn(v.st, v.faults, v.now())
}

func (v *txView) Users() repository.UserRepository               { return &users{run: v.run} }
func (v *txView) Relations() repository.RelationRepository       { return &relations{run: v.run} }
func (v *txView) Transactions() repository.TransactionRepository { return &transactions{run: v.run} }

func (v *txView) InTx(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(v)
}

func (s *state) byEmail(email string) *model.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

type users struct{ run runner }

func (r *users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	var out *model.User
	err := r.run(func(st *state, _ map[Op]error, _ time.Time) error {
		if u := st.byEmail(email); u != nil {
			cp := *u
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *users) GetByID(_ context.Context, id int64) (*model.User, error) {
	var out *model.User
	err := r.run(func(st *state, _ map[Op]error, _ time.Time) error {
		if u, ok := st.users[id]; ok {
			cp := *u
			out = &cp
		}
		return nil
	})
	return out, err
}

func (r *users) GetForUpdate(_ context.Context, ids ...int64) ([]*model.User, error) {
	var out []*model.User
	err := r.run(func(st *state, _ map[Op]error, _ time.Time) error {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				cp := *u
				out = append(out, &cp)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *users) Save(_ context.Context, user *model.User) error {
	return r.run(func(st *state, faults map[Op]error, now time.Time) error {
		if err := faults[OpSaveUser]; err != nil {
			return err
		}
		if other := st.byEmail(user.Email); other != nil && other.ID != user.ID {
			return core.ErrEmailAlreadyExists
		}
		if user.Balance.IsNegative() {
			return core.ErrInsufficientBalance
		}
		if user.ID == 0 {
			st.nextUser++
			user.ID = st.nextUser
			user.CreatedAt = now
		} else if _, ok := st.users[user.ID]; !ok {
			return core.ErrUserNotFound
		}
		cp := *user
		st.users[user.ID] = &cp
		return nil
	})
}

type relations struct{ run runner }

func (r *relations) Find(_ context.Context, id1, id2 int64) (*model.Relation, error) {
	var out *model.Relation
	err := r.run(func(st *state, _ map[Op]error, _ time.Time) error {
		for _, rel := range st.relations {
			if rel.Connects(id1, id2) {
				cp := *rel
				out = &cp
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *relations) Save(_ context.Context, relation *model.Relation) error {
	return r.run(func(st *state, faults map[Op]error, now time.Time) error {
		if err := faults[OpSaveRelation]; err != nil {
			return err
		}
		if relation.UserA == relation.UserB {
			return core.ErrSelfRelation
		}
		for _, rel := range st.relations {
			if rel.Connects(relation.UserA, relation.UserB) {
				return core.ErrDuplicateRelation
			}
		}
		a, okA := st.users[relation.UserA]
		b, okB := st.users[relation.UserB]
		if !okA || !okB {
			return core.ErrUserNotFound
		}
		if relation.Status == "" {
			relation.Status = model.RelationAccepted
		}
		st.nextRelation++
		relation.ID = st.nextRelation
		relation.CreatedAt = now
		relation.UserAEmail = a.Email
		relation.UserBEmail = b.Email
		cp := *relation
		st.relations = append(st.relations, &cp)
		return nil
	})
}

func (r *relations) ListForUser(_ context.Context, userID int64) ([]*model.Relation, error) {
	var out []*model.Relation
	err := r.run(func(st *state, _ map[Op]error, _ time.Time) error {
		for _, rel := range st.relations {
			if rel.UserA == userID || rel.UserB == userID {
				cp := *rel
				cp.UserAEmail = st.users[rel.UserA].Email
				cp.UserBEmail = st.users[rel.UserB].Email
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}

type transactions struct{ run runner }

func (r *transactions) Save(_ context.Context, transaction *model.Transaction) error {
	return r.run(func(st *state, faults map[Op]error, now time.Time) error {
		if err := faults[OpSaveTransaction]; err != nil {
			return err
		}
		sender, okS := st.users[transaction.SenderID]
		receiver, okR := st.users[transaction.ReceiverID]
		if !okS || !okR {
			return core.ErrUserNotFound
		}
		st.nextTx++
		transaction.ID = st.nextTx
		transaction.CreatedAt = now
		transaction.SenderEmail = sender.Email
		transaction.ReceiverEmail = receiver.Email
		cp := *transaction
		st.transactions = append(st.transactions, &cp)
		return nil
	})
}

func (r *transactions) ListForUser(_ context.Context, userID int64) ([]*model.Transaction, error) {
	var out []*model.Transaction
	err := r.run(func(st *state, _ map[Op]error, _ time.Time) error {
		for _, t := range st.transactions {
			if t.SenderID == userID || t.ReceiverID == userID {
				cp := *t
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
