package service

import (
	"context"
	"strings"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/Evgen-Mutagen/paymybuddy/internal/repository"
	"go.uber.org/zap"
)

type Users struct {
	store  repository.Store
	hasher PasswordHasher
	logger *zap.Logger
}

var _ core.UserService = (*Users)(nil)

func NewUsers(store repository.Store, hasher PasswordHasher, logger *zap.Logger) *Users {
	return &Users{
		store:  store,
		hasher: hasher,
		logger: logger,
	}
}

func (s *Users) GetProfile(ctx context.Context, email string) (*model.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.NewError(core.KindUserNotFound, "user not found")
	}
	return user, nil
}

// UpdateProfile replaces the username, email and password of the user. The
// row is locked first so a concurrent transfer cannot lose its balance write.
func (s *Users) UpdateProfile(ctx context.Context, email string, update core.ProfileUpdate) (*model.User, error) {
	update.Username = strings.TrimSpace(update.Username)
	update.Email = strings.TrimSpace(update.Email)
	if err := validateCredentials(update.Username, update.Email, update.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hasher.Hash(update.Password)
	if err != nil {
		return nil, err
	}

	var updated *model.User
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if current == nil {
			return core.NewError(core.KindUserNotFound, "user not found")
		}

		if !strings.EqualFold(current.Email, update.Email) {
			other, err := tx.Users().GetByEmail(ctx, update.Email)
			if err != nil {
				return err
			}
			if other != nil {
				return core.NewError(core.KindEmailAlreadyExists, "the email is already in use")
			}
		}

		locked, err := tx.Users().GetForUpdate(ctx, current.ID)
		if err != nil {
			return err
		}
		if len(locked) != 1 {
			return core.NewError(core.KindUserNotFound, "user not found")
		}

		user := locked[0]
		user.Username = update.Username
		user.Email = update.Email
		user.PasswordHash = hashedPassword
		if err := tx.Users().Save(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Profile updated", zap.Int64("user_id", updated.ID))
	return updated, nil
}
