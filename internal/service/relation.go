package service

import (
	"context"
	"strings"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/metrics"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/Evgen-Mutagen/paymybuddy/internal/repository"
	"go.uber.org/zap"
)

// Relations maintains the undirected links that allow two users to
// exchange money.
type Relations struct {
	store  repository.Store
	logger *zap.Logger
}

var _ core.RelationGraph = (*Relations)(nil)

func NewRelations(store repository.Store, logger *zap.Logger) *Relations {
	return &Relations{
		store:  store,
		logger: logger,
	}
}

func (s *Relations) AddRelation(ctx context.Context, requesterEmail, targetEmail string) (*model.Relation, error) {
	relation, err := s.addRelation(ctx, requesterEmail, targetEmail)
	metrics.ObserveRelation(err)
	if err != nil {
		s.logger.Info("Relation rejected",
			zap.String("requester", requesterEmail),
			zap.String("target", targetEmail),
			zap.Stringer("kind", core.KindOf(err)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Relation added",
		zap.Int64("relation_id", relation.ID),
		zap.Int64("user_a", relation.UserA),
		zap.Int64("user_b", relation.UserB))
	return relation, nil
}

func (s *Relations) addRelation(ctx context.Context, requesterEmail, targetEmail string) (*model.Relation, error) {
	if strings.EqualFold(strings.TrimSpace(requesterEmail), strings.TrimSpace(targetEmail)) {
		return nil, core.ErrSelfRelation
	}

	var relation *model.Relation
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		target, err := tx.Users().GetByEmail(ctx, targetEmail)
		if err != nil {
			return err
		}
		if target == nil {
			return core.NewError(core.KindUserNotFound, "relation user does not exist")
		}

		requester, err := tx.Users().GetByEmail(ctx, requesterEmail)
		if err != nil {
			return err
		}
		if requester == nil {
			return core.NewError(core.KindUserNotFound, "user does not exist")
		}

		existing, err := tx.Relations().Find(ctx, requester.ID, target.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return core.ErrDuplicateRelation
		}

		rel := &model.Relation{
			UserA:      requester.ID,
			UserB:      target.ID,
			UserAEmail: requester.Email,
			UserBEmail: target.Email,
			Status:     model.RelationAccepted,
		}
		if err := tx.Relations().Save(ctx, rel); err != nil {
			return err
		}
		relation = rel
		return nil
	})
	if err != nil {
		return nil, err
	}

	return relation, nil
}

func (s *Relations) ListRelations(ctx context.Context, email string) ([]string, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.NewError(core.KindUserNotFound, "user does not exist")
	}

	relations, err := s.store.Relations().ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	emails := make([]string, 0, len(relations))
	for _, rel := range relations {
		emails = append(emails, rel.Peer(user.ID))
	}
	return emails, nil
}

func (s *Relations) AreRelated(ctx context.Context, emailA, emailB string) (bool, error) {
	a, err := s.store.Users().GetByEmail(ctx, emailA)
	if err != nil {
		return false, err
	}
	b, err := s.store.Users().GetByEmail(ctx, emailB)
	if err != nil {
		return false, err
	}
	if a == nil || b == nil {
		return false, nil
	}

	rel, err := s.store.Relations().Find(ctx, a.ID, b.ID)
	if err != nil {
		return false, err
	}
	return rel != nil, nil
}
