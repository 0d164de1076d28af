package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/metrics"
	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/Evgen-Mutagen/paymybuddy/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// amountScale is the number of fractional digits a transfer may carry.
	amountScale = 2

	maxDescriptionLength = 255
)

// Settlement moves balance between related users.
type Settlement struct {
	store  repository.Store
	logger *zap.Logger
}

var _ core.SettlementEngine = (*Settlement)(nil)

func NewSettlement(store repository.Store, logger *zap.Logger) *Settlement {
	return &Settlement{
		store:  store,
		logger: logger,
	}
}

// ValidateAmount rejects non-positive amounts and amounts finer than one
// minor unit. Amounts are never rounded.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return core.ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(amountScale)) {
		return core.NewError(core.KindInvalidAmount, "amount must have at most two decimal places")
	}
	return nil
}

func (s *Settlement) Transfer(
	ctx context.Context,
	senderEmail, receiverEmail, description string,
	amount decimal.Decimal,
) (*model.Transaction, error) {
	transaction, err := s.transfer(ctx, senderEmail, receiverEmail, description, amount)
	metrics.ObserveTransfer(err)
	if err != nil {
		s.logger.Info("Transfer rejected",
			zap.String("sender", senderEmail),
			zap.String("receiver", receiverEmail),
			zap.String("amount", amount.String()),
			zap.Stringer("kind", core.KindOf(err)),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Transfer settled",
		zap.Int64("transaction_id", transaction.ID),
		zap.Int64("sender_id", transaction.SenderID),
		zap.Int64("receiver_id", transaction.ReceiverID),
		zap.String("amount", transaction.Amount.StringFixed(amountScale)))
	return transaction, nil
}

func (s *Settlement) transfer(
	ctx context.Context,
	senderEmail, receiverEmail, description string,
	amount decimal.Decimal,
) (*model.Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}

	if !utf8.ValidString(description) {
		return nil, core.NewError(core.KindValidation, "description must be valid UTF-8")
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, core.NewError(core.KindValidation, "description must be at most 255 characters")
	}

	var transaction *model.Transaction
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		sender, err := tx.Users().GetByEmail(ctx, senderEmail)
		if err != nil {
			return err
		}
		if sender == nil {
			return core.NewError(core.KindUserNotFound, "sender does not exist")
		}

		receiver, err := tx.Users().GetByEmail(ctx, receiverEmail)
		if err != nil {
			return err
		}
		if receiver == nil {
			return core.NewError(core.KindUserNotFound, "receiver does not exist")
		}

		relation, err := tx.Relations().Find(ctx, sender.ID, receiver.ID)
		if err != nil {
			return err
		}
		if relation == nil {
			return core.ErrRelationNotFound
		}

		// Balances read above may be stale; the gate runs on locked rows.
		locked, err := tx.Users().GetForUpdate(ctx, sender.ID, receiver.ID)
		if err != nil {
			return err
		}
		for _, u := range locked {
			switch u.ID {
			case sender.ID:
				sender = u
			case receiver.ID:
				receiver = u
			}
		}
		if len(locked) != 2 {
			return core.ErrUserNotFound
		}

		if sender.Balance.LessThan(amount) {
			return core.NewError(core.KindInsufficientBalance,
				"insufficient balance: current balance "+sender.Balance.StringFixed(amountScale)+
					", amount to debit "+amount.StringFixed(amountScale))
		}

		sender.Balance = sender.Balance.Sub(amount)
		receiver.Balance = receiver.Balance.Add(amount)

		if err := tx.Users().Save(ctx, sender); err != nil {
			return err
		}
		if err := tx.Users().Save(ctx, receiver); err != nil {
			return err
		}

		t := &model.Transaction{
			SenderID:      sender.ID,
			ReceiverID:    receiver.ID,
			SenderEmail:   sender.Email,
			ReceiverEmail: receiver.Email,
			Description:   description,
			Amount:        amount,
		}
		if err := tx.Transactions().Save(ctx, t); err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

func (s *Settlement) ListTransactions(ctx context.Context, email string) ([]*model.Transaction, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.NewError(core.KindUserNotFound, "user does not exist")
	}

	return s.store.Transactions().ListForUser(ctx, user.ID)
}
