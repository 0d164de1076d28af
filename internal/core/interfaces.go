package core

import (
	"context"

	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
	"github.com/shopspring/decimal"
)

type (
	AuthService interface {
		Register(ctx context.Context, username, email, password string) (*model.User, string, error)
		Login(ctx context.Context, email, password string) (*model.User, string, error)
		// Authenticate resolves the caller's current email from a token.
		Authenticate(ctx context.Context, tokenString string) (string, error)
	}

	UserService interface {
		GetProfile(ctx context.Context, email string) (*model.User, error)
		UpdateProfile(ctx context.Context, email string, update ProfileUpdate) (*model.User, error)
	}

	RelationGraph interface {
		AddRelation(ctx context.Context, requesterEmail, targetEmail string) (*model.Relation, error)
		ListRelations(ctx context.Context, email string) ([]string, error)
		AreRelated(ctx context.Context, emailA, emailB string) (bool, error)
	}

	SettlementEngine interface {
		Transfer(ctx context.Context, senderEmail, receiverEmail, description string, amount decimal.Decimal) (*model.Transaction, error)
		ListTransactions(ctx context.Context, email string) ([]*model.Transaction, error)
	}
)

type ProfileUpdate struct {
	Username string
	Email    string
	Password string
}
