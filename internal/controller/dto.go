package controller

import (
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
)

type profileResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

func newProfileResponse(u *model.User) profileResponse {
	return profileResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Balance:   u.Balance.StringFixed(2),
		CreatedAt: u.CreatedAt,
	}
}

type transactionResponse struct {
	ID            int64     `json:"id"`
	SenderEmail   string    `json:"sender_email"`
	ReceiverEmail string    `json:"receiver_email"`
	Description   string    `json:"description"`
	Amount        string    `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
}

func newTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		SenderEmail:   t.SenderEmail,
		ReceiverEmail: t.ReceiverEmail,
		Description:   t.Description,
		Amount:        t.Amount.StringFixed(2),
		CreatedAt:     t.CreatedAt,
	}
}

type relationResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
