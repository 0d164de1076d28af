package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID            int64
	SenderID      int64
	ReceiverID    int64
	SenderEmail   string
	ReceiverEmail string
	Description   string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}
