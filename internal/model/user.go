package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBalance is granted to every user on registration.
var DefaultBalance = decimal.NewFromInt(100)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Balance      decimal.Decimal
	CreatedAt    time.Time
}
