package core

import (
	"errors"
)

// Kind discriminates the outcomes the API surface maps to distinct responses.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidAmount
	KindUserNotFound
	KindSelfRelation
	KindDuplicateRelation
	KindRelationNotFound
	KindInsufficientBalance
	KindStoreUnavailable
	KindEmailAlreadyExists
	KindInvalidCredentials
	KindUnauthorized
	KindValidation
)

var kindNames = map[Kind]string{
	KindUnknown:             "internal",
	KindInvalidAmount:       "invalid_amount",
	KindUserNotFound:        "user_not_found",
	KindSelfRelation:        "self_relation",
	KindDuplicateRelation:   "duplicate_relation",
	KindRelationNotFound:    "relation_not_found",
	KindInsufficientBalance: "insufficient_balance",
	KindStoreUnavailable:    "store_unavailable",
	KindEmailAlreadyExists:  "email_already_exists",
	KindInvalidCredentials:  "invalid_credentials",
	KindUnauthorized:        "unauthorized",
	KindValidation:          "validation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error is the error type returned by the settlement core and its collaborators.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *Error of the same kind, so the sentinels
// below match every error of their kind regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount, Msg: "amount must be greater than zero"}
	ErrUserNotFound        = &Error{Kind: KindUserNotFound, Msg: "user not found"}
	ErrSelfRelation        = &Error{Kind: KindSelfRelation, Msg: "cannot add your own email address"}
	ErrDuplicateRelation   = &Error{Kind: KindDuplicateRelation, Msg: "relation already exists"}
	ErrRelationNotFound    = &Error{Kind: KindRelationNotFound, Msg: "users are not related"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Msg: "insufficient balance"}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable, Msg: "store unavailable"}
	ErrEmailAlreadyExists  = &Error{Kind: KindEmailAlreadyExists, Msg: "an account with this email already exists"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Msg: "invalid email or password"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Msg: "unauthorized"}
	ErrValidation          = &Error{Kind: KindValidation, Msg: "validation error"}
)

// NewError returns an error of the given kind with a caller-facing message.
func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Unavailable wraps a transport or commit failure of the ledger store.
func Unavailable(op string, err error) error {
	return &Error{Kind: KindStoreUnavailable, Msg: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the caller may retry the same input unchanged.
func IsRetryable(err error) bool {
	return KindOf(err) == KindStoreUnavailable
}
