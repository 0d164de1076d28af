package types

type contextKey string

const UserEmailKey contextKey = "user_email"
