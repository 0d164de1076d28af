package repository

import (
	"context"

	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
)

type TransactionRepository interface {
	Save(ctx context.Context, transaction *model.Transaction) error
	ListForUser(ctx context.Context, userID int64) ([]*model.Transaction, error)
}

type transactionRepository struct {
	q querier
}

func (r *transactionRepository) Save(ctx context.Context, transaction *model.Transaction) error {
	query := `INSERT INTO transactions (sender_id, receiver_id, description, amount)
              VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := r.q.QueryRowContext(ctx, query,
		transaction.SenderID,
		transaction.ReceiverID,
		transaction.Description,
		transaction.Amount,
	).Scan(&transaction.ID, &transaction.CreatedAt)
	if err != nil {
		return classify("insert transaction", err)
	}
	return nil
}

func (r *transactionRepository) ListForUser(ctx context.Context, userID int64) ([]*model.Transaction, error) {
	query := `SELECT t.id, t.sender_id, t.receiver_id, s.email, rc.email, t.description, t.amount, t.created_at
              FROM transactions t
              JOIN users s ON s.id = t.sender_id
              JOIN users rc ON rc.id = t.receiver_id
              WHERE t.sender_id = $1 OR t.receiver_id = $1
              ORDER BY t.id`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.SenderID,
			&t.ReceiverID,
			&t.SenderEmail,
			&t.ReceiverEmail,
			&t.Description,
			&t.Amount,
			&t.CreatedAt,
		); err != nil {
			return nil, classify("scan transaction", err)
		}
		transactions = append(transactions, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("list transactions", err)
	}

	return transactions, nil
}
