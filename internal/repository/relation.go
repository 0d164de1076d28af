package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Evgen-Mutagen/paymybuddy/internal/model"
)

type RelationRepository interface {
	// Find returns the relation between the two users in either order.
	Find(ctx context.Context, id1, id2 int64) (*model.Relation, error)
	Save(ctx context.Context, relation *model.Relation) error
	ListForUser(ctx context.Context, userID int64) ([]*model.Relation, error)
}

type relationRepository struct {
	q querier
}

const relationSelect = `SELECT r.id, r.user_id_1, r.user_id_2, ua.email, ub.email, r.status, r.created_at
              FROM user_relations r
              JOIN users ua ON ua.id = r.user_id_1
              JOIN users ub ON ub.id = r.user_id_2`

func scanRelation(row interface{ Scan(dest ...any) error }, rel *model.Relation) error {
	return row.Scan(&rel.ID, &rel.UserA, &rel.UserB, &rel.UserAEmail, &rel.UserBEmail, &rel.Status, &rel.CreatedAt)
}

func (r *relationRepository) Find(ctx context.Context, id1, id2 int64) (*model.Relation, error) {
	rel := &model.Relation{}
	query := relationSelect + `
              WHERE (r.user_id_1 = $1 AND r.user_id_2 = $2) OR (r.user_id_1 = $2 AND r.user_id_2 = $1)`
	err := scanRelation(r.q.QueryRowContext(ctx, query, id1, id2), rel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("find relation", err)
	}
	return rel, nil
}

func (r *relationRepository) Save(ctx context.Context, relation *model.Relation) error {
	if relation.Status == "" {
		relation.Status = model.RelationAccepted
	}
	query := `INSERT INTO user_relations (user_id_1, user_id_2, status)
              VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.q.QueryRowContext(ctx, query, relation.UserA, relation.UserB, relation.Status).
		Scan(&relation.ID, &relation.CreatedAt)
	if err != nil {
		return classify("insert relation", err)
	}
	return nil
}

func (r *relationRepository) ListForUser(ctx context.Context, userID int64) ([]*model.Relation, error) {
	query := relationSelect + `
              WHERE r.user_id_1 = $1 OR r.user_id_2 = $1
              ORDER BY r.id`
	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify("list relations", err)
	}
	defer rows.Close()

	var relations []*model.Relation
	for rows.Next() {
		var rel model.Relation
		if err := scanRelation(rows, &rel); err != nil {
			return nil, classify("scan relation", err)
		}
		relations = append(relations, &rel)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("list relations", err)
	}

	return relations, nil
}
