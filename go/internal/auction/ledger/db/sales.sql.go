package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const insertSale = `-- name: InsertSale :one
INSERT INTO auction_sales (
    id, round_id, participant_id, nickname, price, budget_after, bid_count, trigger, detail, sold_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
ON CONFLICT (round_id) DO NOTHING
RETURNING id, round_id, participant_id, nickname, price, budget_after, bid_count, trigger, detail, sold_at
`

type InsertSaleParams struct {
	ID            uuid.UUID             `json:"id"`
	RoundID       string                `json:"round_id"`
	ParticipantID string                `json:"participant_id"`
	Nickname      string                `json:"nickname"`
	Price         int32                 `json:"price"`
	BudgetAfter   int32                 `json:"budget_after"`
	BidCount      int32                 `json:"bid_count"`
	Trigger       string                `json:"trigger"`
	Detail        pqtype.NullRawMessage `json:"detail"`
	SoldAt        time.Time             `json:"sold_at"`
}

func (q *Queries) InsertSale(ctx context.Context, arg InsertSaleParams) (Sale, error) {
	row := q.db.QueryRowContext(ctx, insertSale,
		arg.ID,
		arg.RoundID,
		arg.ParticipantID,
		arg.Nickname,
		arg.Price,
		arg.BudgetAfter,
		arg.BidCount,
		arg.Trigger,
		arg.Detail,
		arg.SoldAt,
	)
	var i Sale
	err := row.Scan(
		&i.ID,
		&i.RoundID,
		&i.ParticipantID,
		&i.Nickname,
		&i.Price,
		&i.BudgetAfter,
		&i.BidCount,
		&i.Trigger,
		&i.Detail,
		&i.SoldAt,
	)
	return i, err
}

const listRecentSales = `-- name: ListRecentSales :many
SELECT id, round_id, participant_id, nickname, price, budget_after, bid_count, trigger, detail, sold_at
FROM auction_sales
ORDER BY sold_at DESC
LIMIT $1
`

func (q *Queries) ListRecentSales(ctx context.Context, limit int32) ([]Sale, error) {
	rows, err := q.db.QueryContext(ctx, listRecentSales, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Sale
	for rows.Next() {
		var i Sale
		if err := rows.Scan(
			&i.ID,
			&i.RoundID,
			&i.ParticipantID,
			&i.Nickname,
			&i.Price,
			&i.BudgetAfter,
			&i.BidCount,
			&i.Trigger,
			&i.Detail,
			&i.SoldAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
