package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionroom/go/internal/auction/ledger/db"
	"github.com/sqlc-dev/pqtype"
)

var (
	// ErrDuplicateSale means the round was already recorded
	ErrDuplicateSale = errors.New("sale already recorded for round")
	// ErrOutOfRange means an amount does not fit the ledger's integer columns
	ErrOutOfRange = errors.New("sale amount out of range")
)

type Querier interface {
	InsertSale(ctx context.Context, arg db.InsertSaleParams) (db.Sale, error)
	ListRecentSales(ctx context.Context, limit int32) ([]db.Sale, error)
}

type Repository struct {
	queries Querier
}

func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

func (r *Repository) RecordSale(ctx context.Context, sale Sale) (*Sale, error) {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}

	price, err := toInt32("price", sale.Price)
	if err != nil {
		return nil, err
	}
	budgetAfter, err := toInt32("budget_after", sale.BudgetAfter)
	if err != nil {
		return nil, err
	}
	bidCount, err := toInt32("bid_count", sale.BidCount)
	if err != nil {
		return nil, err
	}

	row, err := r.queries.InsertSale(ctx, db.InsertSaleParams{
		ID:            sale.ID,
		RoundID:       sale.RoundID,
		ParticipantID: sale.ParticipantID,
		Nickname:      sale.Nickname,
		Price:         price,
		BudgetAfter:   budgetAfter,
		BidCount:      bidCount,
		Trigger:       sale.Trigger,
		Detail:        pqtype.NullRawMessage{RawMessage: sale.Detail, Valid: len(sale.Detail) > 0},
		SoldAt:        sale.SoldAt,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("round %s: %w", sale.RoundID, ErrDuplicateSale)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record sale: %w", err)
	}

	return dbSaleToModel(row), nil
}

// RecentSales returns up to limit sales, newest first
func (r *Repository) RecentSales(ctx context.Context, limit int) ([]Sale, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	rows, err := r.queries.ListRecentSales(ctx, int32(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	sales := make([]Sale, 0, len(rows))
	for _, row := range rows {
		sales = append(sales, *dbSaleToModel(row))
	}
	return sales, nil
}

func toInt32(field string, v int) (int32, error) {
	if v < 0 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s %d: %w", field, v, ErrOutOfRange)
	}
	return int32(v), nil
}

func dbSaleToModel(row db.Sale) *Sale {
	sale := &Sale{
		ID:            row.ID,
		RoundID:       row.RoundID,
		ParticipantID: row.ParticipantID,
		Nickname:      row.Nickname,
		Price:         int(row.Price),
		BudgetAfter:   int(row.BudgetAfter),
		BidCount:      int(row.BidCount),
		Trigger:       row.Trigger,
		SoldAt:        row.SoldAt,
	}
	if row.Detail.Valid {
		sale.Detail = row.Detail.RawMessage
	}
	return sale
}
