package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionroom/go/internal/auction/ledger/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	rows      map[string]db.Sale
	err       error
	lastLimit int32
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{rows: make(map[string]db.Sale)}
}

func (f *fakeQuerier) InsertSale(ctx context.Context, arg db.InsertSaleParams) (db.Sale, error) {
	if f.err != nil {
		return db.Sale{}, f.err
	}
	if _, ok := f.rows[arg.RoundID]; ok {
		return db.Sale{}, sql.ErrNoRows
	}
	row := db.Sale(arg)
	f.rows[arg.RoundID] = row
	return row, nil
}

func (f *fakeQuerier) ListRecentSales(ctx context.Context, limit int32) ([]db.Sale, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]db.Sale, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.After(out[j].SoldAt) })
	if len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func TestRepository_RecordSale(t *testing.T) {
	q := newFakeQuerier()
	repo := NewRepository(q)
	soldAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	saved, err := repo.RecordSale(context.Background(), Sale{
		RoundID:       "r1",
		ParticipantID: "p1",
		Nickname:      "Ari",
		Price:         50,
		BudgetAfter:   50,
		BidCount:      3,
		Trigger:       "timer",
		Detail:        json.RawMessage(`{"price":50}`),
		SoldAt:        soldAt,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, 50, saved.Price)
	assert.JSONEq(t, `{"price":50}`, string(saved.Detail))

	row := q.rows["r1"]
	assert.True(t, row.Detail.Valid)
	assert.Equal(t, int32(3), row.BidCount)
	assert.Equal(t, soldAt, row.SoldAt)
}

func TestRepository_RecordSaleWithoutDetail(t *testing.T) {
	q := newFakeQuerier()
	repo := NewRepository(q)

	saved, err := repo.RecordSale(context.Background(), Sale{RoundID: "r1", Price: 5})
	require.NoError(t, err)
	assert.False(t, q.rows["r1"].Detail.Valid)
	assert.Nil(t, saved.Detail)
}

func TestRepository_DuplicateRound(t *testing.T) {
	repo := NewRepository(newFakeQuerier())

	_, err := repo.RecordSale(context.Background(), Sale{RoundID: "r1", Price: 5})
	require.NoError(t, err)
	_, err = repo.RecordSale(context.Background(), Sale{RoundID: "r1", Price: 9})
	assert.ErrorIs(t, err, ErrDuplicateSale)
}

func TestRepository_WrapsDriverErrors(t *testing.T) {
	q := newFakeQuerier()
	q.err = errors.New("pq: connection refused")
	repo := NewRepository(q)

	_, err := repo.RecordSale(context.Background(), Sale{RoundID: "r1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateSale)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRepository_RecentSales(t *testing.T) {
	q := newFakeQuerier()
	repo := NewRepository(q)
	_, err := repo.RecordSale(context.Background(), Sale{RoundID: "r1", Price: 7, Detail: json.RawMessage(`{}`)})
	require.NoError(t, err)

	sales, err := repo.RecentSales(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, 7, sales[0].Price)
}

func TestRepository_RecentSalesClampsLimit(t *testing.T) {
	q := newFakeQuerier()
	repo := NewRepository(q)

	_, err := repo.RecentSales(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int32(MaxListLimit), q.lastLimit)

	_, err = repo.RecentSales(context.Background(), 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, int32(MaxListLimit), q.lastLimit)
}

func TestRepository_RejectsAmountsBeyondColumnRange(t *testing.T) {
	q := newFakeQuerier()
	repo := NewRepository(q)

	_, err := repo.RecordSale(context.Background(), Sale{RoundID: "r1", Price: 3000000000})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = repo.RecordSale(context.Background(), Sale{RoundID: "r2", Price: 10, BudgetAfter: 5000000000})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = repo.RecordSale(context.Background(), Sale{RoundID: "r3", Price: -1})
	assert.ErrorIs(t, err, ErrOutOfRange)

	assert.Empty(t, q.rows, "nothing reaches the table")

	saved, err := repo.RecordSale(context.Background(), Sale{RoundID: "r4", Price: 2147483647})
	require.NoError(t, err)
	assert.Equal(t, 2147483647, saved.Price)
}
