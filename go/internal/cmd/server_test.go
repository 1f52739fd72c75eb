package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionroom/go/internal/auction/ledger"
	ledgerdb "github.com/mcdev12/auctionroom/go/internal/auction/ledger/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getHealth(t *testing.T, url string) (int, healthResponse) {
	t.Helper()
	resp, err := http.Get(url + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth_ReportsRoomState(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	services, err := setupServices(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, services.Outbox, "sinks stay off unless enabled")
	assert.Nil(t, services.Ledger)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, services.Start(ctx))

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	defer srv.Close()

	status, body := getHealth(t, srv.URL)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "idle", body.State)
	assert.Nil(t, body.NATS)
	assert.Nil(t, body.Outbox)

	cancel()
	services.Wait()

	status, body = getHealth(t, srv.URL)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", body.Status)
}

type staticSales []ledgerdb.Sale

func (s staticSales) InsertSale(ctx context.Context, arg ledgerdb.InsertSaleParams) (ledgerdb.Sale, error) {
	return ledgerdb.Sale(arg), nil
}

func (s staticSales) ListRecentSales(ctx context.Context, limit int32) ([]ledgerdb.Sale, error) {
	if int(limit) < len(s) {
		return s[:limit], nil
	}
	return s, nil
}

func TestSalesRoute_OnlyWithLedger(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	services, err := setupServices(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, services.Sales)

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	resp, err := http.Get(srv.URL + "/api/sales")
	require.NoError(t, err)
	resp.Body.Close()
	srv.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	services.Sales = ledger.NewRepository(staticSales{
		{ID: uuid.New(), RoundID: "r2", Nickname: "Bo", Price: 40, SoldAt: time.Now()},
		{ID: uuid.New(), RoundID: "r1", Nickname: "Ari", Price: 25, SoldAt: time.Now().Add(-time.Minute)},
	})
	srv = httptest.NewServer(setupServer(cfg, services).Handler)
	defer srv.Close()

	resp, err = http.Get(srv.URL + "/api/sales?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Sales []ledger.Sale `json:"sales"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sales, 1)
	assert.Equal(t, "r2", body.Sales[0].RoundID)
	assert.Equal(t, 40, body.Sales[0].Price)
}
