package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/mcdev12/auctionroom/go/internal/auction/ledger"
	"github.com/mcdev12/auctionroom/go/internal/dbconfig"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ping database: %v\n", err)
		os.Exit(1)
	}

	// 2) Apply the ledger schema
	if _, err := pool.Exec(ctx, ledger.Schema); err != nil {
		fmt.Fprintf(os.Stderr, "apply ledger schema: %v\n", err)
		os.Exit(1)
	}

	// 3) Print summary
	var sales int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM auction_sales`).Scan(&sales); err != nil {
		fmt.Fprintf(os.Stderr, "count sales: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ledger schema ready on %s: %d sales recorded\n", cfg.Database, sales)
}
