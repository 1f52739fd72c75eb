package ledger

// Schema creates the sale ledger. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS auction_sales (
    id             UUID PRIMARY KEY,
    round_id       TEXT        NOT NULL UNIQUE,
    participant_id TEXT        NOT NULL,
    nickname       TEXT        NOT NULL,
    price          INTEGER     NOT NULL CHECK (price >= 0),
    budget_after   INTEGER     NOT NULL CHECK (budget_after >= 0),
    bid_count      INTEGER     NOT NULL DEFAULT 0,
    trigger        TEXT        NOT NULL,
    detail         JSONB,
    sold_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS auction_sales_sold_at_idx ON auction_sales (sold_at DESC);
`
