package db

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS weighbridge`,
	`CREATE TABLE IF NOT EXISTS weighbridge.weighing_records (
    id                        BIGSERIAL PRIMARY KEY,
    plate_number              TEXT NOT NULL,
    gross_weight              DOUBLE PRECISION,
    tare_weight               DOUBLE PRECISION,
    net_weight                DOUBLE PRECISION NOT NULL DEFAULT 0,
    discount_percent          DOUBLE PRECISION NOT NULL DEFAULT 0,
    net_weight_after_discount BIGINT NOT NULL DEFAULT 0,
    price_per_kg              NUMERIC NOT NULL DEFAULT 0,
    total_amount              NUMERIC NOT NULL DEFAULT 0,
    station_id                TEXT NOT NULL,
    status                    TEXT NOT NULL,
    ts                        TIMESTAMPTZ NOT NULL,
    created_at                TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    version                   INTEGER NOT NULL DEFAULT 1
)`,
	`CREATE INDEX IF NOT EXISTS weighing_records_plate_idx ON weighbridge.weighing_records (plate_number, id DESC)`,
	`CREATE INDEX IF NOT EXISTS weighing_records_station_ts_idx ON weighbridge.weighing_records (station_id, ts DESC)`,
	`CREATE TABLE IF NOT EXISTS weighbridge.station_prices (
    id           BIGSERIAL PRIMARY KEY,
    station_id   TEXT NOT NULL,
    price_per_kg NUMERIC NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS station_prices_station_idx ON weighbridge.station_prices (station_id, id DESC)`,
	`CREATE TABLE IF NOT EXISTS weighbridge.station_discounts (
    station_id       TEXT PRIMARY KEY,
    discount_percent DOUBLE PRECISION NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS weighbridge.delivery_notes (
    id                 BIGSERIAL PRIMARY KEY,
    doc_reference      TEXT NOT NULL,
    vehicle_id         TEXT NOT NULL,
    date               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    weight_in          DOUBLE PRECISION NOT NULL,
    weight_out         DOUBLE PRECISION NOT NULL,
    net_gross          DOUBLE PRECISION NOT NULL DEFAULT 0,
    loose_weight       DOUBLE PRECISION NOT NULL DEFAULT 0,
    loose_weight_price NUMERIC NOT NULL DEFAULT 0,
    bunches            INTEGER NOT NULL DEFAULT 0,
    penalty            DOUBLE PRECISION NOT NULL DEFAULT 0,
    net_weight         DOUBLE PRECISION NOT NULL DEFAULT 0,
    price              NUMERIC NOT NULL DEFAULT 0,
    komidel            NUMERIC NOT NULL,
    fruit_type         TEXT NOT NULL,
    rejected_bunches   INTEGER NOT NULL DEFAULT 0,
    rejected_weight    DOUBLE PRECISION NOT NULL DEFAULT 0,
    total              NUMERIC NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS delivery_notes_date_idx ON weighbridge.delivery_notes (date DESC)`,
	`CREATE TABLE IF NOT EXISTS weighbridge.messages (
    id          BIGSERIAL PRIMARY KEY,
    text        TEXT NOT NULL,
    sender_role TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}
