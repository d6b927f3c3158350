package postgres

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS categories_name_lower_key ON categories (lower(name))`,

	`CREATE TABLE IF NOT EXISTS items (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		item_code           TEXT NOT NULL UNIQUE,
		price               NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		stock_quantity      INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		low_stock_threshold INTEGER NOT NULL DEFAULT 10 CHECK (low_stock_threshold >= 0),
		category            TEXT,
		expiry_date         DATE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS items_category_idx ON items (category)`,
	`CREATE INDEX IF NOT EXISTS items_name_lower_idx ON items (lower(name))`,

	`CREATE TABLE IF NOT EXISTS sales (
		id             BIGSERIAL PRIMARY KEY,
		sale_date      TIMESTAMPTZ NOT NULL DEFAULT now(),
		total_amount   NUMERIC(12,2) NOT NULL CHECK (total_amount >= 0),
		payment_method TEXT NOT NULL CHECK (payment_method IN ('cash', 'credit', 'mobile_payment')),
		customer_name  TEXT,
		invoice_number TEXT NOT NULL UNIQUE,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS sales_sale_date_idx ON sales (sale_date)`,

	// item_id has no foreign key: deleting an item keeps its sale history.
	`CREATE TABLE IF NOT EXISTS sale_items (
		id          BIGSERIAL PRIMARY KEY,
		sale_id     BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		item_id     BIGINT NOT NULL,
		quantity    INTEGER NOT NULL CHECK (quantity > 0),
		unit_price  NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
		total_price NUMERIC(12,2) NOT NULL CHECK (total_price >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS sale_items_sale_id_idx ON sale_items (sale_id)`,
	`CREATE INDEX IF NOT EXISTS sale_items_item_id_idx ON sale_items (item_id)`,
}

const truncateStatement = `TRUNCATE sale_items, sales, items, categories RESTART IDENTITY CASCADE`
