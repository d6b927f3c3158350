package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/logger"
	"ministore/internal/store"
)

var tracer = otel.Tracer("ministore/store/postgres")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	itemColumns = []string{
		"id", "name", "item_code", "price", "stock_quantity", "low_stock_threshold",
		"category", "expiry_date", "created_at", "updated_at",
	}
	categoryColumns = []string{"id", "name", "created_at"}
	saleColumns     = []string{
		"id", "sale_date", "total_amount", "payment_method", "customer_name",
		"invoice_number", "created_at", "updated_at",
	}
)

var (
	returningItem     = "RETURNING " + strings.Join(itemColumns, ", ")
	returningCategory = "RETURNING " + strings.Join(categoryColumns, ", ")
	returningSale     = "RETURNING " + strings.Join(saleColumns, ", ")
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Repository = (*Store)(nil)

type Option func(*Store)

// WithClock replaces time.Now for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) Initialize(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return internalErr("apply schema", err)
		}
	}
	return nil
}

func (s *Store) Cleanup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, truncateStatement); err != nil {
		return internalErr("truncate tables", err)
	}
	return nil
}

func (s *Store) HealthCheck(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{Timestamp: s.timestamp()}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		status.Status = domain.HealthUnhealthy
		status.Message = fmt.Sprintf("postgres unreachable: %v", err)
		return status
	}

	stats := s.db.Stats()
	status.Status = domain.HealthHealthy
	status.Message = fmt.Sprintf("postgres: %d open connections, %d in use", stats.OpenConnections, stats.InUse)
	return status
}

func (s *Store) GetItems(ctx context.Context, q domain.ItemQuery) (domain.ItemPage, error) {
	q = store.NormalizeItemQuery(q)

	where := sq.And{}
	if q.Search != "" {
		pattern := likePattern(q.Search)
		where = append(where, sq.Or{sq.ILike{"name": pattern}, sq.ILike{"item_code": pattern}})
	}
	if q.Category != "" {
		where = append(where, sq.Eq{"category": q.Category})
	}

	countQ := psql.Select("COUNT(*)").From("items")
	listQ := psql.Select(itemColumns...).From("items").
		OrderBy(itemOrder(q.SortBy, q.SortOrder)...).
		Limit(uint64(q.Limit)).
		Offset(uint64((q.Page - 1) * q.Limit))
	if len(where) > 0 {
		countQ = countQ.Where(where)
		listQ = listQ.Where(where)
	}

	total, err := s.count(ctx, countQ)
	if err != nil {
		return domain.ItemPage{}, err
	}
	items, err := selectAll[domain.Item](ctx, s.db, listQ)
	if err != nil {
		return domain.ItemPage{}, internalErr("list items", err)
	}
	return domain.ItemPage{Items: items, Pagination: store.NewPagination(q.Page, q.Limit, total)}, nil
}

func itemOrder(sortBy, order string) []string {
	dir := "ASC"
	if order == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case store.SortByName:
		return []string{`lower(name) COLLATE "C" ` + dir, "id ASC"}
	case store.SortByCreatedAt:
		return []string{"created_at " + dir, "id ASC"}
	case store.SortByPrice:
		return []string{"price " + dir, "id ASC"}
	case store.SortByStockQuantity:
		return []string{"stock_quantity " + dir, "id ASC"}
	}
	return []string{"id ASC"}
}

func (s *Store) GetItemByID(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := get[domain.Item](ctx, s.db, selectItems().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, notFoundOr(err, "item", id)
	}
	return item, nil
}

func (s *Store) GetItemByCode(ctx context.Context, code string) (*domain.Item, error) {
	code = store.NormalizeCode(code)
	item, err := get[domain.Item](ctx, s.db, selectItems().Where(sq.Eq{"item_code": code}))
	if err != nil {
		return nil, notFoundOr(err, "item", code)
	}
	return item, nil
}

func (s *Store) CreateItem(ctx context.Context, in domain.ItemInput) (*domain.Item, error) {
	in = store.NormalizeItemInput(in)
	now := s.timestamp()
	item := domain.Item{
		Name:              in.Name,
		ItemCode:          in.ItemCode,
		Price:             in.Price,
		StockQuantity:     in.StockQuantity,
		LowStockThreshold: *in.LowStockThreshold,
		Category:          in.Category,
		ExpiryDate:        in.ExpiryDate,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.CheckItem(item); err != nil {
		return nil, err
	}

	b := psql.Insert("items").
		Columns("name", "item_code", "price", "stock_quantity", "low_stock_threshold", "category", "expiry_date", "created_at", "updated_at").
		Values(item.Name, item.ItemCode, item.Price, item.StockQuantity, item.LowStockThreshold, item.Category, item.ExpiryDate, now, now).
		Suffix(returningItem)
	created, err := get[domain.Item](ctx, s.db, b)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.NewConflict("item", "item_code", item.ItemCode)
		}
		return nil, internalErr("create item", err)
	}
	return created, nil
}

func (s *Store) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	patch = store.NormalizeItemPatch(patch)

	var out *domain.Item
	err := s.withTx(ctx, "update_item", func(ctx context.Context, tx *sql.Tx) error {
		current, err := get[domain.Item](ctx, tx, selectItems().Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
		if err != nil {
			return notFoundOr(err, "item", id)
		}

		updated := *current
		patch.Merge(&updated)
		updated.UpdatedAt = s.timestamp()
		if err := store.CheckItem(updated); err != nil {
			return err
		}

		b := psql.Update("items").
			SetMap(map[string]any{
				"name":                updated.Name,
				"item_code":           updated.ItemCode,
				"price":               updated.Price,
				"stock_quantity":      updated.StockQuantity,
				"low_stock_threshold": updated.LowStockThreshold,
				"category":            updated.Category,
				"expiry_date":         updated.ExpiryDate,
				"updated_at":          updated.UpdatedAt,
			}).
			Where(sq.Eq{"id": id}).
			Suffix(returningItem)
		out, err = get[domain.Item](ctx, tx, b)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.NewConflict("item", "item_code", updated.ItemCode)
			}
			return internalErr("update item", err)
		}
		return nil
	})
	return out, err
}

func (s *Store) DeleteItem(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := get[domain.Item](ctx, s.db, psql.Delete("items").Where(sq.Eq{"id": id}).Suffix(returningItem))
	if err != nil {
		return nil, notFoundOr(err, "item", id)
	}
	return item, nil
}

func (s *Store) SearchItems(ctx context.Context, query string) ([]domain.Item, error) {
	b := selectItems().OrderBy("id ASC").Limit(store.MaxSearchResults)
	if needle := strings.TrimSpace(query); needle != "" {
		pattern := likePattern(needle)
		b = b.Where(sq.Or{
			sq.ILike{"name": pattern},
			sq.ILike{"item_code": pattern},
			sq.ILike{"category": pattern},
		})
	}
	items, err := selectAll[domain.Item](ctx, s.db, b)
	if err != nil {
		return nil, internalErr("search items", err)
	}
	return items, nil
}

func (s *Store) ListAllItems(ctx context.Context) ([]domain.Item, error) {
	items, err := selectAll[domain.Item](ctx, s.db, selectItems().OrderBy("id ASC"))
	if err != nil {
		return nil, internalErr("list all items", err)
	}
	return items, nil
}

// AdjustStock is a single UPDATE, so concurrent adjustments serialize on the
// row lock and none is lost.
func (s *Store) AdjustStock(ctx context.Context, id int64, quantity int, op domain.StockOperation) (*domain.Item, error) {
	if err := store.CheckStockAdjustment(quantity, op); err != nil {
		return nil, err
	}

	b := psql.Update("items").Set("updated_at", s.timestamp())
	switch op {
	case domain.StockSet:
		b = b.Set("stock_quantity", quantity)
	case domain.StockAdd:
		b = b.Set("stock_quantity", sq.Expr("stock_quantity + ?", quantity))
	case domain.StockSubtract:
		b = b.Set("stock_quantity", sq.Expr("GREATEST(stock_quantity - ?, 0)", quantity))
	}

	item, err := get[domain.Item](ctx, s.db, b.Where(sq.Eq{"id": id}).Suffix(returningItem))
	if isOutOfRange(err) {
		return nil, apperror.NewValidation(fmt.Sprintf("stock quantity would exceed %d", domain.MaxStockQuantity)).
			WithDetail("quantity", quantity).
			WithCause(err)
	}
	if err != nil {
		return nil, notFoundOr(err, "item", id)
	}
	return item, nil
}

func (s *Store) GetCategories(ctx context.Context) ([]domain.Category, error) {
	b := psql.Select(categoryColumns...).From("categories").OrderBy(`lower(name) COLLATE "C" ASC`, "id ASC")
	cats, err := selectAll[domain.Category](ctx, s.db, b)
	if err != nil {
		return nil, internalErr("list categories", err)
	}
	return cats, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := get[domain.Category](ctx, s.db, psql.Select(categoryColumns...).From("categories").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, notFoundOr(err, "category", id)
	}
	return c, nil
}

func (s *Store) GetCategoryByName(ctx context.Context, name string) (*domain.Category, error) {
	name = store.NormalizeName(name)
	b := psql.Select(categoryColumns...).From("categories").Where(sq.Expr("lower(name) = lower(?)", name))
	c, err := get[domain.Category](ctx, s.db, b)
	if err != nil {
		return nil, notFoundOr(err, "category", name)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = store.NormalizeName(name)
	if name == "" {
		return nil, apperror.NewValidation("category name is required")
	}

	b := psql.Insert("categories").Columns("name", "created_at").Values(name, s.timestamp()).Suffix(returningCategory)
	c, err := get[domain.Category](ctx, s.db, b)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.NewConflict("category", "name", name)
		}
		return nil, internalErr("create category", err)
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	name = store.NormalizeName(name)
	if name == "" {
		return nil, apperror.NewValidation("category name is required")
	}

	b := psql.Update("categories").Set("name", name).Where(sq.Eq{"id": id}).Suffix(returningCategory)
	c, err := get[domain.Category](ctx, s.db, b)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.NewConflict("category", "name", name)
		}
		return nil, notFoundOr(err, "category", id)
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) (*domain.Category, error) {
	c, err := get[domain.Category](ctx, s.db, psql.Delete("categories").Where(sq.Eq{"id": id}).Suffix(returningCategory))
	if err != nil {
		return nil, notFoundOr(err, "category", id)
	}
	return c, nil
}

func (s *Store) GetSales(ctx context.Context, q domain.SaleQuery) (domain.SalePage, error) {
	q = store.NormalizeSaleQuery(q)

	where := sq.And{}
	if q.PaymentMethod != "" {
		where = append(where, sq.Eq{"payment_method": string(q.PaymentMethod)})
	}
	if q.CustomerName != "" {
		where = append(where, sq.ILike{"customer_name": likePattern(q.CustomerName)})
	}
	where = append(where, dateRange("sale_date", q.StartDate, q.EndDate)...)

	countQ := psql.Select("COUNT(*)").From("sales")
	listQ := selectSales().
		OrderBy("sale_date DESC", "id DESC").
		Limit(uint64(q.Limit)).
		Offset(uint64((q.Page - 1) * q.Limit))
	if len(where) > 0 {
		countQ = countQ.Where(where)
		listQ = listQ.Where(where)
	}

	total, err := s.count(ctx, countQ)
	if err != nil {
		return domain.SalePage{}, err
	}
	sales, err := selectAll[domain.Sale](ctx, s.db, listQ)
	if err != nil {
		return domain.SalePage{}, internalErr("list sales", err)
	}
	return domain.SalePage{Sales: sales, Pagination: store.NewPagination(q.Page, q.Limit, total)}, nil
}

func (s *Store) GetSaleByID(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := get[domain.Sale](ctx, s.db, selectSales().Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, notFoundOr(err, "sale", id)
	}
	return sale, nil
}

func (s *Store) GetSaleWithItems(ctx context.Context, id int64) (*domain.SaleWithItems, error) {
	sale, err := s.GetSaleByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.joinSale(ctx, s.db, *sale)
}

// joinSale loads the lines of sale with their item name and code. Lines whose
// item no longer exists carry the Unknown label.
func (s *Store) joinSale(ctx context.Context, q sqlscan.Querier, sale domain.Sale) (*domain.SaleWithItems, error) {
	b := psql.Select("si.id", "si.sale_id", "si.item_id", "si.quantity", "si.unit_price", "si.total_price").
		Column(sq.Expr("COALESCE(i.name, ?) AS item_name", domain.UnknownItemLabel)).
		Column(sq.Expr("COALESCE(i.item_code, ?) AS item_code", domain.UnknownItemLabel)).
		Column("(i.id IS NULL) AS item_missing").
		From("sale_items si").
		LeftJoin("items i ON i.id = si.item_id").
		Where(sq.Eq{"si.sale_id": sale.ID}).
		OrderBy("si.id ASC")
	lines, err := selectAll[domain.SaleItemDetail](ctx, q, b)
	if err != nil {
		return nil, internalErr("load sale lines", err)
	}
	return &domain.SaleWithItems{Sale: sale, Items: lines}, nil
}

// CreateSale locks the referenced items in id order, inserts the header and
// lines, and decrements stock (floored at zero) in one transaction.
func (s *Store) CreateSale(ctx context.Context, ns domain.NewSale) (*domain.SaleWithItems, error) {
	if err := store.CheckNewSale(ns); err != nil {
		return nil, err
	}

	var out *domain.SaleWithItems
	err := s.withTx(ctx, "create_sale", func(ctx context.Context, tx *sql.Tx) error {
		if err := lockItems(ctx, tx, ns.Lines); err != nil {
			return err
		}

		now := s.timestamp()
		sale := ns.Sale
		if sale.SaleDate.IsZero() {
			sale.SaleDate = now
		}
		b := psql.Insert("sales").
			Columns("sale_date", "total_amount", "payment_method", "customer_name", "invoice_number", "created_at", "updated_at").
			Values(sale.SaleDate, sale.TotalAmount, string(sale.PaymentMethod), sale.CustomerName, sale.InvoiceNumber, now, now).
			Suffix(returningSale)
		created, err := get[domain.Sale](ctx, tx, b)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.NewConflict("sale", "invoice_number", sale.InvoiceNumber)
			}
			return internalErr("insert sale", err)
		}

		for _, line := range ns.Lines {
			insert := psql.Insert("sale_items").
				Columns("sale_id", "item_id", "quantity", "unit_price", "total_price").
				Values(created.ID, line.ItemID, line.Quantity, line.UnitPrice, line.TotalPrice)
			if _, err := execute(ctx, tx, insert); err != nil {
				return internalErr("insert sale line", err)
			}
			decrement := psql.Update("items").
				Set("stock_quantity", sq.Expr("GREATEST(stock_quantity - ?, 0)", line.Quantity)).
				Set("updated_at", now).
				Where(sq.Eq{"id": line.ItemID})
			if _, err := execute(ctx, tx, decrement); err != nil {
				return internalErr("decrement stock", err)
			}
		}

		out, err = s.joinSale(ctx, tx, *created)
		return err
	})
	return out, err
}

func lockItems(ctx context.Context, tx *sql.Tx, lines []domain.SaleItem) error {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ItemID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		return nil
	}

	b := psql.Select("id").From("items").Where(sq.Eq{"id": ids}).OrderBy("id ASC").Suffix("FOR UPDATE")
	found, err := selectAll[int64](ctx, tx, b)
	if err != nil {
		return internalErr("lock items", err)
	}
	for _, l := range lines {
		if _, ok := slices.BinarySearch(found, l.ItemID); !ok {
			return apperror.NewNotFound("item", l.ItemID)
		}
	}
	return nil
}

func (s *Store) UpdateSale(ctx context.Context, id int64, patch domain.SalePatch) (*domain.Sale, error) {
	patch = store.NormalizeSalePatch(patch)

	var out *domain.Sale
	err := s.withTx(ctx, "update_sale", func(ctx context.Context, tx *sql.Tx) error {
		current, err := get[domain.Sale](ctx, tx, selectSales().Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
		if err != nil {
			return notFoundOr(err, "sale", id)
		}

		updated := *current
		patch.Merge(&updated)
		if err := store.CheckSale(updated); err != nil {
			return err
		}

		b := psql.Update("sales").
			SetMap(map[string]any{
				"sale_date":      updated.SaleDate,
				"total_amount":   updated.TotalAmount,
				"payment_method": string(updated.PaymentMethod),
				"customer_name":  updated.CustomerName,
				"updated_at":     s.timestamp(),
			}).
			Where(sq.Eq{"id": id}).
			Suffix(returningSale)
		out, err = get[domain.Sale](ctx, tx, b)
		if err != nil {
			return internalErr("update sale", err)
		}
		return nil
	})
	return out, err
}

func (s *Store) DeleteSale(ctx context.Context, id int64, restock bool) (*domain.Sale, error) {
	var out *domain.Sale
	err := s.withTx(ctx, "delete_sale", func(ctx context.Context, tx *sql.Tx) error {
		sale, err := get[domain.Sale](ctx, tx, selectSales().Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
		if err != nil {
			return notFoundOr(err, "sale", id)
		}

		if restock {
			if _, err := tx.ExecContext(ctx, `
				UPDATE items AS i
				SET stock_quantity = LEAST(i.stock_quantity + returned.qty, $3), updated_at = $2
				FROM (
					SELECT item_id, SUM(quantity) AS qty
					FROM sale_items
					WHERE sale_id = $1
					GROUP BY item_id
				) AS returned
				WHERE i.id = returned.item_id
			`, id, s.timestamp(), domain.MaxStockQuantity); err != nil {
				return internalErr("restock items", err)
			}
		}

		if _, err := execute(ctx, tx, psql.Delete("sales").Where(sq.Eq{"id": id})); err != nil {
			return internalErr("delete sale", err)
		}
		out = sale
		return nil
	})
	return out, err
}

func (s *Store) ListSalesInRange(ctx context.Context, from, to *time.Time) ([]domain.Sale, error) {
	b := selectSales().OrderBy("sale_date ASC", "id ASC")
	if where := dateRange("sale_date", from, to); len(where) > 0 {
		b = b.Where(where)
	}
	sales, err := selectAll[domain.Sale](ctx, s.db, b)
	if err != nil {
		return nil, internalErr("list sales in range", err)
	}
	return sales, nil
}

func (s *Store) ListSaleLinesInRange(ctx context.Context, from, to *time.Time) ([]domain.SaleLine, error) {
	b := psql.Select(
		"si.id", "si.sale_id", "si.item_id", "si.quantity", "si.unit_price", "si.total_price",
		"s.sale_date", "s.payment_method",
	).
		From("sale_items si").
		Join("sales s ON s.id = si.sale_id").
		OrderBy("s.sale_date ASC", "s.id ASC", "si.id ASC")
	if where := dateRange("s.sale_date", from, to); len(where) > 0 {
		b = b.Where(where)
	}
	lines, err := selectAll[domain.SaleLine](ctx, s.db, b)
	if err != nil {
		return nil, internalErr("list sale lines in range", err)
	}
	return lines, nil
}

func selectItems() sq.SelectBuilder {
	return psql.Select(itemColumns...).From("items")
}

func selectSales() sq.SelectBuilder {
	return psql.Select(saleColumns...).From("sales")
}

func dateRange(column string, from, to *time.Time) sq.And {
	out := sq.And{}
	if from != nil {
		out = append(out, sq.GtOrEq{column: *from})
	}
	if to != nil {
		out = append(out, sq.LtOrEq{column: *to})
	}
	return out
}

// withTx runs fn in a read-committed transaction under a tracing span.
// Errors from fn are returned unchanged.
func (s *Store) withTx(ctx context.Context, name string, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	ctx, span := tracer.Start(ctx, "postgres."+name,
		trace.WithAttributes(attribute.String("db.system", "postgresql")))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return internalErr("begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn(ctx, "rollback failed", "tx", name, "error", rbErr)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return internalErr("commit transaction", err)
	}
	return nil
}

func (s *Store) count(ctx context.Context, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, internalErr("build count query", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, internalErr("count rows", err)
	}
	return n, nil
}

func get[T any](ctx context.Context, q sqlscan.Querier, b sq.Sqlizer) (*T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out T
	if err := sqlscan.Get(ctx, q, &out, query, args...); err != nil {
		return nil, err
	}
	return &out, nil
}

func selectAll[T any](ctx context.Context, q sqlscan.Querier, b sq.Sqlizer) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := make([]T, 0)
	if err := sqlscan.Select(ctx, q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execute(ctx context.Context, ex execer, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build statement: %w", err)
	}
	return ex.ExecContext(ctx, query, args...)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns s into a substring pattern, matching %, _ and \ literally.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func notFoundOr(err error, entity string, key any) error {
	if sqlscan.NotFound(err) {
		return apperror.NewNotFound(entity, key)
	}
	if ae, ok := apperror.AsAppError(err); ok {
		return ae
	}
	return apperror.NewInternal(err)
}

func internalErr(op string, err error) error {
	if ae, ok := apperror.AsAppError(err); ok {
		return ae
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}

// isOutOfRange reports a numeric_value_out_of_range failure, raised when an
// INTEGER column would pass its 32-bit limit.
func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22003"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
