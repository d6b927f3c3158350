package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCredit        PaymentMethod = "credit"
	PaymentMobilePayment PaymentMethod = "mobile_payment"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCredit, PaymentMobilePayment}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentMobilePayment:
		return true
	}
	return false
}

type StockOperation string

const (
	StockSet      StockOperation = "set"
	StockAdd      StockOperation = "add"
	StockSubtract StockOperation = "subtract"
)

func (op StockOperation) Valid() bool {
	switch op {
	case StockSet, StockAdd, StockSubtract:
		return true
	}
	return false
}

// Apply returns the stock level after op, floored at zero.
func (op StockOperation) Apply(current, quantity int) int {
	var next int
	switch op {
	case StockSet:
		next = quantity
	case StockAdd:
		next = current + quantity
	case StockSubtract:
		next = current - quantity
	default:
		next = current
	}
	if next < 0 {
		return 0
	}
	return next
}

const (
	// MaxStockQuantity is the largest stock level any backend stores.
	MaxStockQuantity         = math.MaxInt32
	DefaultLowStockThreshold = 10
	UnknownItemLabel         = "Unknown"
	UncategorizedLabel       = "Uncategorized"
)

type Item struct {
	ID                int64           `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	ItemCode          string          `json:"item_code" db:"item_code"`
	Price             decimal.Decimal `json:"price" db:"price"`
	StockQuantity     int             `json:"stock_quantity" db:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold" db:"low_stock_threshold"`
	Category          *string         `json:"category" db:"category"`
	ExpiryDate        *time.Time      `json:"expiry_date" db:"expiry_date"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

type ItemInput struct {
	Name              string          `json:"name"`
	ItemCode          string          `json:"item_code"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold *int            `json:"low_stock_threshold,omitempty"`
	Category          *string         `json:"category,omitempty"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
}

// Fields exposes the input as a field map for rule-based validation.
func (in ItemInput) Fields() map[string]any {
	out := map[string]any{
		"name":          in.Name,
		"itemCode":      in.ItemCode,
		"price":         in.Price,
		"stockQuantity": in.StockQuantity,
	}
	if in.LowStockThreshold != nil {
		out["lowStockThreshold"] = *in.LowStockThreshold
	}
	if in.Category != nil {
		out["category"] = *in.Category
	}
	return out
}

// ItemPatch carries a partial update. Nil fields are left untouched; the
// Clear flags null out the optional columns.
type ItemPatch struct {
	Name              *string          `json:"name,omitempty"`
	ItemCode          *string          `json:"item_code,omitempty"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	StockQuantity     *int             `json:"stock_quantity,omitempty"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty"`
	Category          *string          `json:"category,omitempty"`
	ClearCategory     bool             `json:"clear_category,omitempty"`
	ExpiryDate        *time.Time       `json:"expiry_date,omitempty"`
	ClearExpiryDate   bool             `json:"clear_expiry_date,omitempty"`
}

func (p ItemPatch) Fields() map[string]any {
	out := map[string]any{}
	if p.Name != nil {
		out["name"] = *p.Name
	}
	if p.ItemCode != nil {
		out["itemCode"] = *p.ItemCode
	}
	if p.Price != nil {
		out["price"] = *p.Price
	}
	if p.StockQuantity != nil {
		out["stockQuantity"] = *p.StockQuantity
	}
	if p.LowStockThreshold != nil {
		out["lowStockThreshold"] = *p.LowStockThreshold
	}
	if p.Category != nil {
		out["category"] = *p.Category
	}
	return out
}

// Merge applies the patch onto item.
func (p ItemPatch) Merge(item *Item) {
	if p.Name != nil {
		item.Name = *p.Name
	}
	if p.ItemCode != nil {
		item.ItemCode = *p.ItemCode
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.StockQuantity != nil {
		item.StockQuantity = *p.StockQuantity
	}
	if p.LowStockThreshold != nil {
		item.LowStockThreshold = *p.LowStockThreshold
	}
	if p.ClearCategory {
		item.Category = nil
	} else if p.Category != nil {
		c := *p.Category
		item.Category = &c
	}
	if p.ClearExpiryDate {
		item.ExpiryDate = nil
	} else if p.ExpiryDate != nil {
		e := *p.ExpiryDate
		item.ExpiryDate = &e
	}
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type ItemQuery struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	Search    string `json:"search,omitempty"`
	Category  string `json:"category,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

type ItemPage struct {
	Items      []Item     `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type Category struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Sale struct {
	ID            int64           `json:"id" db:"id"`
	SaleDate      time.Time       `json:"sale_date" db:"sale_date"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method" db:"payment_method"`
	CustomerName  *string         `json:"customer_name" db:"customer_name"`
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

type SaleItem struct {
	ID         int64           `json:"id" db:"id"`
	SaleID     int64           `json:"sale_id" db:"sale_id"`
	ItemID     int64           `json:"item_id" db:"item_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
}

// SaleItemDetail is a line joined with the item it references. The item may
// have been deleted since the sale; ItemMissing is then set and the name and
// code read UnknownItemLabel.
type SaleItemDetail struct {
	SaleItem
	ItemName    string `json:"item_name" db:"item_name"`
	ItemCode    string `json:"item_code" db:"item_code"`
	ItemMissing bool   `json:"item_missing" db:"item_missing"`
}

type SaleWithItems struct {
	Sale
	Items []SaleItemDetail `json:"items"`
}

// SaleLine is a line item annotated with its sale header, for analytics.
type SaleLine struct {
	SaleItem
	SaleDate      time.Time     `json:"sale_date" db:"sale_date"`
	PaymentMethod PaymentMethod `json:"payment_method" db:"payment_method"`
}

type SaleItemInput struct {
	ItemID     int64           `json:"item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (in SaleItemInput) Fields() map[string]any {
	return map[string]any{
		"itemId":     in.ItemID,
		"quantity":   in.Quantity,
		"unitPrice":  in.UnitPrice,
		"totalPrice": in.TotalPrice,
	}
}

type SaleInput struct {
	SaleDate      *time.Time      `json:"sale_date,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CustomerName  *string         `json:"customer_name,omitempty"`
	Items         []SaleItemInput `json:"items,omitempty"`
}

func (in SaleInput) Fields() map[string]any {
	out := map[string]any{
		"totalAmount":   in.TotalAmount,
		"paymentMethod": string(in.PaymentMethod),
	}
	if in.CustomerName != nil {
		out["customerName"] = *in.CustomerName
	}
	if in.Items != nil {
		items := make([]any, 0, len(in.Items))
		for _, it := range in.Items {
			items = append(items, it.Fields())
		}
		out["items"] = items
	}
	return out
}

// NewSale is what the processor hands to a backend: a fully formed header
// (invoice number and sale date already set) plus its lines.
type NewSale struct {
	Sale  Sale       `json:"sale"`
	Lines []SaleItem `json:"lines"`
}

type SalePatch struct {
	SaleDate          *time.Time       `json:"sale_date,omitempty"`
	TotalAmount       *decimal.Decimal `json:"total_amount,omitempty"`
	PaymentMethod     *PaymentMethod   `json:"payment_method,omitempty"`
	CustomerName      *string          `json:"customer_name,omitempty"`
	ClearCustomerName bool             `json:"clear_customer_name,omitempty"`
}

func (p SalePatch) Fields() map[string]any {
	out := map[string]any{}
	if p.TotalAmount != nil {
		out["totalAmount"] = *p.TotalAmount
	}
	if p.PaymentMethod != nil {
		out["paymentMethod"] = string(*p.PaymentMethod)
	}
	if p.CustomerName != nil {
		out["customerName"] = *p.CustomerName
	}
	return out
}

func (p SalePatch) Merge(sale *Sale) {
	if p.SaleDate != nil {
		sale.SaleDate = *p.SaleDate
	}
	if p.TotalAmount != nil {
		sale.TotalAmount = *p.TotalAmount
	}
	if p.PaymentMethod != nil {
		sale.PaymentMethod = *p.PaymentMethod
	}
	if p.ClearCustomerName {
		sale.CustomerName = nil
	} else if p.CustomerName != nil {
		c := *p.CustomerName
		sale.CustomerName = &c
	}
}

type SaleQuery struct {
	Page          int           `json:"page"`
	Limit         int           `json:"limit"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	CustomerName  string        `json:"customer_name,omitempty"`
	StartDate     *time.Time    `json:"start_date,omitempty"`
	EndDate       *time.Time    `json:"end_date,omitempty"`
}

type SalePage struct {
	Sales      []Sale     `json:"sales"`
	Pagination Pagination `json:"pagination"`
}

type StockUpdate struct {
	ItemID    int64          `json:"item_id"`
	Quantity  int            `json:"quantity"`
	Operation StockOperation `json:"operation"`
}

type BulkStockFailure struct {
	Index   int         `json:"index"`
	Update  StockUpdate `json:"update"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
}

// BulkStockResult reports a bulk adjustment. Applied is always the prefix of
// the input that took effect; nothing is rolled back on failure.
type BulkStockResult struct {
	Success bool              `json:"success"`
	BatchID string            `json:"batch_id"`
	Applied []Item            `json:"applied"`
	Failed  *BulkStockFailure `json:"failed,omitempty"`
}

const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

type HealthStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
