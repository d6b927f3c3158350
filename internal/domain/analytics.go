package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockLow        StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities for alert feeds, most urgent first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	default:
		return 3
	}
}

type AlertType string

const (
	AlertOutOfStock   AlertType = "out_of_stock"
	AlertLowStock     AlertType = "low_stock"
	AlertSlowMoving   AlertType = "slow_moving"
	AlertExpired      AlertType = "expired"
	AlertExpiringSoon AlertType = "expiring_soon"
)

type Alert struct {
	Type            AlertType `json:"type"`
	Severity        Severity  `json:"severity"`
	ItemID          int64     `json:"item_id"`
	ItemName        string    `json:"item_name"`
	ItemCode        string    `json:"item_code"`
	StockQuantity   int       `json:"stock_quantity"`
	Threshold       int       `json:"threshold"`
	DaysUntilExpiry *int      `json:"days_until_expiry,omitempty"`
	Message         string    `json:"message"`
}

type ExpiringItem struct {
	Item            Item     `json:"item"`
	DaysUntilExpiry int      `json:"days_until_expiry"`
	Expired         bool     `json:"expired"`
	Severity        Severity `json:"severity"`
}

type TopSellingItem struct {
	ItemID    int64           `json:"item_id"`
	ItemName  string          `json:"item_name"`
	ItemCode  string          `json:"item_code"`
	TotalSold int             `json:"total_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// PeriodSummary covers sales dated within [From, To).
type PeriodSummary struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type CategoryRevenue struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type PaymentMethodRevenue struct {
	Method  PaymentMethod   `json:"method"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DailySales struct {
	Date    string          `json:"date"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DashboardStats struct {
	TotalItems      int               `json:"total_items"`
	TotalSales      int               `json:"total_sales"`
	TotalRevenue    decimal.Decimal   `json:"total_revenue"`
	LowStockItems   int               `json:"low_stock_items"`
	OutOfStockItems int               `json:"out_of_stock_items"`
	Today           PeriodSummary     `json:"today"`
	ThisWeek        PeriodSummary     `json:"this_week"`
	ThisMonth       PeriodSummary     `json:"this_month"`
	TopSellingItems []TopSellingItem  `json:"top_selling_items"`
	RecentSales     []Sale            `json:"recent_sales"`
	SalesByCategory []CategoryRevenue `json:"sales_by_category"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

type SalesReport struct {
	StartDate            string                 `json:"start_date"`
	EndDate              string                 `json:"end_date"`
	TotalSales           int                    `json:"total_sales"`
	TotalRevenue         decimal.Decimal        `json:"total_revenue"`
	SalesByPaymentMethod []PaymentMethodRevenue `json:"sales_by_payment_method"`
	SalesByCategory      []CategoryRevenue      `json:"sales_by_category"`
	DailySales           []DailySales           `json:"daily_sales"`
}

type IntegrityIssueKind string

const (
	IssueDanglingItemRef IntegrityIssueKind = "dangling_item_reference"
	IssueUnknownCategory IntegrityIssueKind = "unknown_category"
	IssueTotalMismatch   IntegrityIssueKind = "total_mismatch"
	IssueNegativeStock   IntegrityIssueKind = "negative_stock"
)

type IntegrityIssue struct {
	Kind     IntegrityIssueKind `json:"kind"`
	EntityID int64              `json:"entity_id"`
	Message  string             `json:"message"`
}

type IntegrityReport struct {
	Healthy   bool             `json:"healthy"`
	Issues    []IntegrityIssue `json:"issues"`
	CheckedAt time.Time        `json:"checked_at"`
}
