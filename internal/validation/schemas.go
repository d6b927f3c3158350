package validation

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"ministore/internal/domain"
)

// TotalTolerance is how far a recomputed total may drift from the stated one.
var TotalTolerance = decimal.RequireFromString("0.01")

var itemCodePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

var (
	maxQuantity = f64(domain.MaxStockQuantity)
	cents       = scale(2)
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func scale(v int32) *int32   { return &v }

func paymentMethodNames() []string {
	out := make([]string, 0, len(domain.PaymentMethods))
	for _, m := range domain.PaymentMethods {
		out = append(out, string(m))
	}
	return out
}

var (
	ItemSchema = Schema{Entity: "item", Rules: []Rule{
		{Field: "name", Required: true, Type: TypeString, MinLength: intp(1), MaxLength: intp(255)},
		{Field: "itemCode", Required: true, Type: TypeString, MinLength: intp(1), MaxLength: intp(50), Pattern: itemCodePattern},
		{Field: "price", Required: true, Type: TypeNumber, Min: f64(0), Max: f64(999999999.99), Scale: cents},
		{Field: "stockQuantity", Required: true, Type: TypeInteger, Min: f64(0), Max: maxQuantity},
		{Field: "lowStockThreshold", Type: TypeInteger, Min: f64(0), Max: maxQuantity},
		{Field: "category", Type: TypeString, MaxLength: intp(100)},
	}}

	CategorySchema = Schema{Entity: "category", Rules: []Rule{
		{Field: "name", Required: true, Type: TypeString, MinLength: intp(1), MaxLength: intp(100)},
	}}

	SaleSchema = Schema{Entity: "sale", Rules: []Rule{
		{Field: "totalAmount", Required: true, Type: TypeNumber, ExclusiveMin: f64(0), Scale: cents},
		{Field: "paymentMethod", Required: true, Type: TypeString, Enum: paymentMethodNames()},
		{Field: "customerName", Type: TypeString, MaxLength: intp(255)},
		{Field: "items", Type: TypeArray},
	}}

	SaleItemSchema = Schema{Entity: "saleItem", Rules: []Rule{
		{Field: "itemId", Required: true, Type: TypeInteger, Min: f64(1)},
		{Field: "quantity", Required: true, Type: TypeInteger, Min: f64(1), Max: maxQuantity},
		{Field: "unitPrice", Required: true, Type: TypeNumber, Min: f64(0), Scale: cents},
		{Field: "totalPrice", Required: true, Type: TypeNumber, Min: f64(0), Scale: cents},
	}}
)

// Partial returns a copy of the schema with every field optional, for
// patch-style updates.
func (s Schema) Partial() Schema {
	rules := make([]Rule, len(s.Rules))
	copy(rules, s.Rules)
	for i := range rules {
		rules[i].Required = false
	}
	return Schema{Entity: s.Entity + "Patch", Rules: rules}
}

var (
	ItemPatchSchema = ItemSchema.Partial()
	SalePatchSchema = SaleSchema.Partial()
)

func ValidateItem(in domain.ItemInput) []FieldError {
	return ItemSchema.Validate(in.Fields())
}

func ValidateItemPatch(p domain.ItemPatch) []FieldError {
	return ItemPatchSchema.Validate(p.Fields())
}

func ValidateCategory(name string) []FieldError {
	return CategorySchema.Validate(map[string]any{"name": name})
}

func ValidateSale(in domain.SaleInput) []FieldError {
	return ValidateSaleFields(in.Fields())
}

// ValidateSaleFields checks a sale header, each of its lines (reported as
// items[i].field), every line's own total, and that the lines add up to the
// header total.
func ValidateSaleFields(data map[string]any) []FieldError {
	errs := SaleSchema.Validate(data)

	raw, ok := data["items"].([]any)
	if !ok || len(raw) == 0 {
		return errs
	}

	sum := decimal.Zero
	computable := true
	for i, entry := range raw {
		prefix := fmt.Sprintf("items[%d].", i)
		line, ok := entry.(map[string]any)
		if !ok {
			errs = append(errs, FieldError{Field: fmt.Sprintf("items[%d]", i), Code: CodeInvalidType, Message: "line item must be an object", Value: entry})
			computable = false
			continue
		}
		errs = append(errs, WithPrefix(prefix, SaleItemSchema.Validate(line))...)

		qty, qok := ToDecimal(line["quantity"])
		unit, uok := ToDecimal(line["unitPrice"])
		if !qok || !uok {
			computable = false
			continue
		}
		expected := qty.Mul(unit)
		sum = sum.Add(expected)

		if total, tok := ToDecimal(line["totalPrice"]); tok && !WithinTolerance(total, expected) {
			errs = append(errs, FieldError{
				Field:   prefix + "totalPrice",
				Code:    CodeCalculationMismatch,
				Message: fmt.Sprintf("line total %s does not match quantity x unit price %s", total.StringFixed(2), expected.StringFixed(2)),
				Value:   line["totalPrice"],
			})
		}
	}

	if total, tok := ToDecimal(data["totalAmount"]); computable && tok {
		if err := ReconcileTotal(sum, total); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// ReconcileTotal compares a recomputed line sum against the stated total.
func ReconcileTotal(computed, stated decimal.Decimal) *FieldError {
	if WithinTolerance(computed, stated) {
		return nil
	}
	return &FieldError{
		Field:   "totalAmount",
		Code:    CodeCalculationMismatch,
		Message: fmt.Sprintf("total amount %s does not match line items total %s", stated.StringFixed(2), computed.StringFixed(2)),
		Value:   stated,
	}
}

func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(TotalTolerance)
}

// LinesTotal sums quantity x unit price over persisted lines.
func LinesTotal(lines []domain.SaleItem) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}
