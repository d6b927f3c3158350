package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ministore/internal/domain"
)

func codes(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field+":"+e.Code)
	}
	return out
}

func TestRequiredShortCircuitsRemainingRules(t *testing.T) {
	rule := Rule{Field: "name", Required: true, Type: TypeString, MinLength: intp(3)}

	errs := ValidateField(rule, nil, false)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeRequired, errs[0].Code)

	errs = ValidateField(rule, "   ", true)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeRequired, errs[0].Code)
}

func TestOptionalMissingFieldIsSkipped(t *testing.T) {
	rule := Rule{Field: "category", Type: TypeString, MaxLength: intp(2)}
	assert.Empty(t, ValidateField(rule, nil, false))
	assert.Empty(t, ValidateField(rule, "", true))
}

func TestAllViolationsForAFieldAreCollected(t *testing.T) {
	rule := Rule{
		Field:     "code",
		Type:      TypeString,
		MaxLength: intp(3),
		Pattern:   itemCodePattern,
		Enum:      []string{"AB", "CD"},
	}
	errs := ValidateField(rule, "#bad-code", true)
	assert.Equal(t, []string{"code:TOO_LONG", "code:INVALID_FORMAT", "code:INVALID_ENUM"}, codes(errs))
}

func TestTypeChecks(t *testing.T) {
	cases := []struct {
		name  string
		rule  Rule
		value any
		want  []string
	}{
		{"string ok", Rule{Field: "f", Type: TypeString}, "x", nil},
		{"string wrong", Rule{Field: "f", Type: TypeString}, 12, []string{"f:INVALID_TYPE"}},
		{"number from json", Rule{Field: "f", Type: TypeNumber}, 1.5, nil},
		{"number from decimal", Rule{Field: "f", Type: TypeNumber}, decimal.RequireFromString("2.50"), nil},
		{"number wrong", Rule{Field: "f", Type: TypeNumber}, "1.5", []string{"f:INVALID_TYPE"}},
		{"integer from json", Rule{Field: "f", Type: TypeInteger}, float64(3), nil},
		{"integer fraction", Rule{Field: "f", Type: TypeInteger, Min: f64(1)}, 2.5, []string{"f:INVALID_TYPE"}},
		{"integer fraction below min", Rule{Field: "f", Type: TypeInteger, Min: f64(1)}, 0.5, []string{"f:INVALID_TYPE", "f:TOO_SMALL"}},
		{"array ok", Rule{Field: "f", Type: TypeArray}, []any{1}, nil},
		{"array wrong", Rule{Field: "f", Type: TypeArray}, "nope", []string{"f:INVALID_TYPE"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateField(tc.rule, tc.value, true)
			if tc.want == nil {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tc.want, codes(errs))
		})
	}
}

func TestNumericAndArrayBounds(t *testing.T) {
	rule := Rule{Field: "n", Type: TypeNumber, Min: f64(0), Max: f64(10)}
	assert.Equal(t, []string{"n:TOO_SMALL"}, codes(ValidateField(rule, -1, true)))
	assert.Equal(t, []string{"n:TOO_LARGE"}, codes(ValidateField(rule, 10.5, true)))
	assert.Empty(t, ValidateField(rule, 0, true))
	assert.Empty(t, ValidateField(rule, 10, true))

	positive := Rule{Field: "total", Type: TypeNumber, ExclusiveMin: f64(0)}
	assert.Equal(t, []string{"total:TOO_SMALL"}, codes(ValidateField(positive, 0, true)))
	assert.Empty(t, ValidateField(positive, 0.01, true))

	list := Rule{Field: "items", Type: TypeArray, MinLength: intp(1), MaxLength: intp(2)}
	assert.Equal(t, []string{"items:TOO_FEW_ITEMS"}, codes(ValidateField(list, []any{}, true)))
	assert.Equal(t, []string{"items:TOO_MANY_ITEMS"}, codes(ValidateField(list, []any{1, 2, 3}, true)))
}

func TestValidateItem(t *testing.T) {
	threshold := -1
	errs := ValidateItem(domain.ItemInput{
		Name:              "",
		ItemCode:          "BEV 001",
		Price:             decimal.NewFromInt(-1),
		StockQuantity:     -5,
		LowStockThreshold: &threshold,
	})
	assert.Equal(t, []string{
		"name:REQUIRED",
		"itemCode:INVALID_FORMAT",
		"price:TOO_SMALL",
		"stockQuantity:TOO_SMALL",
		"lowStockThreshold:TOO_SMALL",
	}, codes(errs))

	ok := ValidateItem(domain.ItemInput{
		Name:          "Mineral Water",
		ItemCode:      "BEV-001",
		Price:         decimal.RequireFromString("0.50"),
		StockQuantity: 100,
	})
	assert.Empty(t, ok)
}

func TestValidateItemPatchOnlyChecksProvidedFields(t *testing.T) {
	name := "Cola"
	assert.Empty(t, ValidateItemPatch(domain.ItemPatch{Name: &name}))

	stock := -1
	assert.Equal(t, []string{"stockQuantity:TOO_SMALL"}, codes(ValidateItemPatch(domain.ItemPatch{StockQuantity: &stock})))
}

func saleLine(itemID int64, qty int, unit, total string) domain.SaleItemInput {
	return domain.SaleItemInput{
		ItemID:     itemID,
		Quantity:   qty,
		UnitPrice:  decimal.RequireFromString(unit),
		TotalPrice: decimal.RequireFromString(total),
	}
}

func TestSaleTotalReconciliation(t *testing.T) {
	in := domain.SaleInput{
		TotalAmount:   decimal.RequireFromString("21.98"),
		PaymentMethod: domain.PaymentCash,
		Items:         []domain.SaleItemInput{saleLine(1, 2, "10.99", "21.98")},
	}
	assert.Empty(t, ValidateSale(in))

	in.TotalAmount = decimal.RequireFromString("25.00")
	errs := ValidateSale(in)
	assert.Equal(t, []string{"totalAmount:CALCULATION_MISMATCH"}, codes(errs))
}

func TestSaleToleranceIsInclusive(t *testing.T) {
	in := domain.SaleInput{
		TotalAmount:   decimal.RequireFromString("21.99"),
		PaymentMethod: domain.PaymentCredit,
		Items:         []domain.SaleItemInput{saleLine(1, 2, "10.99", "21.98")},
	}
	assert.Empty(t, ValidateSale(in))

	in.TotalAmount = decimal.RequireFromString("22.00")
	assert.NotEmpty(t, ValidateSale(in))
}

func TestSaleHeaderAndLineErrors(t *testing.T) {
	in := domain.SaleInput{
		TotalAmount:   decimal.Zero,
		PaymentMethod: "bitcoin",
		Items: []domain.SaleItemInput{
			saleLine(0, 0, "1.00", "0.00"),
			saleLine(2, 1, "-1.00", "-1.00"),
		},
	}
	errs := ValidateSale(in)
	assert.Equal(t, []string{
		"totalAmount:TOO_SMALL",
		"paymentMethod:INVALID_ENUM",
		"items[0].itemId:TOO_SMALL",
		"items[0].quantity:TOO_SMALL",
		"items[1].unitPrice:TOO_SMALL",
		"items[1].totalPrice:TOO_SMALL",
		"totalAmount:CALCULATION_MISMATCH",
	}, codes(errs))
}

func TestSaleLineTotalMustMatchQuantityTimesPrice(t *testing.T) {
	in := domain.SaleInput{
		TotalAmount:   decimal.RequireFromString("20.00"),
		PaymentMethod: domain.PaymentMobilePayment,
		Items:         []domain.SaleItemInput{saleLine(1, 2, "10.00", "25.00")},
	}
	assert.Equal(t, []string{"items[0].totalPrice:CALCULATION_MISMATCH"}, codes(ValidateSale(in)))
}

func TestHeaderOnlySaleIsValid(t *testing.T) {
	in := domain.SaleInput{TotalAmount: decimal.RequireFromString("5"), PaymentMethod: domain.PaymentCash}
	assert.Empty(t, ValidateSale(in))
}

func TestValidateSaleFieldsFromDecodedJSON(t *testing.T) {
	data := map[string]any{
		"totalAmount":   2.5,
		"paymentMethod": "cash",
		"items": []any{
			map[string]any{"itemId": float64(1), "quantity": 2.5, "unitPrice": 1.0, "totalPrice": 2.5},
		},
	}
	errs := ValidateSaleFields(data)
	assert.Equal(t, []string{"items[0].quantity:INVALID_TYPE"}, codes(errs))
}

func TestErrorCarriesFieldErrors(t *testing.T) {
	assert.NoError(t, Error(nil))

	err := Error(ValidateCategory(""))
	require.Error(t, err)
	fields := FieldErrors(err)
	require.Len(t, fields, 1)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, CodeRequired, fields[0].Code)
}

func TestMoneyKeepsCents(t *testing.T) {
	rule := Rule{Field: "price", Type: TypeNumber, Scale: cents}
	assert.Empty(t, ValidateField(rule, decimal.RequireFromString("10.99"), true))
	assert.Empty(t, ValidateField(rule, decimal.RequireFromString("10.990"), true), "trailing zeros are not extra precision")
	assert.Empty(t, ValidateField(rule, 2.5, true))
	assert.Equal(t, []string{"price:INVALID_FORMAT"}, codes(ValidateField(rule, decimal.RequireFromString("0.005"), true)))

	in := domain.SaleInput{
		TotalAmount:   decimal.RequireFromString("1.001"),
		PaymentMethod: domain.PaymentCash,
	}
	assert.Equal(t, []string{"totalAmount:INVALID_FORMAT"}, codes(ValidateSale(in)))
}

func TestQuantitiesStayWithinTheStockCeiling(t *testing.T) {
	in := domain.ItemInput{
		Name:          "Rice",
		ItemCode:      "GRC-001",
		Price:         decimal.RequireFromString("1.00"),
		StockQuantity: domain.MaxStockQuantity + 1,
	}
	assert.Equal(t, []string{"stockQuantity:TOO_LARGE"}, codes(ValidateItem(in)))

	in.StockQuantity = domain.MaxStockQuantity
	assert.Empty(t, ValidateItem(in))
}
