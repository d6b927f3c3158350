// Package validation checks inputs against declarative per-entity rule sets.
//
// Every rule that applies to a field is evaluated and every violation is
// reported; only a missing required field stops evaluation of that field.
// Numeric bounds, lengths and enums are checked with go-playground/validator
// tags so the comparison semantics match the rest of the ecosystem.
package validation

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"ministore/internal/apperror"
)

const (
	CodeRequired            = "REQUIRED"
	CodeInvalidType         = "INVALID_TYPE"
	CodeTooShort            = "TOO_SHORT"
	CodeTooLong             = "TOO_LONG"
	CodeInvalidFormat       = "INVALID_FORMAT"
	CodeTooSmall            = "TOO_SMALL"
	CodeTooLarge            = "TOO_LARGE"
	CodeTooFewItems         = "TOO_FEW_ITEMS"
	CodeTooManyItems        = "TOO_MANY_ITEMS"
	CodeInvalidEnum         = "INVALID_ENUM"
	CodeCalculationMismatch = "CALCULATION_MISMATCH"
)

type FieldType string

const (
	TypeAny     FieldType = ""
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeArray   FieldType = "array"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Rule describes the constraints on one field. Zero values mean "no
// constraint"; bounds are pointers so that 0 is expressible. Scale caps the
// number of decimal places of a number.
type Rule struct {
	Field        string
	Required     bool
	Type         FieldType
	Min          *float64
	ExclusiveMin *float64
	Max          *float64
	MinLength    *int
	MaxLength    *int
	Scale        *int32
	Pattern      *regexp.Regexp
	Enum         []string
}

type Schema struct {
	Entity string
	Rules  []Rule
}

var validate = validator.New()

// Validate runs every rule of the schema against data, in rule order.
func (s Schema) Validate(data map[string]any) []FieldError {
	var errs []FieldError
	for _, rule := range s.Rules {
		value, present := data[rule.Field]
		errs = append(errs, ValidateField(rule, value, present)...)
	}
	return errs
}

// WithPrefix rewrites field names, e.g. "quantity" to "items[2].quantity".
func WithPrefix(prefix string, errs []FieldError) []FieldError {
	for i := range errs {
		errs[i].Field = prefix + errs[i].Field
	}
	return errs
}

func ValidateField(rule Rule, value any, present bool) []FieldError {
	name := rule.Field
	if !present || isBlank(value) {
		if rule.Required {
			return []FieldError{{Field: name, Code: CodeRequired, Message: name + " is required", Value: value}}
		}
		return nil
	}

	var errs []FieldError
	add := func(code, msg string) {
		errs = append(errs, FieldError{Field: name, Code: code, Message: msg, Value: value})
	}

	num, isNum := toFloat(value)
	str, isStr := asString(value)
	arr, isArr := asSlice(value)

	switch rule.Type {
	case TypeString:
		if !isStr {
			add(CodeInvalidType, name+" must be a string")
		}
	case TypeNumber:
		if !isNum || math.IsNaN(num) {
			add(CodeInvalidType, name+" must be a number")
		}
	case TypeInteger:
		if !isNum || !isInteger(value, num) {
			add(CodeInvalidType, name+" must be an integer")
		}
	case TypeArray:
		if !isArr {
			add(CodeInvalidType, name+" must be an array")
		}
	}

	if isStr {
		if rule.MinLength != nil && !check(str, "min="+strconv.Itoa(*rule.MinLength)) {
			add(CodeTooShort, fmt.Sprintf("%s must be at least %d characters", name, *rule.MinLength))
		}
		if rule.MaxLength != nil && !check(str, "max="+strconv.Itoa(*rule.MaxLength)) {
			add(CodeTooLong, fmt.Sprintf("%s must be at most %d characters", name, *rule.MaxLength))
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(str) {
			add(CodeInvalidFormat, name+" has an invalid format")
		}
	}

	if isNum && !math.IsNaN(num) {
		if rule.Min != nil && !check(num, "gte="+formatFloat(*rule.Min)) {
			add(CodeTooSmall, fmt.Sprintf("%s must be at least %s", name, formatFloat(*rule.Min)))
		}
		if rule.ExclusiveMin != nil && !check(num, "gt="+formatFloat(*rule.ExclusiveMin)) {
			add(CodeTooSmall, fmt.Sprintf("%s must be greater than %s", name, formatFloat(*rule.ExclusiveMin)))
		}
		if rule.Max != nil && !check(num, "lte="+formatFloat(*rule.Max)) {
			add(CodeTooLarge, fmt.Sprintf("%s must be at most %s", name, formatFloat(*rule.Max)))
		}
		if rule.Scale != nil {
			if d, ok := ToDecimal(value); ok && !d.Equal(d.Round(*rule.Scale)) {
				add(CodeInvalidFormat, fmt.Sprintf("%s must have at most %d decimal places", name, *rule.Scale))
			}
		}
	}

	if isArr {
		if rule.MinLength != nil && !check(arr, "min="+strconv.Itoa(*rule.MinLength)) {
			add(CodeTooFewItems, fmt.Sprintf("%s must contain at least %d items", name, *rule.MinLength))
		}
		if rule.MaxLength != nil && !check(arr, "max="+strconv.Itoa(*rule.MaxLength)) {
			add(CodeTooManyItems, fmt.Sprintf("%s must contain at most %d items", name, *rule.MaxLength))
		}
	}

	if len(rule.Enum) > 0 && !check(fmt.Sprint(value), enumTag(rule.Enum)) {
		add(CodeInvalidEnum, fmt.Sprintf("%s must be one of: %s", name, strings.Join(rule.Enum, ", ")))
	}

	return errs
}

// Error folds field violations into a single validation AppError, or nil
// when there are none.
func Error(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return apperror.NewValidation(strings.Join(msgs, "; ")).WithDetail("fields", errs)
}

// FieldErrors extracts the violations carried by a validation error.
func FieldErrors(err error) []FieldError {
	ae, ok := apperror.AsAppError(err)
	if !ok || ae.Details == nil {
		return nil
	}
	errs, _ := ae.Details["fields"].([]FieldError)
	return errs
}

func check(value any, tag string) bool {
	return validate.Var(value, tag) == nil
}

func enumTag(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		if strings.ContainsAny(v, " \t") {
			v = "'" + v + "'"
		}
		quoted = append(quoted, v)
	}
	return "oneof=" + strings.Join(quoted, " ")
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := asString(value); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case *decimal.Decimal:
		if v == nil {
			return 0, false
		}
		return v.InexactFloat64(), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

// ToDecimal converts a numeric field value to a decimal for money arithmetic.
func ToDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	}
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func isInteger(value any, f float64) bool {
	switch v := value.(type) {
	case decimal.Decimal:
		return v.IsInteger()
	case float32, float64:
		return !math.IsInf(f, 0) && math.Trunc(f) == f
	}
	return true
}

func asString(value any) (string, bool) {
	if s, ok := value.(string); ok {
		return s, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func asSlice(value any) (any, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return value, true
	}
	return nil, false
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
