package factgraph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Type names the kind of value a fact holds.
type Type string

const (
	TypeBoolean    Type = "boolean"
	TypeEnum       Type = "enum"
	TypeString     Type = "string"
	TypeInt        Type = "int"
	TypeDollar     Type = "dollar"
	TypeDate       Type = "date"
	TypeCollection Type = "collection"
)

func (t Type) valid() bool {
	switch t {
	case TypeBoolean, TypeEnum, TypeString, TypeInt, TypeDollar, TypeDate, TypeCollection:
		return true
	}
	return false
}

var (
	ErrUnknownFact   = errors.New("factgraph: unknown fact")
	ErrAbstractPath  = errors.New("factgraph: abstract path")
	ErrUnknownItem   = errors.New("factgraph: unknown collection item")
	ErrNotCollection = errors.New("factgraph: not a collection")
)

// ValueError reports raw input a fact's type could not accept.
type ValueError struct {
	Path   string
	Type   Type
	Raw    string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Dollar is a currency amount kept to the cent.
type Dollar struct {
	decimal.Decimal
}

func (d Dollar) String() string { return d.StringFixed(2) }

// Result is what a read of one fact returns.
type Result struct {
	HasValue bool
	Complete bool
	Value    any
}

// String renders the value in the canonical text form Set accepts.
// It is empty when there is no value.
func (r Result) String() string {
	if !r.HasValue {
		return ""
	}
	return formatValue(r.Value)
}

// Bool reports the value as a boolean and whether it is one.
func (r Result) Bool() (bool, bool) {
	b, ok := r.Value.(bool)
	return b, ok && r.HasValue
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// parse converts raw text into a value of def's type.
func (def *Definition) parse(raw string) (any, error) {
	reject := func(reason string) error {
		return &ValueError{Path: def.Path, Type: def.Type, Raw: raw, Reason: reason}
	}

	switch def.Type {
	case TypeBoolean:
		switch raw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, reject(fmt.Sprintf("%q is not true or false", raw))

	case TypeEnum:
		if !slices.Contains(def.Options, raw) {
			return nil, reject(fmt.Sprintf("%q is not one of the allowed options", raw))
		}
		return raw, nil

	case TypeString:
		return raw, nil

	case TypeInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, reject(fmt.Sprintf("%q is not a whole number", raw))
		}
		return n, nil

	case TypeDollar:
		cleaned := strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(raw), "$"), ",", "")
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return nil, reject(fmt.Sprintf("%q is not a dollar amount", raw))
		}
		if d.Exponent() < -2 {
			return nil, reject("dollar amounts may have at most two decimal places")
		}
		return Dollar{d}, nil

	case TypeDate:
		d, reason := parseDate(raw)
		if reason != "" {
			return nil, reject(reason)
		}
		return d, nil

	case TypeCollection:
		return nil, reject("collections hold items, not values")
	}

	return nil, reject(fmt.Sprintf("unsupported type %q", def.Type))
}

// parseDate accepts "YYYY-M-D" with optional zero padding on month and day.
// Partially assembled input such as "2024--05" is rejected as incomplete.
func parseDate(raw string) (civil.Date, string) {
	parts := strings.Split(raw, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return civil.Date{}, "date is incomplete"
	}
	if len(parts[0]) != 4 {
		return civil.Date{}, "year must have four digits"
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return civil.Date{}, fmt.Sprintf("%q is not a date", raw)
		}
		nums[i] = n
	}

	d := civil.Date{Year: nums[0], Month: time.Month(nums[1]), Day: nums[2]}
	if !d.IsValid() {
		return civil.Date{}, fmt.Sprintf("%q is not a real calendar date", raw)
	}
	return d, ""
}
