package validator

import (
	"math"
	"net"
	"net/mail"
	"net/url"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/echa/code/iso"
	"github.com/ericlagergren/decimal"
	"golang.org/x/net/idna"

	"github.com/hartzell-stephen-me/hdf5schema/dtype"
	"github.com/hartzell-stephen-me/hdf5schema/tree"
)

// valueConstraints bundles the value-shape keywords shared between
// dataset schemas and AttrSpec.
type valueConstraints struct {
	HasEnum   bool
	Enum      []any
	HasConst  bool
	Const     any
	MinLength *int
	MaxLength *int
	Pattern   *regexp.Regexp
	Format    string
}

func (c valueConstraints) empty() bool {
	return !c.HasEnum && !c.HasConst && c.MinLength == nil && c.MaxLength == nil && c.Pattern == nil && c.Format == ""
}

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

var countryCodes map[string]struct{}

func init() {
	countryCodes = make(map[string]struct{}, len(iso.ISO_3166_1_COUNTRY_CODES))
	for _, c := range iso.ISO_3166_1_COUNTRY_CODES {
		countryCodes[c] = struct{}{}
	}
}

// formatValidators are the named format checks. An unknown
// format name is ignored (not an error), per JSON-Schema tradition, so
// there is no "default" entry — callers that miss the map simply treat
// the format as satisfied.
var formatValidators = map[string]func(string) bool{
	"date-time": func(s string) bool {
		_, err := time.Parse(time.RFC3339, s)
		return err == nil
	},
	"date": func(s string) bool {
		_, err := time.Parse("2006-01-02", s)
		return err == nil
	},
	"time": func(s string) bool {
		_, err := time.Parse("15:04:05.999999999Z07:00", s)
		if err == nil {
			return true
		}
		_, err = time.Parse("15:04:05", s)
		return err == nil
	},
	"email": func(s string) bool {
		_, err := mail.ParseAddress(s)
		return err == nil
	},
	"hostname": func(s string) bool {
		if s == "" {
			return false
		}
		_, err := idna.Lookup.ToASCII(s)
		return err == nil
	},
	"ipv4": func(s string) bool {
		ip := net.ParseIP(s)
		return ip != nil && ip.To4() != nil
	},
	"ipv6": func(s string) bool {
		ip := net.ParseIP(s)
		return ip != nil && ip.To4() == nil
	},
	"uri": func(s string) bool {
		u, err := url.ParseRequestURI(s)
		return err == nil && u.Scheme != ""
	},
	"uuid": func(s string) bool {
		return uuidPattern.MatchString(s)
	},
	"regex": func(s string) bool {
		_, err := regexp.Compile(s)
		return err == nil
	},
	"country-code": func(s string) bool {
		_, ok := countryCodes[s]
		return ok
	},
}

// checkValues applies c against the flat element list of a dataset's
// payload or an attribute's scalar/array value.
// actualDt tells the string-length check whether to count bytes (S<N>)
// or Unicode code points (U<N>).
func checkValues(path string, c valueConstraints, actualDt dtype.Descriptor, values []tree.Value) []ErrorRecord {
	if c.empty() || len(values) == 0 {
		return nil
	}
	var out []ErrorRecord

	if c.HasEnum {
		var bad []tree.Value
		for _, v := range values {
			if !inEnum(v, c.Enum) {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			out = append(out, ErrorRecord{Path: path, Kind: EnumViolation, Message: "value not in enum",
				Context: map[string]any{"values": bad}})
		}
	}

	if c.HasConst {
		var bad []tree.Value
		for _, v := range values {
			if !valueEquals(v, c.Const) {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			out = append(out, ErrorRecord{Path: path, Kind: ConstViolation, Message: "value does not equal const",
				Context: map[string]any{"values": bad}})
		}
	}

	if c.MinLength != nil {
		var bad []tree.Value
		for _, v := range values {
			if s, ok := v.(string); ok && stringLength(s, actualDt) < *c.MinLength {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			out = append(out, ErrorRecord{Path: path, Kind: MinLengthViolation, Message: "string shorter than minLength",
				Context: map[string]any{"values": bad, "minLength": *c.MinLength}})
		}
	}

	if c.MaxLength != nil {
		var bad []tree.Value
		for _, v := range values {
			if s, ok := v.(string); ok && stringLength(s, actualDt) > *c.MaxLength {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			out = append(out, ErrorRecord{Path: path, Kind: MaxLengthViolation, Message: "string longer than maxLength",
				Context: map[string]any{"values": bad, "maxLength": *c.MaxLength}})
		}
	}

	if c.Pattern != nil {
		var bad []tree.Value
		for _, v := range values {
			if s, ok := v.(string); ok && !c.Pattern.MatchString(s) {
				bad = append(bad, v)
			}
		}
		if len(bad) > 0 {
			out = append(out, ErrorRecord{Path: path, Kind: PatternViolation, Message: "string does not match pattern " + c.Pattern.String(),
				Context: map[string]any{"values": bad}})
		}
	}

	if c.Format != "" {
		if check, known := formatValidators[c.Format]; known {
			var bad []tree.Value
			for _, v := range values {
				if s, ok := v.(string); ok && !check(s) {
					bad = append(bad, v)
				}
			}
			if len(bad) > 0 {
				out = append(out, ErrorRecord{Path: path, Kind: FormatViolation, Message: "value does not satisfy format " + c.Format,
					Context: map[string]any{"values": bad, "format": c.Format}})
			}
		}
	}

	return out
}

func stringLength(s string, dt dtype.Descriptor) int {
	if !dt.IsCompound && dt.Simple.Kind == dtype.KindUnicode {
		return utf8.RuneCountInString(s)
	}
	return len(s)
}

func inEnum(v tree.Value, enum []any) bool {
	for _, e := range enum {
		if valueEquals(v, e) {
			return true
		}
	}
	return false
}

// valueEquals compares a tree value against a schema-declared value
// (decoded from JSON, so numbers arrive as float64). Values that are
// both exact integers (a compound-record int64/uint64 field, or a
// whole-number float64 const) are compared bit-for-bit as integers, so
// two distinct int64/uint64 values that would collapse to the same
// float64 beyond 2^53 never wrongly compare equal. Only once either
// side fails to land on an exact integer does the comparison fall back
// to ericlagergren/decimal, which makes genuine float comparisons
// (5.5 vs 5.5) exact with respect to binary float noise; NaN never
// equals anything.
func valueEquals(a, b any) bool {
	if ia, ok := toInt(a); ok {
		if ib, ok := toInt(b); ok {
			return ia.equal(ib)
		}
	}
	af, aIsNum := toFloat(a)
	bf, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		if math.IsNaN(af) || math.IsNaN(bf) {
			return false
		}
		da := new(decimal.Big).SetFloat64(af)
		db := new(decimal.Big).SetFloat64(bf)
		return da.Cmp(db) == 0
	}
	return a == b
}

// intVal is an exact integer in sign-magnitude form, wide enough to
// hold the full int64 and uint64 ranges without the overflow a signed
// int64 would hit on the top half of uint64.
type intVal struct {
	neg bool
	mag uint64
}

func (a intVal) equal(b intVal) bool {
	if a.mag == 0 && b.mag == 0 {
		return true
	}
	return a.neg == b.neg && a.mag == b.mag
}

// toInt extracts an exact integer from v: a native int/int64/uint64,
// or a float64 that carries no fractional part and fits the
// int64/uint64 range, which is the shape a JSON-decoded const/enum
// integer literal takes. A non-whole float64 (or any other type)
// reports ok=false so the caller falls back to float comparison.
func toInt(v any) (intVal, bool) {
	switch n := v.(type) {
	case int:
		return intFromInt64(int64(n)), true
	case int64:
		return intFromInt64(n), true
	case uint64:
		return intVal{mag: n}, true
	case float64:
		if n != math.Trunc(n) {
			return intVal{}, false
		}
		if n >= 0 {
			if n > float64(math.MaxUint64) {
				return intVal{}, false
			}
			return intVal{mag: uint64(n)}, true
		}
		if n < -float64(math.MaxUint64) {
			return intVal{}, false
		}
		return intVal{neg: true, mag: uint64(-n)}, true
	default:
		return intVal{}, false
	}
}

func intFromInt64(n int64) intVal {
	if n < 0 {
		return intVal{neg: true, mag: uint64(-n)}
	}
	return intVal{mag: uint64(n)}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
