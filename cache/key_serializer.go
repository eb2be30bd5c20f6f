package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// defaultKeySerializer renders query params into key segments. Scalars render
// as their literal text so that "team_{number}" bound to 254 gives "team_254".
// Collections escape each element, key and value before joining, so their
// delimiters cannot be forged by element contents; map entries are sorted.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey joins name and every rendered arg with KeySeparator.
func (s *defaultKeySerializer) SerializeKey(name string, args ...any) string {
	if len(args) == 0 {
		return name
	}

	var b strings.Builder
	b.WriteString(name)
	for _, arg := range args {
		b.WriteString(KeySeparator)
		b.WriteString(s.SerializeValue(arg))
	}
	return b.String()
}

// SerializeValue renders a single param value.
func (s *defaultKeySerializer) SerializeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return s.serializeReflect(reflect.ValueOf(v))
}

// formatFloat renders integral values without a fraction or exponent, so a
// param decoded from JSON keys the same as its int counterpart.
func formatFloat(f float64, bitSize int) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, bitSize)
}

// serializeReflect handles named scalar types, pointers and collections.
func (s *defaultKeySerializer) serializeReflect(rv reflect.Value) string {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.SerializeValue(rv.Elem().Interface())

	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = encodeParam(s, rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ",") + "]"

	case reflect.Map:
		pairs := make([]string, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, encodeParam(s, iter.Key().Interface())+"="+encodeParam(s, iter.Value().Interface()))
		}
		sort.Strings(pairs)
		return "{" + strings.Join(pairs, ",") + "}"

	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(rv.Interface())

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// Only stable within one process.
		return fmt.Sprintf("%s:%#x", rv.Kind(), rv.Pointer())
	}

	// Structs: exported fields in declaration order.
	data, err := json.Marshal(rv.Interface())
	if err != nil {
		return fmt.Sprintf("%T", rv.Interface())
	}
	return string(data)
}
