package cache

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// MaxKeyLength is the longest key FoldKey leaves untouched.
	MaxKeyLength = 500
	// foldedPrefixLength is how much of an over-long key survives folding.
	foldedPrefixLength = 400
)

var (
	// ErrInvalidTemplate is returned when a key format cannot be parsed.
	ErrInvalidTemplate = errors.New("cache: invalid key template")
	// ErrMissingParam is returned when a template placeholder has no bound value.
	ErrMissingParam = errors.New("cache: missing key template parameter")
)

// reserved bytes cannot appear in template literals. '%' is the escape byte,
// '#' marks folded keys and '~' separates dict keys from raw keys.
const reserved = "%#~"

// nilParam is the rendering of a nil param. EscapeValue only ever emits '%'
// followed by two hex digits, so no escaped value can produce it.
const nilParam = "%nil"

type segment struct {
	text  string
	param bool
}

// KeyTemplate renders cache keys like "team_list_{page}" from bound params.
// Placeholders are written {name}; "{{" and "}}" produce literal braces.
type KeyTemplate struct {
	format   string
	segments []segment
	names    []string
}

// ParseKeyTemplate parses and validates format.
//
// Two placeholders must be separated by a literal containing at least one
// byte outside [A-Za-z0-9]. Together with EscapeValue this makes rendering
// injective over serialized values: params whose serializations differ
// always produce distinct keys. With the default serializer that covers
// distinct values of the same type and nil versus any non-nil value; values
// of different types that print alike (1 and "1") share a key.
func ParseKeyTemplate(format string) (*KeyTemplate, error) {
	if format == "" {
		return nil, fmt.Errorf("%w: empty format", ErrInvalidTemplate)
	}

	t := &KeyTemplate{format: format}
	seen := make(map[string]bool)
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '{' && i+1 < len(format) && format[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(format) && format[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, fmt.Errorf("%w: unmatched '}' at %d in %q", ErrInvalidTemplate, i, format)
		case c == '{':
			end := strings.IndexByte(format[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at %d in %q", ErrInvalidTemplate, i, format)
			}
			name := format[i+1 : i+1+end]
			if !validParamName(name) {
				return nil, fmt.Errorf("%w: bad placeholder %q in %q", ErrInvalidTemplate, name, format)
			}
			if len(t.segments) > 0 && t.segments[len(t.segments)-1].param && !hasSeparator(lit.String()) {
				return nil, fmt.Errorf("%w: placeholders must be separated by a non-alphanumeric literal in %q", ErrInvalidTemplate, format)
			}
			flush()
			t.segments = append(t.segments, segment{text: name, param: true})
			if !seen[name] {
				seen[name] = true
				t.names = append(t.names, name)
			}
			i += end + 1
		case strings.IndexByte(reserved, c) >= 0:
			return nil, fmt.Errorf("%w: reserved byte %q in %q", ErrInvalidTemplate, c, format)
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return t, nil
}

// MustParseKeyTemplate is like ParseKeyTemplate but panics on error.
func MustParseKeyTemplate(format string) *KeyTemplate {
	t, err := ParseKeyTemplate(format)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template as written.
func (t *KeyTemplate) String() string {
	return t.format
}

// Placeholders lists the placeholder names in order of first appearance.
func (t *KeyTemplate) Placeholders() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Render substitutes params into the template. Values are formatted by
// serializer and then escaped with EscapeValue.
func (t *KeyTemplate) Render(serializer KeySerializer, params map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(t.format) + 16)

	for _, seg := range t.segments {
		if !seg.param {
			b.WriteString(seg.text)
			continue
		}
		v, ok := params[seg.text]
		if !ok {
			return "", fmt.Errorf("%w: %q in %q", ErrMissingParam, seg.text, t.format)
		}
		b.WriteString(encodeParam(serializer, v))
	}

	return b.String(), nil
}

// EscapeValue percent-escapes every byte outside [A-Za-z0-9].
func EscapeValue(s string) string {
	const hex = "0123456789ABCDEF"

	clean := true
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlnum(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

// FoldKey keeps keys within MaxKeyLength. Longer keys are cut to a prefix and
// suffixed with '#' and the xxhash64 of the full key.
func FoldKey(key string) string {
	if len(key) <= MaxKeyLength {
		return key
	}
	return fmt.Sprintf("%s#%016x", key[:foldedPrefixLength], xxhash.Sum64String(key))
}

// DefaultKey builds a key for kinds without a template: name followed by
// every param as escaped "name=value", in sorted name order.
func DefaultKey(serializer KeySerializer, name string, params map[string]any) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)

	args := make([]any, len(names))
	for i, k := range names {
		args[i] = EscapeValue(k) + "=" + encodeParam(serializer, params[k])
	}
	return serializer.SerializeKey(name, args...)
}

// encodeParam renders one value for use inside a key: nil becomes nilParam,
// anything else is serialized and escaped.
func encodeParam(serializer KeySerializer, v any) string {
	if isNilParam(v) {
		return nilParam
	}
	return EscapeValue(serializer.SerializeValue(v))
}

func isNilParam(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func validParamName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' || isAlnum(c) {
			continue
		}
		return false
	}
	return name[0] < '0' || name[0] > '9'
}

func hasSeparator(literal string) bool {
	for i := 0; i < len(literal); i++ {
		if !isAlnum(literal[i]) {
			return true
		}
	}
	return false
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
