package render

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"text/template"
	"unicode"
)

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		// Membership
		"includes":    Includes,    // includes .allFeatures "auth:jwt"
		"includesAny": IncludesAny, // includesAny .allFeatures "users:mongodb" "users:postgres"

		// Embedding
		"join":        Join,        // join .origins ", "
		"json":        JSON,        // pretty-printed, 2-space indent
		"raw":         Raw,         // value without quoting
		"quotedValue": QuotedValue, // "x" or 'x' → 'x'

		// Type predicates
		"isDefined": IsDefined,
		"isArray":   IsArray,
		"isObject":  IsObject,
		"isString":  IsString,
		"isNumber":  IsNumber,
		"isBoolean": IsBoolean,

		// Case conversion
		"pascalCase": PascalCase, // rate-limit → RateLimit
		"camelCase":  CamelCase,  // rate-limit → rateLimit
		"kebabCase":  KebabCase,  // RateLimit → rate-limit
		"upper":      strings.ToUpper,
		"lower":      strings.ToLower,

		"default": Default,
	}
}

// Includes reports whether array contains value
func Includes(array any, value any) bool {
	v := reflect.ValueOf(array)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if looseEqual(v.Index(i).Interface(), value) {
			return true
		}
	}
	return false
}

// IncludesAny reports whether array contains at least one of values
func IncludesAny(array any, values ...any) bool {
	for _, value := range values {
		if Includes(array, value) {
			return true
		}
	}
	return false
}

// Join renders the elements of array separated by sep (default ", ").
// Non-array input renders as the empty string.
func Join(array any, sep ...string) string {
	separator := ", "
	if len(sep) > 0 {
		separator = sep[0]
	}

	v := reflect.ValueOf(array)
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return ""
	}

	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprint(v.Index(i).Interface())
	}
	return strings.Join(parts, separator)
}

// JSON embeds value as indented JSON
func JSON(value any) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("json helper: %w", err)
	}
	return string(data), nil
}

// Raw embeds value as-is; nil renders empty
func Raw(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

// QuotedValue wraps strings in single quotes, replacing any existing outer quotes.
// Other values pass through unchanged.
func QuotedValue(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if len(s) >= 2 && ((s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"')) {
		s = s[1 : len(s)-1]
	}
	return "'" + s + "'"
}

func IsDefined(value any) bool {
	return value != nil
}

func IsArray(value any) bool {
	k := kindOf(value)
	return k == reflect.Slice || k == reflect.Array
}

func IsObject(value any) bool {
	k := kindOf(value)
	return k == reflect.Map || k == reflect.Struct
}

func IsString(value any) bool {
	return kindOf(value) == reflect.String
}

func IsNumber(value any) bool {
	_, ok := toFloat(value)
	return ok
}

func IsBoolean(value any) bool {
	return kindOf(value) == reflect.Bool
}

// Default returns defaultVal when val is nil, an empty string or an empty collection
func Default(defaultVal, val any) any {
	if val == nil {
		return defaultVal
	}
	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		if v.Len() == 0 {
			return defaultVal
		}
	}
	return val
}

func kindOf(value any) reflect.Kind {
	if value == nil {
		return reflect.Invalid
	}
	return reflect.TypeOf(value).Kind()
}

// looseEqual compares numbers by value so a JSON float64 matches a template int literal
func looseEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(value any) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}

// words splits an identifier on -, _, :, / and spaces, and at lower→upper boundaries
func words(s string) []string {
	var out []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			out = append(out, string(cur))
			cur = cur[:0]
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '-' || r == '_' || r == ':' || r == '/' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}

// PascalCase converts kebab, snake or camel case to PascalCase
// Examples: users → Users, rate-limit → RateLimit, auth:jwt → AuthJwt
func PascalCase(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

// CamelCase converts to camelCase
// Examples: rate-limit → rateLimit, UserName → userName
func CamelCase(s string) string {
	p := []rune(PascalCase(s))
	if len(p) == 0 {
		return ""
	}
	p[0] = unicode.ToLower(p[0])
	return string(p)
}

// KebabCase converts to kebab-case
// Examples: RateLimit → rate-limit, user_name → user-name
func KebabCase(s string) string {
	ws := words(s)
	for i, w := range ws {
		ws[i] = strings.ToLower(w)
	}
	return strings.Join(ws, "-")
}
