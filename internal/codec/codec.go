// Package codec normalizes the encodings a product attribute value may be
// stored in into a flat sequence of discrete strings.
package codec

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// Parse turns a raw stored value into its ordered sequence of values.
//
// Array encodings (a JSON array, or a Postgres array literal) yield one value
// per element. Anything else is split on commas, and a value without commas is
// a single element. Elements are trimmed and empty elements dropped. Parse
// never fails: an encoding that does not decode is treated as plain text.
func Parse(raw *string) []string {
	if raw == nil {
		return nil
	}
	return ParseString(*raw)
}

// ParseString is Parse for a non-nullable input.
func ParseString(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if values, ok := parseJSONArray(s); ok {
		return values
	}
	if values, ok := parseArrayLiteral(s); ok {
		return values
	}
	if strings.Contains(s, ",") {
		return clean(strings.Split(s, ","))
	}
	return []string{s}
}

// Encode renders values in the canonical array form that Parse reads back
// unchanged.
func Encode(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	out, err := sonic.MarshalString(values)
	if err != nil {
		return strings.Join(values, ",")
	}
	return out
}

// numberAPI keeps JSON numbers as their literal text so large integers and
// trailing zeros survive.
var numberAPI = sonic.Config{UseNumber: true}.Froze()

func parseJSONArray(s string) ([]string, bool) {
	if s[0] != '[' || s[len(s)-1] != ']' {
		return nil, false
	}
	var elems []interface{}
	if err := numberAPI.UnmarshalFromString(s, &elems); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		str, ok := elementString(e)
		if !ok {
			continue
		}
		if str = strings.TrimSpace(str); str != "" {
			out = append(out, str)
		}
	}
	return out, true
}

func elementString(e interface{}) (string, bool) {
	switch v := e.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		nested, err := sonic.MarshalString(v)
		if err != nil {
			return "", false
		}
		return nested, true
	}
}

// parseArrayLiteral reads the one-dimensional {a,"b c"} form Postgres uses
// for text[] columns. Quoted elements may contain commas, braces and
// backslash-escaped quotes; an unquoted NULL is a missing element.
func parseArrayLiteral(s string) ([]string, bool) {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, false
	}
	body := s[1 : len(s)-1]
	var out []string
	for i := 0; i <= len(body); {
		for i < len(body) && isSpace(body[i]) {
			i++
		}
		var elem strings.Builder
		quoted := i < len(body) && body[i] == '"'
		if quoted {
			i++
			closed := false
			for i < len(body) && !closed {
				switch c := body[i]; c {
				case '\\':
					if i+1 == len(body) {
						return nil, false
					}
					elem.WriteByte(body[i+1])
					i += 2
				case '"':
					closed = true
					i++
				default:
					elem.WriteByte(c)
					i++
				}
			}
			if !closed {
				return nil, false
			}
			for i < len(body) && isSpace(body[i]) {
				i++
			}
			if i < len(body) && body[i] != ',' {
				return nil, false
			}
		} else {
			for i < len(body) && body[i] != ',' {
				switch c := body[i]; c {
				case '"', '{', '}':
					return nil, false
				case '\\':
					if i+1 == len(body) {
						return nil, false
					}
					elem.WriteByte(body[i+1])
					i += 2
				default:
					elem.WriteByte(c)
					i++
				}
			}
		}
		v := elem.String()
		if !quoted && strings.EqualFold(strings.TrimSpace(v), "NULL") {
			v = ""
		}
		out = append(out, v)
		// Step over the separator; past the end terminates the loop.
		i++
	}
	return clean(out), true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func clean(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeKey is the comparison key used when matching selections against
// parsed values.
func NormalizeKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
