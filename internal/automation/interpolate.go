package automation

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Interpolate replaces {{key}} tokens with first-level payload values.
// Tokens without a matching key are left as they are.
func Interpolate(template string, payload map[string]any) string {
	if template == "" {
		return ""
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(token string) string {
		key := placeholderRe.FindStringSubmatch(token)[1]
		v, ok := payload[key]
		if !ok {
			return token
		}
		return stringify(v)
	})
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
