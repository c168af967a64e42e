// Package identity resolves the many shapes a person reference takes in a
// family-tree export down to one canonical string.
package identity

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ProbeKeys are the identity-like fields looked up, in order, when a reference
// is an object rather than a scalar.
var ProbeKeys = []string{"id", "value", "personId", "person_id"}

// Normalize returns the trimmed identity carried by v. The boolean is false
// when v carries no usable identity: nil, an empty string after trimming, an
// object without any probe key, or a shape that is neither scalar nor object.
func Normalize(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case map[string]any:
		for _, key := range ProbeKeys {
			if inner, ok := t[key]; ok && inner != nil {
				return Normalize(inner)
			}
		}
		return "", false
	case string:
		return nonEmpty(t)
	case json.Number:
		return nonEmpty(t.String())
	case float64:
		return nonEmpty(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return nonEmpty(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// NormalizeAll normalizes every entry of a declared reference list, skipping
// entries that carry no identity. Non-list inputs yield nil.
func NormalizeAll(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		if id, ok := Normalize(entry); ok {
			out = append(out, id)
		}
	}
	return out
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}
