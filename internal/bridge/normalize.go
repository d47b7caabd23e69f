package bridge

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// parseDescriptor turns one loosely-typed sync entry into a Device.
// ok is false when the entry is not an object or lacks a device id or type.
func parseDescriptor(raw any) (Device, bool) {
	obj, isObj := raw.(map[string]any)
	if !isObj {
		return Device{}, false
	}

	id := strings.TrimSpace(stringify(obj["device_id"]))
	typ := strings.TrimSpace(stringify(obj["type"]))
	if id == "" || typ == "" {
		return Device{}, false
	}

	name := id
	if v, present := obj["name"]; present && v != nil {
		name = stringify(v)
	}

	state, _ := obj["state"].(map[string]any)
	if state == nil {
		state = map[string]any{}
	} else {
		state = deepCopyMap(state)
	}

	return Device{
		ID:           id,
		Name:         name,
		Room:         stringify(obj["room"]),
		Type:         typ,
		Capabilities: normalizeCapabilities(obj["capabilities"]),
		State:        state,
	}, true
}

// stringify renders a decoded JSON value as text. nil becomes "".
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case fmt.Stringer:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// normalizeCapabilities accepts the shapes drivers send for capability lists.
//
// A list is used as is. An object (Lua tables with integer keys arrive this
// way) becomes the list of its values ordered by key: digit-only keys first in
// numeric order, then the remaining keys lexically. Anything else is empty.
func normalizeCapabilities(v any) []any {
	switch val := v.(type) {
	case []any:
		return deepCopySlice(val)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return capabilityKeyLess(keys[i], keys[j])
		})
		out := make([]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, deepCopyValue(val[k]))
		}
		return out
	default:
		return []any{}
	}
}

func capabilityKeyLess(a, b string) bool {
	aNum, bNum := isDigits(a), isDigits(b)
	switch {
	case aNum && bNum:
		if c := compareDigits(a, b); c != 0 {
			return c < 0
		}
		return a < b
	case aNum != bNum:
		return aNum
	default:
		return a < b
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// compareDigits compares two digit-only strings as unbounded integers.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Truthy reports whether a decoded JSON value counts as set: false, 0, "",
// null and empty arrays or objects do not.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}

// AckIDs extracts command ids from the acks array of an ack call. Entries
// that are not objects or carry no truthy command_id are skipped; ids are
// rendered as text and trimmed.
func AckIDs(acks []any) []string {
	ids := make([]string, 0, len(acks))
	for _, raw := range acks {
		obj, ok := raw.(map[string]any)
		if !ok || !Truthy(obj["command_id"]) {
			continue
		}
		ids = append(ids, strings.TrimSpace(stringify(obj["command_id"])))
	}
	return ids
}
