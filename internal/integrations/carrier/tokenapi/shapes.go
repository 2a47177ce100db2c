package tokenapi

import (
	"strings"
)

// shapeMatch is the discriminated result of probing one response shape.
type shapeMatch struct {
	matcher string
	items   []any
}

type shapeMatcher struct {
	name  string
	match func(root any) (shapeMatch, bool)
}

// Формы ответа проверяются строго по порядку; первая структурно валидная и есть ответ.
var shapeMatchers = []shapeMatcher{
	{name: "array", match: func(root any) (shapeMatch, bool) {
		arr, ok := root.([]any)
		if !ok {
			return shapeMatch{}, false
		}
		return shapeMatch{matcher: "array", items: arr}, true
	}},
	{name: "shipments", match: keyed("shipments")},
	{name: "data", match: keyed("data")},
	{name: "packages", match: keyed("packages")},
}

// keyed matches {"<key>": [...]} or {"<key>": {...}}; null counts as an empty list.
func keyed(key string) func(root any) (shapeMatch, bool) {
	return func(root any) (shapeMatch, bool) {
		m, ok := root.(map[string]any)
		if !ok {
			return shapeMatch{}, false
		}
		v, found := lookup(m, key)
		if !found {
			return shapeMatch{}, false
		}
		switch t := v.(type) {
		case nil:
			return shapeMatch{matcher: key}, true
		case []any:
			return shapeMatch{matcher: key, items: t}, true
		case map[string]any:
			// {"data": {"shipments": [...]}} — вложенная обёртка
			if inner, ok := keyed("shipments")(t); ok {
				inner.matcher = key + "." + inner.matcher
				return inner, true
			}
			return shapeMatch{matcher: key, items: []any{t}}, true
		default:
			return shapeMatch{}, false
		}
	}
}

func probeShapes(root any) (shapeMatch, bool) {
	for _, sm := range shapeMatchers {
		if res, ok := sm.match(root); ok {
			return res, true
		}
	}
	return shapeMatch{}, false
}

func normKey(k string) string {
	return strings.ToLower(strings.NewReplacer("_", "", "-", "").Replace(k))
}

// lookup finds a key ignoring case and separators.
func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, want := range keys {
		nw := normKey(want)
		for k, v := range m {
			if normKey(k) == nw {
				return v, true
			}
		}
	}
	return nil, false
}

func lookupString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := lookup(m, k)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// noDataHint detects explicit "nothing found" answers like {"error":"No data found"}.
func noDataHint(root any) bool {
	m, ok := root.(map[string]any)
	if !ok {
		return false
	}
	msg := strings.ToLower(lookupString(m, "error", "message", "msg", "status", "remarks"))
	for _, hint := range []string{"no data", "not found", "no record", "invalid awb", "no shipment"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
