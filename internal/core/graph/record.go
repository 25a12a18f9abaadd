package graph

import (
	"encoding/json"
	"strconv"
	"sync"
)

// Record is an untyped key/value object as decoded from an API response.
type Record map[string]any

// String returns the string value at key, or "" when absent or not a string.
// Numbers are formatted, since the legacy REST API returns some ids as integers.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Int returns the integer value at key, or 0.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Bool returns the boolean value at key, or false.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Record returns the nested record at key, or nil.
func (r Record) Record(key string) Record {
	switch v := r[key].(type) {
	case Record:
		return v
	case map[string]any:
		return Record(v)
	default:
		return nil
	}
}

// Records returns the nested records at key. Both a bare array and the Graph API
// {"data": [...]} envelope are accepted. Non-object elements are skipped.
func (r Record) Records(key string) []Record {
	raw, ok := r[key]
	if !ok {
		return nil
	}
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case []Record:
		return v
	case map[string]any:
		data, _ := v["data"].([]any)
		items = data
	case Record:
		data, _ := v["data"].([]any)
		items = data
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		switch rec := item.(type) {
		case map[string]any:
			out = append(out, Record(rec))
		case Record:
			out = append(out, rec)
		}
	}
	return out
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// List is an ordered, caller-owned collection of records that list fetches fill.
// It is safe for concurrent use.
type List struct {
	mu    sync.RWMutex
	items []Record
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Add appends records to the end of the list.
func (l *List) Add(records ...Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, records...)
}

// Len returns the number of records.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the record at index i, or nil when out of range.
func (l *List) At(i int) Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.items) {
		return nil
	}
	return l.items[i]
}

// Items returns a copy of the records.
func (l *List) Items() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Record, len(l.items))
	copy(out, l.items)
	return out
}

// Reset removes all records.
func (l *List) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
}
