package records

import "strings"

// IDField is the store-assigned identifier key.
const IDField = "_id"

// Record is a flat document as read back from a collection. The identifier, when
// projected, is always rendered as a string.
type Record map[string]any

func (r Record) ID() string {
	if r == nil {
		return ""
	}
	s, _ := r[IDField].(string)
	return s
}

// Field is one populated column of a Row.
type Field struct {
	Key   string
	Value any
}

// Row is an ordered flat record headed for insertion. Column order follows the
// source file header.
type Row []Field

func (r Row) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

func (r Row) Keys() []string {
	out := make([]string, 0, len(r))
	for _, f := range r {
		out = append(out, f.Key)
	}
	return out
}

func (r Row) Map() Record {
	out := make(Record, len(r))
	for _, f := range r {
		out[f.Key] = f.Value
	}
	return out
}

// Filter is a store-neutral predicate. Search matches any of SearchFields as a
// case-insensitive substring; Equals requires each field to equal its value,
// ignoring letter case and surrounding whitespace.
type Filter struct {
	Search       string
	SearchFields []string
	Equals       map[string]string
}

func (f Filter) HasSearch() bool {
	return strings.TrimSpace(f.Search) != "" && len(f.SearchFields) > 0
}

type SortField struct {
	Field string
	Desc  bool
}

// Query bundles a filter with paging, ordering and projection. Limit <= 0 means no
// limit. Only, when set, restricts the projection to those fields.
type Query struct {
	Filter  Filter
	Sort    []SortField
	Skip    int64
	Limit   int64
	Exclude []string
	Only    []string
}

// Page is a paginated slice of a collection.
type Page struct {
	Data       []Record `json:"data"`
	Page       int      `json:"page"`
	TotalPages int      `json:"totalPages"`
	Total      int64    `json:"total"`
}

// TotalPages is ceil(total/limit); 0 when limit is not positive.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
