package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-recruiter-hub/internal/types"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	// AllPageLimit is the limit forced when the caller passes page=All.
	AllPageLimit = 500
)

// reservedKeys are extracted from the raw query and never become filters.
var reservedKeys = map[string]struct{}{
	"select": {},
	"sort":   {},
	"page":   {},
	"limit":  {},
}

// comparison suffixes recognized in bracket syntax, e.g. pay[gte]=50000.
// Case-sensitive; anything else is dropped.
var filterOps = map[string]types.FilterOp{
	"gt":  types.OpGt,
	"gte": types.OpGte,
	"lt":  types.OpLt,
	"lte": types.OpLte,
	"in":  types.OpIn,
}

// ParseListQuery turns raw query parameters into a store-agnostic ListQuery.
// Soft-deleted rows are filtered out unless the caller supplies an explicit
// deleted value. Unparseable page/limit values fall back to the defaults.
func ParseListQuery(values url.Values) types.ListQuery {
	q := types.ListQuery{
		Deleted: false,
		Page:    DefaultPage,
		Limit:   DefaultLimit,
	}

	for key := range values {
		if _, reserved := reservedKeys[key]; reserved {
			continue
		}
		raw := values.Get(key)

		field, op := splitFilterKey(key)
		if field == "deleted" && op == types.OpEq {
			q.Deleted, _ = strconv.ParseBool(raw)
			continue
		}
		if field == "" {
			continue
		}

		f := types.Filter{Field: field, Op: op, Value: raw}
		if op == types.OpIn {
			f.Values = splitCSV(raw)
			f.Value = ""
		}
		q.Filters = append(q.Filters, f)
	}

	if sel := values.Get("select"); sel != "" {
		q.Select = splitCSV(sel)
	}

	if sort := values.Get("sort"); sort != "" {
		parts := splitCSV(sort)
		for _, p := range parts {
			if strings.HasPrefix(p, "-") {
				q.Sort = append(q.Sort, types.SortKey{Field: strings.TrimPrefix(p, "-"), Desc: true})
			} else {
				q.Sort = append(q.Sort, types.SortKey{Field: p})
			}
		}
		q.SortBy = strings.Join(parts, " ")
	}
	if len(q.Sort) == 0 {
		q.Sort = []types.SortKey{{Field: "createdAt", Desc: true}}
		q.SortBy = "-createdAt"
	}

	if page, err := strconv.Atoi(values.Get("page")); err == nil && page > 0 {
		q.Page = page
	}
	if limit, err := strconv.Atoi(values.Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}
	// Documented quirk: a literal page value of "All" forces the limit to 500
	// regardless of any supplied limit.
	if values.Get("page") == "All" {
		q.Limit = AllPageLimit
	}

	return q
}

// splitFilterKey parses bracket syntax. "pay[gte]" yields ("pay", OpGte);
// a bare key is an equality filter; an unknown operator drops the filter.
func splitFilterKey(key string) (string, types.FilterOp) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, types.OpEq
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", types.OpEq
	}
	op, ok := filterOps[key[open+1:len(key)-1]]
	if !ok {
		return "", types.OpEq
	}
	return key[:open], op
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuildPagination computes the page descriptor from the store's row count.
// Next is present iff page*limit < total rows; prev iff page > 1.
func BuildPagination(page, limit, totalRows int) types.Pagination {
	totalPages := totalRows / limit
	if totalRows%limit != 0 {
		totalPages++
	}

	p := types.Pagination{
		Total:     totalPages,
		TotalRows: totalRows,
		Current:   page,
		Limit:     limit,
	}
	if page*limit < totalRows {
		p.Next = &types.PageRef{Page: page + 1, Limit: limit}
	}
	if page > 1 {
		p.Prev = &types.PageRef{Page: page - 1, Limit: limit}
	}
	return p
}
