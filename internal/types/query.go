package types

// FilterOp identifies one of the comparison operators the list query
// understands. Anything outside this set never reaches the store.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGt  FilterOp = "gt"
	OpGte FilterOp = "gte"
	OpLt  FilterOp = "lt"
	OpLte FilterOp = "lte"
	OpIn  FilterOp = "in"
	// OpContains matches JSON arrays holding the value. Route-level only,
	// never produced by the query parser.
	OpContains FilterOp = "contains"
)

// Filter is a single field predicate. Values holds the comma-split list for
// the "in" operator; Value holds the operand for everything else.
type Filter struct {
	Field  string
	Op     FilterOp
	Value  string
	Values []string
}

type SortKey struct {
	Field string
	Desc  bool
}

// ListQuery is the parsed, store-agnostic representation of one list
// request. It is built per request and discarded after producing a page.
type ListQuery struct {
	Filters []Filter
	// Deleted is the effective soft-delete filter. It defaults to false so
	// soft-deleted rows stay invisible unless the caller asked for them.
	Deleted bool
	Select  []string
	Sort    []SortKey
	// SortBy echoes the sort expression back in the response envelope.
	SortBy   string
	Page     int
	Limit    int
	Populate []string
}

// Offset is the number of rows skipped before the current page.
func (q ListQuery) Offset() int { return (q.Page - 1) * q.Limit }
