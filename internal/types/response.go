package types

// PageRef points at an adjacent page in a paginated listing.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination mirrors the envelope API consumers depend on: Total is the
// page count, TotalRows the row count the store reported.
type Pagination struct {
	Total     int      `json:"total"`
	TotalRows int      `json:"totalRows"`
	Current   int      `json:"current"`
	Limit     int      `json:"limit"`
	Next      *PageRef `json:"next,omitempty"`
	Prev      *PageRef `json:"prev,omitempty"`
}

// ListResponse is the uniform list envelope.
type ListResponse struct {
	Success    bool        `json:"success"`
	Count      int         `json:"count"`
	Pagination Pagination  `json:"pagination"`
	Data       []*Document `json:"data"`
	SortBy     string      `json:"sortBy"`
}

// Response is the uniform single-item envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
