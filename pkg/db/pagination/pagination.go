package pagination

// Page is the limit/offset window parsed from list query strings.
type Page struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// Clamp bounds the window: a zero or negative limit takes the default,
// anything above max is capped, and the offset is floored at zero.
func (p Page) Clamp(def, max int) Page {
	out := p
	if out.Limit <= 0 {
		out.Limit = def
	}
	if out.Limit > max {
		out.Limit = max
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

// Meta describes the window applied to a list response.
type Meta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasNext bool  `json:"has_next"`
}

// NewMeta derives response metadata from the total row count and the
// window that produced the page.
func NewMeta(total int64, page Page) Meta {
	return Meta{
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasNext: int64(page.Offset+page.Limit) < total,
	}
}
