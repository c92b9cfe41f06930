package anncsu

import (
	"net/url"
	"strconv"
	"strings"
)

// Params is the filter mapping sent to a lookup endpoint. Values use the
// PostgREST operator syntax the service understands ("eq.058",
// "ilike.*roma*", "name.asc").
type Params struct {
	values url.Values
}

// NewParams returns an empty filter mapping.
func NewParams() *Params {
	return &Params{values: url.Values{}}
}

// Eq adds an equality filter. Empty values are skipped so optional scopes
// can be passed through unconditionally.
func (p *Params) Eq(column, value string) *Params {
	if value != "" {
		p.values.Set(column, "eq."+value)
	}
	return p
}

// ILike adds a case-insensitive contains filter.
func (p *Params) ILike(column, query string) *Params {
	p.values.Set(column, "ilike.*"+query+"*")
	return p
}

// Order sets the ordering, ascending on each column in turn.
func (p *Params) Order(columns ...string) *Params {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, c+".asc")
	}
	p.values.Set("order", strings.Join(parts, ","))
	return p
}

// Limit caps the number of returned records. Non-positive n is ignored.
func (p *Params) Limit(n int) *Params {
	if n > 0 {
		p.values.Set("limit", strconv.Itoa(n))
	}
	return p
}

// Encode renders the query string with keys sorted.
func (p *Params) Encode() string {
	return p.values.Encode()
}
