package lookup

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// MaxLimit caps the number of rows a single request may return.
const MaxLimit = 1000

// Operators understood in filter values ("column=op.value").
const (
	OpEq    = "eq"
	OpILike = "ilike"
)

// QueryError is a client mistake in a mirror request. Code is a stable
// machine-readable identifier.
type QueryError struct {
	Code string
	Msg  string
}

func (e *QueryError) Error() string { return e.Msg }

func queryErr(code, format string, args ...any) *QueryError {
	return &QueryError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Filter is one "column=op.value" condition.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// OrderTerm is one element of an "order=col.asc,col2.desc" clause.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Query is a parsed mirror request.
type Query struct {
	Filters []Filter
	Order   []OrderTerm
	Limit   int
}

// parseQuery parses PostgREST-style parameters against ep's column
// whitelist. Filters come back sorted by column for stable SQL.
func parseQuery(values url.Values, ep endpoint) (Query, error) {
	var q Query
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, raw := range values[key] {
			switch key {
			case "order":
				terms, err := parseOrder(raw, ep)
				if err != nil {
					return Query{}, err
				}
				q.Order = append(q.Order, terms...)
			case "limit":
				n, err := strconv.Atoi(raw)
				if err != nil || n < 1 {
					return Query{}, queryErr("invalid_limit", "limit must be a positive integer, got %q", raw)
				}
				q.Limit = min(n, MaxLimit)
			default:
				f, err := parseFilter(key, raw, ep)
				if err != nil {
					return Query{}, err
				}
				q.Filters = append(q.Filters, f)
			}
		}
	}
	return q, nil
}

func parseFilter(col, raw string, ep endpoint) (Filter, error) {
	if !ep.hasColumn(col) {
		return Filter{}, queryErr("unknown_column", "%s has no column %q", ep.name, col)
	}
	op, value, ok := strings.Cut(raw, ".")
	if !ok {
		return Filter{}, queryErr("invalid_filter", "filter %s=%q is not of the form op.value", col, raw)
	}
	switch op {
	case OpEq, OpILike:
	default:
		return Filter{}, queryErr("unsupported_operator", "operator %q is not supported", op)
	}
	return Filter{Column: col, Op: op, Value: value}, nil
}

func parseOrder(raw string, ep endpoint) ([]OrderTerm, error) {
	var terms []OrderTerm
	for _, part := range strings.Split(raw, ",") {
		col, dir, _ := strings.Cut(strings.TrimSpace(part), ".")
		if !ep.hasColumn(col) {
			return nil, queryErr("unknown_column", "%s has no column %q", ep.name, col)
		}
		switch dir {
		case "", "asc":
			terms = append(terms, OrderTerm{Column: col})
		case "desc":
			terms = append(terms, OrderTerm{Column: col, Desc: true})
		default:
			return nil, queryErr("invalid_order", "order direction %q is not asc or desc", dir)
		}
	}
	return terms, nil
}

// selector renders q as a SELECT over ep's table. Without an explicit order
// rows come back by primary key.
func (q Query) selector(ep endpoint) *entsql.Selector {
	sel := entsql.Dialect(dialect.SQLite).
		Select(ep.columns...).
		From(entsql.Table(ep.table))
	for _, f := range q.Filters {
		f.predicate()(sel)
	}
	if len(q.Order) == 0 {
		sel.OrderBy(entsql.Asc(ep.key))
	}
	for _, o := range q.Order {
		if o.Desc {
			sel.OrderBy(entsql.Desc(o.Column))
		} else {
			sel.OrderBy(entsql.Asc(o.Column))
		}
	}
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}
	return sel
}

// predicate maps a filter to a selector option.
func (f Filter) predicate() func(*entsql.Selector) {
	switch f.Op {
	case OpEq:
		return entsql.FieldEQ(f.Column, f.Value)
	case OpILike:
		return func(s *entsql.Selector) {
			s.Where(iLike(s.C(f.Column), f.Value))
		}
	default:
		return func(*entsql.Selector) {}
	}
}

// iLike matches col case-insensitively against a pattern where '*' is the
// wildcard. Every other character is literal.
func iLike(col, pattern string) *entsql.Predicate {
	return entsql.P(func(b *entsql.Builder) {
		b.WriteString("LOWER(").Ident(col).WriteString(") LIKE ").
			Arg(likePattern(pattern)).WriteString(` ESCAPE '\'`)
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `%`)

func likePattern(pattern string) string {
	return likeEscaper.Replace(strings.ToLower(pattern))
}
