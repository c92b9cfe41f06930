package lookup

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	values, err := url.ParseQuery("name=ilike.*rom*&istat_code=eq.015146&order=municipality.asc,name.desc&limit=20")
	require.NoError(t, err)

	q, err := parseQuery(values, endpoints["streets_full"])
	require.NoError(t, err)

	assert.Equal(t, []Filter{
		{Column: "istat_code", Op: OpEq, Value: "015146"},
		{Column: "name", Op: OpILike, Value: "*rom*"},
	}, q.Filters)
	assert.Equal(t, []OrderTerm{{Column: "municipality"}, {Column: "name", Desc: true}}, q.Order)
	assert.Equal(t, 20, q.Limit)
}

func TestParseQuery_LimitIsCapped(t *testing.T) {
	q, err := parseQuery(url.Values{"limit": {"50000"}}, endpoints["regions"])
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, q.Limit)
}

func TestParseQuery_Errors(t *testing.T) {
	tests := []struct {
		name  string
		ep    string
		query string
		code  string
	}{
		{"unknown filter column", "regions", "population=eq.1", "unknown_column"},
		{"column of another endpoint", "regions", "region_code=eq.03", "unknown_column"},
		{"unknown order column", "provinces", "order=size.asc", "unknown_column"},
		{"bad direction", "provinces", "order=name.up", "invalid_order"},
		{"operator", "provinces", "name=like.Roma", "unsupported_operator"},
		{"missing operator", "provinces", "name=Roma", "invalid_filter"},
		{"limit text", "streets", "limit=ten", "invalid_limit"},
		{"limit zero", "streets", "limit=0", "invalid_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			_, err = parseQuery(values, endpoints[tt.ep])
			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.code, qe.Code)
		})
	}
}

func TestQuery_SelectorArgs(t *testing.T) {
	q := Query{
		Filters: []Filter{
			{Column: "istat_code", Op: OpEq, Value: "015146"},
			{Column: "name", Op: OpILike, Value: "*100%_*"},
		},
		Limit: 5,
	}
	sql, args := q.selector(endpoints["streets"]).Query()

	assert.Contains(t, sql, "LOWER(")
	assert.Contains(t, sql, "ESCAPE")
	assert.Contains(t, sql, "LIMIT 5")
	assert.Equal(t, []any{"015146", `%100\%\_%`}, args)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%via roma%", likePattern("*Via Roma*"))
	assert.Equal(t, `a\\b`, likePattern(`a\b`))
	assert.Equal(t, "roma", likePattern("ROMA"))
}
