package query

import (
	"fmt"
	"net/url"
)

// Encode renders s as a query string: one key=value occurrence per selected
// value, in selection order, with keys in canonical order. Absent facets are
// omitted entirely, never sent as empty parameters. The empty selection
// encodes to "".
func Encode(s Selection) string {
	if len(s.values) == 0 {
		return ""
	}

	params := make(url.Values, len(s.values))
	for f, vals := range s.values {
		for _, v := range vals {
			params.Add(string(f), v)
		}
	}

	return params.Encode()
}

// Decode parses a query string produced by Encode (or typed by a user) back
// into a Selection. Unknown facets and non-numeric range bounds are errors.
func Decode(raw string) (Selection, error) {
	params, err := url.ParseQuery(raw)
	if err != nil {
		return Empty, fmt.Errorf("parse query: %w", err)
	}

	return FromMap(params)
}
