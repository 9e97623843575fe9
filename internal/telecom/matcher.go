package telecom

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MatchKind tells how a message matched the reference table.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchOutage
	MatchCategory
)

func (k MatchKind) String() string {
	switch k {
	case MatchOutage:
		return "outage"
	case MatchCategory:
		return "category"
	default:
		return "none"
	}
}

// Match is the result of MatchQueries. Queries is never empty: a MatchNone
// result carries the fallback notice.
type Match struct {
	Kind    MatchKind
	Queries []string
}

// MatchQueries selects the reference queries relevant to input. Any outage
// keyword wins and yields a single outage template; otherwise the queries of
// every category with a matching keyword are returned in table order.
func (rs *ReferenceSet) MatchQueries(input string) Match {
	lower := strings.ToLower(input)

	if containsAny(lower, rs.Outage.Keywords) {
		return Match{Kind: MatchOutage, Queries: []string{rs.SelectOutageTemplate(input)}}
	}

	var queries []string
	for _, c := range rs.Categories {
		if containsAny(lower, c.Keywords) {
			queries = append(queries, c.Queries...)
		}
	}
	if len(queries) == 0 {
		return Match{Kind: MatchNone, Queries: []string{rs.Fallback}}
	}
	return Match{Kind: MatchCategory, Queries: queries}
}

// SelectOutageTemplate picks the postal-code template when input has a
// five-digit token, the region template when it names a region, and the
// address template otherwise.
func (rs *ReferenceSet) SelectOutageTemplate(input string) string {
	lower := strings.ToLower(input)

	for _, tok := range strings.Fields(lower) {
		if isPostalCode(tok) {
			return rs.Outage.Templates.PostalCode
		}
	}
	if containsAny(lower, rs.Outage.RegionKeywords) {
		return rs.Outage.Templates.Region
	}
	return rs.Outage.Templates.Address
}

// InferTopic returns the first category in table order with a keyword in input.
func (rs *ReferenceSet) InferTopic(input string) (Topic, bool) {
	lower := strings.ToLower(input)
	for _, c := range rs.Categories {
		if containsAny(lower, c.Keywords) {
			return c.Topic, true
		}
	}
	return "", false
}

func isPostalCode(tok string) bool {
	if utf8.RuneCountInString(tok) != 5 {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
