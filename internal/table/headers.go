package table

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical column keys.
const (
	KeyProduct          = "product"
	KeyPopularity       = "popularity"
	KeyPopularityChange = "popularity_change"
	KeyCTR              = "ctr"
	KeyCVR              = "cvr"
	KeyCPA              = "cpa"
	KeyCost             = "cost"
	KeyImpressions      = "impressions"
	KeyLikes            = "likes"
	KeyComments         = "comments"
	KeyShares           = "shares"
	KeyViewRate         = "view_rate"
	KeyViewRate6s       = "view_rate_6s"
)

// MaxSlugLength bounds keys derived from unrecognized headers.
const MaxSlugLength = 40

// HeaderRule maps a header to Key when its cleaned, lower-cased text
// contains any of Patterns.
type HeaderRule struct {
	Key      string
	Patterns []string
}

// Matches reports whether the lower-cased header hits one of the rule patterns.
func (r HeaderRule) Matches(header string) bool {
	for _, p := range r.Patterns {
		if strings.Contains(header, p) {
			return true
		}
	}
	return false
}

// DefaultHeaderRules returns the pt-BR and en labels of the top-products
// table. Order is precedence: the first matching rule wins, so a header
// containing both "cpa" and "cost" resolves to cpa. Spelled-out labels
// ("cost per acquisition", "custo por aquisição") also resolve to cpa
// rather than cost; only bare cost labels reach the cost rule.
func DefaultHeaderRules() []HeaderRule {
	return []HeaderRule{
		{Key: KeyProduct, Patterns: []string{"produto"}},
		{Key: KeyPopularity, Patterns: []string{"popularidade"}},
		{Key: KeyPopularityChange, Patterns: []string{"mud", "varia", "change"}},
		{Key: KeyCTR, Patterns: []string{"ctr", "click-through", "click through", "taxa de cliques"}},
		{Key: KeyCVR, Patterns: []string{"cvr", "conversion", "taxa de convers"}},
		{Key: KeyCPA, Patterns: []string{"cpa", "cost per acquisition", "custo por aquisi"}},
		{Key: KeyCost, Patterns: []string{"custo", "cost"}},
		{Key: KeyImpressions, Patterns: []string{"impress"}},
		{Key: KeyLikes, Patterns: []string{"curt", "like"}},
		{Key: KeyComments, Patterns: []string{"coment", "comment"}},
		{Key: KeyShares, Patterns: []string{"compart", "share"}},
		{Key: KeyViewRate, Patterns: []string{"view rate", "taxa de visual"}},
		{Key: KeyViewRate6s, Patterns: []string{"6s"}},
		{Key: KeyProduct, Patterns: []string{"product"}},
		{Key: KeyPopularity, Patterns: []string{"popularity"}},
	}
}

// HeaderMapper turns rendered header labels into column keys.
type HeaderMapper struct {
	rules []HeaderRule
}

// NewHeaderMapper creates a mapper evaluating rules in the given order.
// A nil slice selects DefaultHeaderRules.
func NewHeaderMapper(rules []HeaderRule) *HeaderMapper {
	if rules == nil {
		rules = DefaultHeaderRules()
	}
	return &HeaderMapper{rules: rules}
}

// Rules returns a copy of the rule list in evaluation order.
func (m *HeaderMapper) Rules() []HeaderRule {
	out := make([]HeaderRule, len(m.rules))
	copy(out, m.rules)
	return out
}

// Key maps a raw header to its column key. It never fails: headers no rule
// recognizes are slugified.
func (m *HeaderMapper) Key(rawHeader string) string {
	header := strings.ToLower(Clean(rawHeader))

	for _, rule := range m.rules {
		if rule.Matches(header) {
			return rule.Key
		}
	}

	return Slugify(header)
}

// Keys maps headers in order; the result is parallel to headers.
func (m *HeaderMapper) Keys(headers []string) []string {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = m.Key(h)
	}
	return keys
}

var defaultMapper = NewHeaderMapper(nil)

// HeaderToKey maps a header with the default rules.
func HeaderToKey(rawHeader string) string {
	return defaultMapper.Key(rawHeader)
}

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify strips diacritics and reduces s to a lower-case identifier of at
// most MaxSlugLength bytes made of [a-z0-9_], with no leading or trailing
// underscore.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}

	slug := nonSlugRun.ReplaceAllString(stripped, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > MaxSlugLength {
		slug = strings.TrimRight(slug[:MaxSlugLength], "_")
	}
	return slug
}
