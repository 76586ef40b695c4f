package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

type queryKind int

const (
	kindSemantic queryKind = iota
	kindSuperlative
	kindPriceBound
	kindLocation
	kindCategory
)

// queryDispatch is the outcome of lexical analysis of one question: which
// structured path (if any) should serve it, plus the extracted parameter.
type queryDispatch struct {
	kind     queryKind
	maxPrice float64
	location string
	category string
}

var (
	superlativeRe = regexp.MustCompile(`(?i)most expensive|highest price|costliest|priciest`)
	budgetRe      = regexp.MustCompile(`(?i)cheap|affordable|budget|under \$\d+`)
	dollarRe      = regexp.MustCompile(`\$(\d+(?:\.\d+)?)`)
	locationRe    = regexp.MustCompile(`(?i)\bfrom\s+([a-zA-Z][a-zA-Z ]*)|\bin\s+([a-zA-Z][a-zA-Z ]*)`)
)

// patternDetector maps a question onto the structured dispatch priority:
// superlative, then bounded price, then location, then catalog category.
// Questions matching none of these take the semantic path.
type patternDetector struct {
	categories     []string
	budgetPriceCap float64
}

func newPatternDetector(categories []string, budgetPriceCap float64) *patternDetector {
	if budgetPriceCap <= 0 {
		budgetPriceCap = 10
	}
	lowered := make([]string, 0, len(categories))
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category != "" {
			lowered = append(lowered, category)
		}
	}
	return &patternDetector{categories: lowered, budgetPriceCap: budgetPriceCap}
}

func (d *patternDetector) detect(question string) queryDispatch {
	q := strings.ToLower(question)

	if superlativeRe.MatchString(q) {
		return queryDispatch{kind: kindSuperlative}
	}

	if budgetRe.MatchString(q) {
		maxPrice := d.budgetPriceCap
		if m := dollarRe.FindStringSubmatch(q); m != nil {
			maxPrice = parsePrice(m[1], d.budgetPriceCap)
		}
		return queryDispatch{kind: kindPriceBound, maxPrice: maxPrice}
	}

	if m := locationRe.FindStringSubmatch(question); m != nil {
		location := m[1]
		if location == "" {
			location = m[2]
		}
		if location = strings.TrimSpace(location); location != "" {
			return queryDispatch{kind: kindLocation, location: location}
		}
	}

	for _, category := range d.categories {
		if strings.Contains(q, category) {
			return queryDispatch{kind: kindCategory, category: category}
		}
	}

	return queryDispatch{kind: kindSemantic}
}

// matchesStructured reports whether a question hits any structured dispatch
// pattern. Used by the session to let pattern dispatch override the
// classifier for aggregate questions the structured store can answer.
func (d *patternDetector) matchesStructured(question string) bool {
	return d.detect(question).kind != kindSemantic
}

func parsePrice(text string, fallback float64) float64 {
	price, err := strconv.ParseFloat(text, 64)
	if err != nil || price <= 0 {
		return fallback
	}
	return price
}
