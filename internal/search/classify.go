package search

import (
	"sort"
	"strings"
)

// QueryClass is a heuristic category of a search query, used to pick field
// weights and page-type boosts.
type QueryClass string

const (
	ClassCode    QueryClass = "code"
	ClassAPI     QueryClass = "api"
	ClassExample QueryClass = "example"
	ClassGeneral QueryClass = "general"
)

var (
	codeKeywords    = []string{"code", "example", "how to", "implement", "syntax", "usage"}
	apiKeywords     = []string{"parameters", "arguments", "returns", "attributes", "methods", "class", "function"}
	exampleKeywords = []string{"example", "demo", "tutorial", "guide", "walkthrough"}
)

// Classify buckets a query by substring heuristics. Families are checked in
// order (code, api, example); the first hit wins, otherwise general.
func Classify(query string) QueryClass {
	q := strings.ToLower(query)
	for _, kw := range codeKeywords {
		if strings.Contains(q, kw) {
			return ClassCode
		}
	}
	for _, kw := range apiKeywords {
		if strings.Contains(q, kw) {
			return ClassAPI
		}
	}
	for _, kw := range exampleKeywords {
		if strings.Contains(q, kw) {
			return ClassExample
		}
	}
	return ClassGeneral
}

// fieldBoosts maps each class to its ranked searchable fields with weight
// multipliers in the engine's field^boost syntax.
var fieldBoosts = map[QueryClass][]string{
	ClassCode: {
		"code_blocks.code^3.5",
		"full_text^3",
		"heading^2",
		"text^1.5",
		"code_blocks.context^1.5",
	},
	ClassAPI: {
		"heading^3.5",
		"page_title^3",
		"text^2.5",
		"enriched_text^2",
		"code_blocks.code^1.5",
	},
	ClassExample: {
		"full_text^3",
		"code_blocks.code^3",
		"heading^2.5",
		"text^2",
		"enriched_text^1.5",
	},
	ClassGeneral: {
		"heading^3",
		"text^2.5",
		"enriched_text^2",
		"page_title^2",
		"full_text^1.5",
	},
}

// pageTypeBoosts maps each class to soft-boosts over the corpus page types.
var pageTypeBoosts = map[QueryClass]map[string]float64{
	ClassCode: {
		"tutorial":      1.4,
		"example":       1.2,
		"guide":         1.0,
		"api_reference": 0.9,
	},
	ClassAPI: {
		"api_reference": 1.4,
		"core_api":      1.3,
		"integration":   1.2,
		"conceptual":    1.1,
		"guide":         1.0,
	},
	ClassExample: {
		"tutorial":      1.5,
		"example":       1.3,
		"guide":         1.0,
		"api_reference": 0.8,
	},
	ClassGeneral: {
		"guide":         1.2,
		"conceptual":    1.1,
		"tutorial":      1.1,
		"api_reference": 1.0,
	},
}

// SearchFields returns the boosted field list for a class.
func SearchFields(class QueryClass) []string {
	if fields, ok := fieldBoosts[class]; ok {
		return fields
	}
	return fieldBoosts[ClassGeneral]
}

// PageTypeBoosts returns the page-type boost table for a class.
func PageTypeBoosts(class QueryClass) map[string]float64 {
	if boosts, ok := pageTypeBoosts[class]; ok {
		return boosts
	}
	return pageTypeBoosts[ClassGeneral]
}

// sortedPageTypes returns the boost table keys in stable order so generated
// request bodies are deterministic.
func sortedPageTypes(boosts map[string]float64) []string {
	keys := make([]string, 0, len(boosts))
	for k := range boosts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
