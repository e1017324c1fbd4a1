package search

// Request body builders for the two retrieval legs. Bodies are plain maps
// marshaled to JSON; both legs oversample 2x the target K and strip the
// embedding field from returned sources.

// LexicalBody builds the BM25 multi_match request for a query.
func LexicalBody(query string, class QueryClass, topK int, includeCode bool) map[string]any {
	boosts := PageTypeBoosts(class)
	should := make([]map[string]any, 0, len(boosts)+1)
	for _, pageType := range sortedPageTypes(boosts) {
		should = append(should, map[string]any{
			"term": map[string]any{
				"page_type": map[string]any{
					"value": pageType,
					"boost": boosts[pageType],
				},
			},
		})
	}
	if includeCode && (class == ClassCode || class == ClassExample) {
		should = append(should, map[string]any{
			"term": map[string]any{
				"has_code": map[string]any{
					"value": true,
					"boost": 1.3,
				},
			},
		})
	}

	return map[string]any{
		"size": topK * 2,
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{
						"multi_match": map[string]any{
							"query":     query,
							"fields":    SearchFields(class),
							"type":      "best_fields",
							"operator":  "or",
							"fuzziness": "AUTO",
						},
					},
				},
				"should":               should,
				"minimum_should_match": 0,
			},
		},
		"_source": map[string]any{
			"excludes": []string{"embedding"},
		},
	}
}

// VectorBody builds the cosine knn script_score request for a query
// embedding. Page types act as a soft filter, never a hard one.
func VectorBody(embedding []float32, class QueryClass, topK int) map[string]any {
	boosts := PageTypeBoosts(class)
	should := make([]map[string]any, 0, len(boosts))
	for _, pageType := range sortedPageTypes(boosts) {
		should = append(should, map[string]any{
			"term": map[string]any{"page_type": pageType},
		})
	}

	return map[string]any{
		"size": topK * 2,
		"query": map[string]any{
			"script_score": map[string]any{
				"query": map[string]any{
					"bool": map[string]any{
						"should":               should,
						"minimum_should_match": 0,
					},
				},
				"script": map[string]any{
					"source": "knn_score",
					"lang":   "knn",
					"params": map[string]any{
						"field":       "embedding",
						"query_value": embedding,
						"space_type":  "cosinesimil",
					},
				},
			},
		},
		"_source": map[string]any{
			"excludes": []string{"embedding"},
		},
	}
}
