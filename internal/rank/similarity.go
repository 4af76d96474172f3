package rank

import (
	"math"

	"souqsearch/internal/textnorm"
	"souqsearch/pkg/types"
)

// applySimilarity computes a TF-IDF cosine similarity between the query
// tokens and each candidate title and writes it into SimilarityScore.
// The vocabulary and document frequencies are fit on the candidate set
// itself, so term weights reflect what distinguishes listings within this
// result set rather than a global corpus.
func applySimilarity(ranked []types.RankedListing, queryTokens []string) {
	if len(ranked) == 0 || len(queryTokens) == 0 {
		return
	}

	docs := make([][]string, len(ranked))
	for i, candidate := range ranked {
		tokens, _ := textnorm.Normalize(candidate.Title)
		docs[i] = tokens
	}

	// Document frequency over candidate titles plus the query.
	df := make(map[string]int)
	countDoc := func(tokens []string) {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	for _, doc := range docs {
		countDoc(doc)
	}
	countDoc(queryTokens)

	n := len(docs) + 1
	idf := func(term string) float64 {
		// Smoothed so unseen terms never divide by zero.
		return math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	queryVec := tfidfVector(queryTokens, idf)
	for i := range ranked {
		ranked[i].SimilarityScore = round2(cosine(queryVec, tfidfVector(docs[i], idf)))
	}
}

func tfidfVector(tokens []string, idf func(string) float64) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	vec := make(map[string]float64, len(tf))
	for term, count := range tf {
		vec[term] = count / float64(len(tokens)) * idf(term)
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, weight := range a {
		normA += weight * weight
		if other, ok := b[term]; ok {
			dot += weight * other
		}
	}
	for _, weight := range b {
		normB += weight * weight
	}
	if dot == 0 || normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
