// Package retrieval grounds chat replies in business documents. Matching is
// keyword overlap between the query and document text; vector search can be
// swapped in behind the same interface later.
package retrieval

import (
	"sort"
	"strings"
)

// Document is one snippet of grounding context.
type Document struct {
	Content string `json:"content"`
	Source  string `json:"source"`
}

// Retriever selects documents relevant to a query. Implementations must not
// fail: when nothing matches they return a fallback set so the prompt context
// is never empty.
type Retriever interface {
	Retrieve(query, chatbotID string) []Document
}

// DefaultCorpus is served to chatbots without their own document set.
var DefaultCorpus = []Document{
	{
		Content: "Our business hours are Monday-Friday, 9 AM to 6 PM EST. We're closed on weekends and major holidays.",
		Source:  "company-info.pdf",
	},
	{
		Content: "To schedule an appointment, you can call us at (555) 123-4567 or use our online booking system.",
		Source:  "services.pdf",
	},
	{
		Content: "Our starter plan is $29/month, the professional plan is $79/month, and enterprise pricing is available on request. All plans include a 14-day free trial.",
		Source:  "pricing.pdf",
	},
	{
		Content: "For technical support, email support@smartbotly.com or use the live chat on our website. Most issues are resolved within one business day.",
		Source:  "support.pdf",
	},
}

// KeywordRetriever scores documents by how many query terms they contain.
type KeywordRetriever struct {
	corpora    map[string][]Document
	fallback   []Document
	maxResults int
}

// NewKeywordRetriever builds a retriever over per-chatbot corpora. Chatbots
// not present in corpora fall back to DefaultCorpus.
func NewKeywordRetriever(corpora map[string][]Document, maxResults int) *KeywordRetriever {
	if maxResults <= 0 {
		maxResults = 2
	}
	return &KeywordRetriever{
		corpora:    corpora,
		fallback:   DefaultCorpus,
		maxResults: maxResults,
	}
}

// Retrieve returns up to maxResults documents with at least one query term in
// common, best match first. When no document matches, the first maxResults
// fallback documents are returned instead.
func (r *KeywordRetriever) Retrieve(query, chatbotID string) []Document {
	corpus := r.corpora[chatbotID]
	if len(corpus) == 0 {
		corpus = r.fallback
	}

	terms := tokenize(query)

	type scored struct {
		doc   Document
		score int
	}
	var matches []scored
	for _, doc := range corpus {
		docTerms := tokenize(doc.Content)
		score := 0
		for term := range terms {
			if docTerms[term] {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{doc: doc, score: score})
		}
	}

	if len(matches) == 0 {
		n := r.maxResults
		if n > len(corpus) {
			n = len(corpus)
		}
		return append([]Document(nil), corpus[:n]...)
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > r.maxResults {
		matches = matches[:r.maxResults]
	}

	docs := make([]Document, len(matches))
	for i, m := range matches {
		docs[i] = m.doc
	}
	return docs
}

// stopwords are too common to signal relevance.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "can": true, "do": true,
	"for": true, "how": true, "i": true, "is": true, "it": true, "me": true,
	"my": true, "of": true, "or": true, "the": true, "to": true, "what": true,
	"when": true, "you": true, "your": true,
}

func tokenize(s string) map[string]bool {
	terms := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	for _, w := range words {
		if len(w) > 1 && !stopwords[w] {
			terms[w] = true
		}
	}
	return terms
}
