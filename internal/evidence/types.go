package evidence

import "context"

// #region item
// Item is a single scored excerpt retrieved from a policy or precedent
// document, with page/paragraph provenance. Immutable once retrieved.
type Item struct {
	Authority    string  `json:"authority"`
	DocKey       string  `json:"doc_key"`
	DocTitle     string  `json:"doc_title"`
	ParagraphRef string  `json:"paragraph_ref"`
	PageStart    int     `json:"page_start"`
	PageEnd      int     `json:"page_end"`
	SourcePath   string  `json:"source_path"`
	Score        float64 `json:"score"`
	Text         string  `json:"text,omitempty"`
	Snippet      string  `json:"snippet,omitempty"`
}

// Body returns the text used for keyword matching, preferring the snippet.
func (it Item) Body() string {
	if it.Snippet != "" {
		return it.Snippet
	}
	return it.Text
}

// #endregion item

// #region set
// Set is the raw output of a provider query, consumed once by the gate.
type Set struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Items  []Item `json:"results"`
}

// #endregion set

// #region citation
// Citation is the provenance record shown to the reader for audit,
// one-to-one with a selected evidence item. No excerpt text.
type Citation struct {
	Authority    string  `json:"authority"`
	DocKey       string  `json:"doc_key"`
	DocTitle     string  `json:"doc_title"`
	ParagraphRef string  `json:"paragraph_ref"`
	PageStart    int     `json:"page_start"`
	PageEnd      int     `json:"page_end"`
	SourcePath   string  `json:"source_path"`
	Score        float64 `json:"score"`
}

// CitationFor synthesizes a citation from an evidence item.
func CitationFor(it Item) Citation {
	return Citation{
		Authority:    it.Authority,
		DocKey:       it.DocKey,
		DocTitle:     it.DocTitle,
		ParagraphRef: it.ParagraphRef,
		PageStart:    it.PageStart,
		PageEnd:      it.PageEnd,
		SourcePath:   it.SourcePath,
		Score:        it.Score,
	}
}

// #endregion citation

// #region provider
// Query describes one retrieval request against a provider.
type Query struct {
	Text      string
	Authority string
	DocKeys   []string
	TopK      int
	MinScore  float64
}

// Provider retrieves evidence for a query. Implementations live outside the
// core pipeline: a replay fixture, the precedent store, or a remote search
// service wrapped by the caller.
type Provider interface {
	Retrieve(ctx context.Context, q Query) (Set, error)
}

// #endregion provider
