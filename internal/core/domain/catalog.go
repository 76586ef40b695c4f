package domain

// CatalogItem is the canonical product record returned by any retrieval
// backend. The orchestration layer treats it as a value: copied, never
// mutated after a backend hands it out.
type CatalogItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	CheeseType  string  `json:"cheese_type,omitempty"`
	CheeseForm  string  `json:"cheese_form,omitempty"`
	Brand       string  `json:"brand,omitempty"`
	Location    string  `json:"location,omitempty"`
	PriceEach   float64 `json:"price_each,omitempty"`
	PricePerLb  float64 `json:"price_per_lb,omitempty"`
	LbPerEach   float64 `json:"lb_per_each,omitempty"`
	CaseSize    string  `json:"case,omitempty"`
	SKU         string  `json:"sku,omitempty"`
	UPC         string  `json:"upc,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	SourceURL   string  `json:"source_url,omitempty"`

	// Score is the similarity score from the vector index. Zero on the
	// structured path.
	Score float64 `json:"score,omitempty"`
}

type PriceOrder string

const (
	PriceAscending  PriceOrder = "asc"
	PriceDescending PriceOrder = "desc"
)

// QueryType records which retrieval path produced a result set. The
// combined tags mark a fallback retry on the other modality.
type QueryType string

const (
	QueryTypeSemantic           QueryType = "semantic"
	QueryTypeStructured         QueryType = "structured"
	QueryTypeStructuredSemantic QueryType = "structured+semantic"
	QueryTypeSemanticLexical    QueryType = "semantic+lexical"
	QueryTypeNone               QueryType = "none"
)

// RetrievalResult is created fresh per ask and consumed immediately by the
// composer. Degraded marks a result produced after the primary path failed
// or came back empty; an empty Items with Degraded=false is a legitimate
// zero-match outcome, not an error.
type RetrievalResult struct {
	Items     []CatalogItem `json:"items"`
	QueryType QueryType     `json:"query_type"`
	Degraded  bool          `json:"degraded,omitempty"`
}

func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Items) == 0
}

// Verdict is the classifier's categorical decision for one question. It is
// computed per call and never cached across turns.
type Verdict string

const (
	VerdictRetrievable    Verdict = "retrievable"
	VerdictNotRetrievable Verdict = "not_retrievable"
)
