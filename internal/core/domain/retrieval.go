package domain

type SearchFilter struct {
	CategoryID string
	DocumentID string
}

type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	CategoryID string  `json:"category_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

type SearchMode string

const (
	SearchByName     SearchMode = "name"
	SearchByMeaning  SearchMode = "semantic"
	DefaultSearchTop            = 10
)

type SearchHit struct {
	Document Document `json:"document"`
	Score    float64  `json:"score,omitempty"`
}
