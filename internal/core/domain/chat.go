package domain

type ChatMode string

const (
	ChatGeneral  ChatMode = "general"
	ChatKeyValue ChatMode = "kv"
)

func (m ChatMode) Valid() bool {
	return m == ChatGeneral || m == ChatKeyValue
}

type ChatQuestion struct {
	DocumentID string   `json:"documentId"`
	Query      string   `json:"query"`
	Mode       ChatMode `json:"-"`
}

// ChatScope is the grounding material handed to the answer generator.
type ChatScope struct {
	Mode         ChatMode
	DocumentName string
	CategoryName string
	Text         string
	Chunks       []RetrievedChunk
	Fields       []KeyValue
}

type ChatAnswer struct {
	Answer string `json:"answer"`
}
