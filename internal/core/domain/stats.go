package domain

type PoolStatus string

const (
	PoolProcessing PoolStatus = "processing"
	PoolActive     PoolStatus = "active"
)

type CategoryPool struct {
	CategoryID     string     `json:"category_id"`
	Name           string     `json:"name"`
	DocumentCount  int        `json:"document_count"`
	ProcessedCount int        `json:"processed_count"`
	Accuracy       float64    `json:"accuracy"`
	Status         PoolStatus `json:"status"`
}

type DashboardStats struct {
	TotalDocuments       int            `json:"total_documents"`
	ProcessedCount       int            `json:"processed_count"`
	PendingCount         int            `json:"pending_count"`
	UnknownCount         int            `json:"unknown_count"`
	ArchivedCount        int            `json:"archived_count"`
	ProcessingAccuracy   float64        `json:"processing_accuracy"`
	AvgProcessingSeconds float64        `json:"avg_processing_seconds"`
	Pools                []CategoryPool `json:"pools"`
}
