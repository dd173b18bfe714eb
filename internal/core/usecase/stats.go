package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
)

type StatsUseCase struct {
	documents  ports.DocumentRepository
	categories ports.CategoryRepository
}

func NewStatsUseCase(documents ports.DocumentRepository, categories ports.CategoryRepository) *StatsUseCase {
	return &StatsUseCase{documents: documents, categories: categories}
}

// Stats aggregates the dashboard overview. Archived documents only contribute to
// ArchivedCount.
func (uc *StatsUseCase) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	docs, err := uc.documents.List(ctx, domain.DocumentFilter{})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	categories, err := uc.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	type poolAcc struct {
		total, processed, inFlight int
	}
	perCategory := make(map[string]*poolAcc, len(categories))
	for _, c := range categories {
		perCategory[c.ID] = &poolAcc{}
	}

	stats := &domain.DashboardStats{Pools: make([]domain.CategoryPool, 0, len(categories))}
	var processingSeconds float64
	var timed int
	for _, doc := range docs {
		if doc.IsArchived() {
			stats.ArchivedCount++
			continue
		}
		stats.TotalDocuments++
		switch doc.Status {
		case domain.StatusProcessed:
			stats.ProcessedCount++
			if doc.ProcessedAt != nil && !doc.ProcessedAt.Before(doc.CreatedAt) {
				processingSeconds += doc.ProcessedAt.Sub(doc.CreatedAt).Seconds()
				timed++
			}
		case domain.StatusUnknown:
			stats.UnknownCount++
		default:
			stats.PendingCount++
		}

		acc, ok := perCategory[doc.CategoryID]
		if !ok {
			continue
		}
		acc.total++
		switch doc.Status {
		case domain.StatusProcessed:
			acc.processed++
		case domain.StatusQueued, domain.StatusPending:
			acc.inFlight++
		}
	}

	stats.ProcessingAccuracy = percent(stats.ProcessedCount, stats.TotalDocuments)
	if timed > 0 {
		stats.AvgProcessingSeconds = round2(processingSeconds / float64(timed))
	}

	for _, c := range categories {
		acc := perCategory[c.ID]
		status := domain.PoolActive
		if acc.inFlight > 0 {
			status = domain.PoolProcessing
		}
		stats.Pools = append(stats.Pools, domain.CategoryPool{
			CategoryID:     c.ID,
			Name:           c.Name,
			DocumentCount:  acc.total,
			ProcessedCount: acc.processed,
			Accuracy:       percent(acc.processed, acc.total),
			Status:         status,
		})
	}
	return stats, nil
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
