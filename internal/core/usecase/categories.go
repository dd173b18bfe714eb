package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/intellidocs/internal/core/domain"
	"github.com/kirillkom/intellidocs/internal/core/ports"
)

type CategoriesUseCase struct {
	repo      ports.CategoryRepository
	documents ports.DocumentRepository
	now       func() time.Time
}

func NewCategoriesUseCase(repo ports.CategoryRepository, documents ports.DocumentRepository) *CategoriesUseCase {
	return &CategoriesUseCase{
		repo:      repo,
		documents: documents,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CategoriesUseCase) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (uc *CategoriesUseCase) Add(ctx context.Context, name, description string) (*domain.Category, error) {
	category := &domain.Category{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   uc.now(),
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}

	existing, err := uc.repo.GetByName(ctx, category.Name)
	switch {
	case err == nil:
		return nil, domain.WrapError(domain.ErrConflict, "add category", fmt.Errorf("category %q already exists", existing.Name))
	case !domain.IsKind(err, domain.ErrCategoryNotFound):
		return nil, fmt.Errorf("lookup category: %w", err)
	}

	if err := uc.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// DeleteByName refuses to remove a category that non-archived documents still reference.
func (uc *CategoriesUseCase) DeleteByName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.WrapError(domain.ErrInvalidInput, "delete category", errors.New("name is required"))
	}
	category, err := uc.repo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("lookup category: %w", err)
	}

	refs, err := uc.documents.CountActiveByCategory(ctx, category.ID)
	if err != nil {
		return fmt.Errorf("count category documents: %w", err)
	}
	if refs > 0 {
		return domain.WrapError(
			domain.ErrConflict,
			"delete category",
			fmt.Errorf("category %q is used by %d document(s)", category.Name, refs),
		)
	}

	if err := uc.repo.Delete(ctx, category.ID); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// Seed adds every category from defaults whose name is not registered yet.
func (uc *CategoriesUseCase) Seed(ctx context.Context, defaults []domain.Category) (int, error) {
	added := 0
	for _, c := range defaults {
		_, err := uc.Add(ctx, c.Name, c.Description)
		switch {
		case err == nil:
			added++
		case domain.IsKind(err, domain.ErrConflict):
		default:
			return added, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}
	return added, nil
}
