package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

func TestCategoriesAddGrowsRegistry(t *testing.T) {
	repo := newCategoryRepoFake(invoices)
	uc := NewCategoriesUseCase(repo, newDocRepoFake())

	category, err := uc.Add(context.Background(), " Contracts ", "Legal agreements")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if category.Name != "Contracts" || category.ID == "" {
		t.Fatalf("unexpected category: %+v", category)
	}
	list, _ := uc.List(context.Background())
	if len(list) != 2 {
		t.Fatalf("expected registry to grow by one, got %d", len(list))
	}
}

func TestCategoriesAddValidation(t *testing.T) {
	uc := NewCategoriesUseCase(newCategoryRepoFake(invoices), newDocRepoFake())

	if _, err := uc.Add(context.Background(), "", "desc"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty name, got %v", err)
	}
	if _, err := uc.Add(context.Background(), "Contracts", " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty description, got %v", err)
	}
	if _, err := uc.Add(context.Background(), "invoices", "again"); !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}
}

func TestCategoriesDeleteByName(t *testing.T) {
	archived := uploadedDoc("doc-2", receipts.ID)
	archived.Status = domain.StatusArchived
	repo := newCategoryRepoFake(invoices, receipts)
	uc := NewCategoriesUseCase(repo, newDocRepoFake(uploadedDoc("doc-1", invoices.ID), archived))

	if err := uc.DeleteByName(context.Background(), "Invoices"); !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected conflict while referenced, got %v", err)
	}
	if err := uc.DeleteByName(context.Background(), "Receipts"); err != nil {
		t.Fatalf("expected delete with only archived references, got %v", err)
	}
	if err := uc.DeleteByName(context.Background(), "Receipts"); !domain.IsKind(err, domain.ErrCategoryNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected one category left, got %d", len(repo.items))
	}
}

func TestCategoriesSeedSkipsExisting(t *testing.T) {
	uc := NewCategoriesUseCase(newCategoryRepoFake(invoices), newDocRepoFake())

	added, err := uc.Seed(context.Background(), []domain.Category{
		{Name: "Invoices", Description: "dup"},
		{Name: "Contracts", Description: "Legal agreements"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected one seeded category, got %d", added)
	}
}
