package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

func chatDoc(text string) domain.Document {
	doc := uploadedDoc("doc-1", invoices.ID)
	doc.Status = domain.StatusProcessed
	doc.Text = text
	doc.KeyValues = []domain.KeyValue{{Key: "total", Value: "42"}}
	return doc
}

func TestChatGeneralUsesFullTextForShortDocuments(t *testing.T) {
	answerer := &answererFake{answer: "It is 42."}
	uc := NewChatUseCase(newDocRepoFake(chatDoc("Total due: 42")), newCategoryRepoFake(invoices), nil, nil, answerer, 100, 3)

	got, err := uc.Ask(context.Background(), domain.ChatQuestion{DocumentID: "doc-1", Query: " total? ", Mode: domain.ChatGeneral})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Answer != "It is 42." {
		t.Fatalf("unexpected answer %q", got.Answer)
	}
	if answerer.question != "total?" || answerer.scope.Text != "Total due: 42" || answerer.scope.CategoryName != "Invoices" {
		t.Fatalf("unexpected scope: %q %+v", answerer.question, answerer.scope)
	}
}

func TestChatGeneralUsesChunksForLongDocuments(t *testing.T) {
	vector := &vectorFake{hits: []domain.RetrievedChunk{{DocumentID: "doc-1", Text: "relevant"}}}
	answerer := &answererFake{answer: "ok"}
	uc := NewChatUseCase(newDocRepoFake(chatDoc(strings.Repeat("x", 50))), newCategoryRepoFake(), &embedderFake{query: []float32{1}}, vector, answerer, 10, 3)

	if _, err := uc.Ask(context.Background(), domain.ChatQuestion{DocumentID: "doc-1", Query: "q", Mode: domain.ChatGeneral}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector.searchFilter.DocumentID != "doc-1" {
		t.Fatalf("expected search scoped to the document, got %+v", vector.searchFilter)
	}
	if len(answerer.scope.Chunks) != 1 || answerer.scope.Text != "" {
		t.Fatalf("expected chunk scope, got %+v", answerer.scope)
	}
}

func TestChatKeyValueModeUsesFields(t *testing.T) {
	answerer := &answererFake{answer: "42"}
	uc := NewChatUseCase(newDocRepoFake(chatDoc("")), newCategoryRepoFake(), nil, nil, answerer, 0, 0)

	if _, err := uc.Ask(context.Background(), domain.ChatQuestion{DocumentID: "doc-1", Query: "total", Mode: domain.ChatKeyValue}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(answerer.scope.Fields) != 1 || answerer.scope.Fields[0].Key != "total" {
		t.Fatalf("expected key-value scope, got %+v", answerer.scope)
	}
}

func TestChatValidation(t *testing.T) {
	uc := NewChatUseCase(newDocRepoFake(chatDoc("t")), newCategoryRepoFake(), nil, nil, &answererFake{}, 0, 0)

	cases := map[string]domain.ChatQuestion{
		"mode":     {DocumentID: "doc-1", Query: "q", Mode: "poetry"},
		"document": {Query: "q", Mode: domain.ChatGeneral},
		"query":    {DocumentID: "doc-1", Mode: domain.ChatKeyValue},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := uc.Ask(context.Background(), q); !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}

	_, err := uc.Ask(context.Background(), domain.ChatQuestion{DocumentID: "missing", Query: "q", Mode: domain.ChatGeneral})
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChatAnswerErrorPropagates(t *testing.T) {
	uc := NewChatUseCase(newDocRepoFake(chatDoc("t")), newCategoryRepoFake(), nil, nil, &answererFake{err: domain.ErrTemporary}, 0, 0)

	_, err := uc.Ask(context.Background(), domain.ChatQuestion{DocumentID: "doc-1", Query: "q", Mode: domain.ChatGeneral})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
