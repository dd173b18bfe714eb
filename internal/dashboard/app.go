package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// App applies user actions against the data source and patches the state from the
// server's responses.
type App struct {
	source DataSource
	state  *State
	logger *slog.Logger
}

func NewApp(source DataSource, state *State, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{source: source, state: state, logger: logger}
}

func (a *App) State() *State {
	return a.state
}

// Load fetches categories and documents concurrently and replaces both lists.
func (a *App) Load(ctx context.Context) error {
	var (
		categories []domain.Category
		documents  []domain.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = a.source.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		documents, err = a.source.ListDocuments(gctx)
		if err != nil {
			return fmt.Errorf("load documents: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("dashboard_load_failed", "error", err)
		return err
	}
	a.state.SetCategories(categories)
	a.state.SetDocuments(documents)
	return nil
}

// Upload sends a file into the selected category.
func (a *App) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Document, error) {
	category := a.state.Snapshot().SelectedCategory
	if category == "" {
		return nil, fmt.Errorf("%w: select a category before uploading", ErrValidation)
	}
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: file is required", ErrValidation)
	}
	return a.documentAction(ctx, "upload:"+filename, func(ctx context.Context) (*domain.Document, error) {
		return a.source.Upload(ctx, filename, category, body)
	})
}

func (a *App) Process(ctx context.Context, id string) (*domain.Document, error) {
	return a.documentAction(ctx, "process:"+id, func(ctx context.Context) (*domain.Document, error) {
		return a.source.Process(ctx, id)
	})
}

func (a *App) Archive(ctx context.Context, id string) (*domain.Document, error) {
	return a.documentAction(ctx, "archive:"+id, func(ctx context.Context) (*domain.Document, error) {
		return a.source.Archive(ctx, id)
	})
}

func (a *App) SaveKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) (*domain.Document, error) {
	return a.documentAction(ctx, "kv:"+id, func(ctx context.Context) (*domain.Document, error) {
		return a.source.UpdateKeyValues(ctx, id, kvs)
	})
}

func (a *App) Recategorize(ctx context.Context, id, categoryID, explanation string) (*domain.Document, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, fmt.Errorf("%w: target category is required", ErrValidation)
	}
	return a.documentAction(ctx, "recategorize:"+id, func(ctx context.Context) (*domain.Document, error) {
		return a.source.Recategorize(ctx, id, categoryID, explanation)
	})
}

func (a *App) AddCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return nil, fmt.Errorf("%w: category needs a name and a description", ErrValidation)
	}
	if !a.state.BeginAction("category:add:" + name) {
		return nil, ErrActionInFlight
	}
	defer a.state.EndAction("category:add:" + name)

	category, err := a.source.AddCategory(ctx, name, description)
	if err != nil {
		a.logger.Warn("dashboard_action_failed", "action", "add_category", "name", name, "error", err)
		return nil, err
	}
	a.state.AddCategory(*category)
	return category, nil
}

func (a *App) DeleteCategory(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	if !a.state.BeginAction("category:delete:" + name) {
		return ErrActionInFlight
	}
	defer a.state.EndAction("category:delete:" + name)

	if err := a.source.DeleteCategory(ctx, name); err != nil {
		a.logger.Warn("dashboard_action_failed", "action", "delete_category", "name", name, "error", err)
		return err
	}
	a.state.RemoveCategory(name)
	return nil
}

// documentAction runs call once per key at a time and patches the returned document into
// the canonical list. On failure the state is left unchanged.
func (a *App) documentAction(ctx context.Context, key string, call func(context.Context) (*domain.Document, error)) (*domain.Document, error) {
	if !a.state.BeginAction(key) {
		return nil, ErrActionInFlight
	}
	defer a.state.EndAction(key)

	doc, err := call(ctx)
	if err != nil {
		a.logger.Warn("dashboard_action_failed", "action", key, "error", err)
		return nil, err
	}
	a.state.PatchDocument(*doc)
	return doc, nil
}

// Describe renders err for a status line.
func Describe(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConnectivity):
		return "cannot reach the IntelliDocs API"
	case errors.As(err, &statusErr):
		return statusErr.Error()
	default:
		return err.Error()
	}
}
