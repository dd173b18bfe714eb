package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

var (
	// ErrConnectivity marks transport failures: the API could not be reached at all.
	ErrConnectivity = errors.New("connectivity error")
	// ErrValidation marks input rejected before any request was sent.
	ErrValidation = errors.New("validation error")
	// ErrActionInFlight rejects a second trigger of an action that has not finished.
	ErrActionInFlight = errors.New("action already in progress")
)

// StatusError is a non-2xx API response.
type StatusError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// DataSource is the dashboard's view of the IntelliDocs API.
type DataSource interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	AddCategory(ctx context.Context, name, description string) (*domain.Category, error)
	DeleteCategory(ctx context.Context, name string) error

	ListDocuments(ctx context.Context) ([]domain.Document, error)
	Upload(ctx context.Context, filename, category string, body io.Reader) (*domain.Document, error)
	UpdateKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) (*domain.Document, error)
	Process(ctx context.Context, id string) (*domain.Document, error)
	Archive(ctx context.Context, id string) (*domain.Document, error)
	Recategorize(ctx context.Context, id, categoryID, explanation string) (*domain.Document, error)

	Chat(ctx context.Context, mode domain.ChatMode, documentID, query string) (string, error)
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

const (
	SourceHTTP    = "http"
	SourceFixture = "fixture"
)

// SourceConfig selects the data source. It is read once at startup.
type SourceConfig struct {
	Kind        string
	APIURL      string
	APIToken    string
	FixtureFile string
}

func NewDataSource(cfg SourceConfig) (DataSource, error) {
	switch cfg.Kind {
	case "", SourceHTTP:
		return NewAPIClient(cfg.APIURL, cfg.APIToken), nil
	case SourceFixture:
		return LoadFixture(cfg.FixtureFile)
	default:
		return nil, fmt.Errorf("unsupported dashboard source %q", cfg.Kind)
	}
}
