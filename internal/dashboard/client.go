package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

// APIClient talks to the /api/v1 HTTP surface.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1",
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *APIClient) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) AddCategory(ctx context.Context, name, description string) (*domain.Category, error) {
	var out domain.Category
	body := map[string]string{"name": name, "description": description}
	if err := c.doJSON(ctx, http.MethodPost, "/categories", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) DeleteCategory(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, "/categories/"+url.PathEscape(name), nil, nil)
}

func (c *APIClient) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var out []domain.Document
	if err := c.doJSON(ctx, http.MethodGet, "/documents", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) Upload(ctx context.Context, filename, category string, body io.Reader) (*domain.Document, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := writer.WriteField("category", category); err != nil {
		return nil, fmt.Errorf("write category field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var out domain.Document
	if err := c.do(ctx, http.MethodPost, "/uploads", buf, writer.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) UpdateKeyValues(ctx context.Context, id string, kvs []domain.KeyValue) (*domain.Document, error) {
	if kvs == nil {
		kvs = []domain.KeyValue{}
	}
	return c.documentCall(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/kv", kvs)
}

func (c *APIClient) Process(ctx context.Context, id string) (*domain.Document, error) {
	return c.documentCall(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/process", nil)
}

func (c *APIClient) Archive(ctx context.Context, id string) (*domain.Document, error) {
	return c.documentCall(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id), nil)
}

func (c *APIClient) Recategorize(ctx context.Context, id, categoryID, explanation string) (*domain.Document, error) {
	body := map[string]string{"category_id": categoryID, "explanation": explanation}
	return c.documentCall(ctx, http.MethodPost, "/documents/"+url.PathEscape(id)+"/recategorize", body)
}

func (c *APIClient) Chat(ctx context.Context, mode domain.ChatMode, documentID, query string) (string, error) {
	path := "/chat/general"
	if mode == domain.ChatKeyValue {
		path = "/chat/kv"
	}
	var out domain.ChatAnswer
	if err := c.doJSON(ctx, http.MethodPost, path, domain.ChatQuestion{DocumentID: documentID, Query: query}, &out); err != nil {
		return "", err
	}
	return out.Answer, nil
}

func (c *APIClient) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	var out domain.DashboardStats
	if err := c.doJSON(ctx, http.MethodGet, "/dashboard/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) documentCall(ctx context.Context, method, path string, body any) (*domain.Document, error) {
	var out domain.Document
	if err := c.doJSON(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	if body == nil {
		return c.do(ctx, method, path, nil, "", out)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(raw), "application/json", out)
}

func (c *APIClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			message = payload.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Message: message}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
