package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const defaultMaxUploadBytes int64 = 32 << 20

type newCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type recategorizeRequest struct {
	CategoryID  string `json:"category_id"`
	Explanation string `json:"explanation"`
}

func (rt *Router) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := rt.svc.Categories.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (rt *Router) addCategory(w http.ResponseWriter, r *http.Request) {
	var req newCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "add category", err))
		return
	}
	category, err := rt.svc.Categories.Add(r.Context(), req.Name, req.Description)
	rt.recordDocumentOp("add_category", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (rt *Router) deleteCategory(w http.ResponseWriter, r *http.Request) {
	err := rt.svc.Categories.DeleteByName(r.Context(), chi.URLParam(r, "name"))
	rt.recordDocumentOp("delete_category", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	var category string
	if err := runtime.BindQueryParameter("form", true, false, "category", r.URL.Query(), &category); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "list documents", err))
		return
	}
	docs, err := rt.svc.Documents.List(r.Context(), domain.DocumentFilter{CategoryID: category})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (rt *Router) searchDocuments(w http.ResponseWriter, r *http.Request) {
	var (
		query string
		mode  string
		limit int
	)
	params := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", params, &query); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "search documents", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "mode", params, &mode); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "search documents", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", params, &limit); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "search documents", err))
		return
	}

	hits, err := rt.svc.Documents.Search(r.Context(), query, domain.SearchMode(mode), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Documents.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) archiveDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Documents.Archive(r.Context(), chi.URLParam(r, "id"))
	rt.recordDocumentOp("archive", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) documentHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := rt.svc.Documents.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (rt *Router) downloadDocument(w http.ResponseWriter, r *http.Request) {
	doc, body, err := rt.svc.Documents.OpenContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("download_stream_interrupted", "document_id", doc.ID, "error", err)
	}
}

func (rt *Router) updateKeyValues(w http.ResponseWriter, r *http.Request) {
	var kvs []domain.KeyValue
	if err := decodeJSON(r, &kvs); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "update key values", err))
		return
	}
	doc, err := rt.svc.Documents.UpdateKeyValues(r.Context(), chi.URLParam(r, "id"), kvs)
	rt.recordDocumentOp("update_kv", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) processDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Processor.ProcessByID(r.Context(), chi.URLParam(r, "id"))
	rt.recordDocumentOp("process", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) reprocessDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Documents.Reprocess(r.Context(), chi.URLParam(r, "id"))
	rt.recordDocumentOp("reprocess", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) recategorizeDocument(w http.ResponseWriter, r *http.Request) {
	var req recategorizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "recategorize", err))
		return
	}
	doc, err := rt.svc.Documents.Recategorize(r.Context(), chi.URLParam(r, "id"), req.CategoryID, req.Explanation)
	rt.recordDocumentOp("recategorize", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	maxBytes := rt.cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("file is required: %w", err)))
		return
	}
	defer file.Close()

	req := domain.UploadRequest{
		Filename:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		CategoryID:  r.FormValue("category"),
	}
	doc, err := rt.svc.Ingestor.Upload(r.Context(), req, file)
	rt.recordDocumentOp("upload", err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/documents/"+doc.ID)
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) chatGeneral(w http.ResponseWriter, r *http.Request) {
	rt.chat(w, r, domain.ChatGeneral)
}

func (rt *Router) chatKeyValue(w http.ResponseWriter, r *http.Request) {
	rt.chat(w, r, domain.ChatKeyValue)
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request, mode domain.ChatMode) {
	var q domain.ChatQuestion
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "chat", err))
		return
	}
	q.Mode = mode

	started := time.Now()
	answer, err := rt.svc.Chat.Ask(r.Context(), q)
	if rt.metrics != nil {
		rt.metrics.RecordChat(serviceName, string(mode), time.Since(started), err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.svc.Stats.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
