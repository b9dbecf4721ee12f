package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/supplyline/api/internal/domain"
	"github.com/supplyline/api/internal/platform/auth"
	"github.com/supplyline/api/internal/platform/httpx"
	"github.com/supplyline/api/internal/repositories"
	"github.com/supplyline/api/internal/services"
)

// ImportHandlers exposes the catalog import trigger and status endpoints.
type ImportHandlers struct {
	imports services.ImportService
}

// NewImportHandlers constructs the import endpoints.
func NewImportHandlers(imports services.ImportService) (*ImportHandlers, error) {
	if imports == nil {
		return nil, errors.New("import handlers require the import service")
	}
	return &ImportHandlers{imports: imports}, nil
}

// Register mounts the import routes on the provided router group.
func (h *ImportHandlers) Register(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/{jobID}", h.Get)
}

type createImportRequest struct {
	URL string `json:"url"`
}

type importJobResponse struct {
	JobID        string  `json:"jobId"`
	URL          string  `json:"url"`
	Status       string  `json:"status"`
	Attempt      int     `json:"attempt"`
	CreatedCount int     `json:"created"`
	SkippedCount int     `json:"skipped"`
	ErrorKind    string  `json:"errorKind,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	CompletedAt  *string `json:"completedAt,omitempty"`
}

// Create accepts a catalog URL and queues an asynchronous import, answering
// with the job identifier the caller can poll.
func (h *ImportHandlers) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	url, err := importURLFromRequest(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("bad_request", "request body could not be read", http.StatusBadRequest))
		return
	}

	rec, err := h.imports.Trigger(ctx, services.TriggerImportCommand{
		URL:       url,
		Principal: *identity,
	})
	if err != nil {
		h.writeTriggerError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":  rec.ID,
		"status": string(rec.Status),
	})
}

// Get serves the persisted job record for polling callers.
func (h *ImportHandlers) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	rec, err := h.imports.Job(ctx, services.ImportJobQuery{
		JobID:  chi.URLParam(r, "jobID"),
		Viewer: *identity,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrJobAccessDenied):
			httpx.WriteError(ctx, w, httpx.NewError("forbidden", "job belongs to another principal", http.StatusForbidden))
		case isRepoNotFound(err):
			httpx.WriteError(ctx, w, httpx.NewError("not_found", "import job not found", http.StatusNotFound))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("internal", "unable to load import job", http.StatusInternalServerError))
		}
		return
	}

	writeJSON(w, http.StatusOK, renderJob(rec))
}

func (h *ImportHandlers) writeTriggerError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrImportURLRequired):
		httpx.WriteError(ctx, w, httpx.NewError("url_required", "form field url is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrPrincipalRequired), errors.Is(err, services.ErrPrincipalNotShop):
		httpx.WriteError(ctx, w, httpx.NewError("shop_required", "only active shop principals may import catalogs", http.StatusForbidden))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("dispatch_failed", "import could not be queued", http.StatusServiceUnavailable))
	}
}

// importURLFromRequest accepts either a form field or a JSON body.
func importURLFromRequest(r *http.Request) (string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var body createImportRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", err
		}
		return body.URL, nil
	}
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostFormValue("url"), nil
}

func renderJob(rec domain.ImportJobRecord) importJobResponse {
	resp := importJobResponse{
		JobID:        rec.ID,
		URL:          rec.URL,
		Status:       string(rec.Status),
		Attempt:      rec.Attempt,
		CreatedCount: rec.CreatedCount,
		SkippedCount: rec.SkippedCount,
		ErrorKind:    string(rec.ErrorKind),
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
	}
	if rec.CompletedAt != nil {
		completed := rec.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
