package view

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/Sternrassler/artic-browser/pkg/pagination"
	"github.com/Sternrassler/artic-browser/pkg/session"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

type pageRequest struct {
	First *int `json:"first"`
	Rows  *int `json:"rows"`
}

type selectionRequest struct {
	Value artwork.Selection `json:"value"`
}

type countRequest struct {
	Count int `json:"count"`
}

// AutoSelectResponse is the body returned by the auto-select route.
type AutoSelectResponse struct {
	View View           `json:"view"`
	Run  pagination.Run `json:"run"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler exposes a Service over HTTP.
type Handler struct {
	svc    *Service
	mux    *http.ServeMux
	logger zerolog.Logger
}

// NewHandler registers the session routes.
func NewHandler(svc *Service) *Handler {
	h := &Handler{
		svc:    svc,
		mux:    http.NewServeMux(),
		logger: svc.logger,
	}

	h.mux.HandleFunc("POST /api/sessions", h.open)
	h.mux.HandleFunc("GET /api/sessions/{id}", h.load)
	h.mux.HandleFunc("POST /api/sessions/{id}/page", h.page)
	h.mux.HandleFunc("PUT /api/sessions/{id}/selection", h.selection)
	h.mux.HandleFunc("PUT /api/sessions/{id}/pending", h.pending)
	h.mux.HandleFunc("POST /api/sessions/{id}/autoselect", h.autoSelect)
	h.mux.HandleFunc("POST /api/sessions/{id}/reset", h.reset)
	h.mux.HandleFunc("DELETE /api/sessions/{id}", h.close)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h.mux.ServeHTTP(rec, r)

	h.logger.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", rec.status).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")
}

// Mount registers the handler below /api/ on mux.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.Handle("/api/", h)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Open(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if req.First == nil || req.Rows == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "first and rows are required"})
		return
	}

	v, err := h.svc.PageChange(r.Context(), r.PathValue("id"), *req.First, *req.Rows)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) selection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	v, err := h.svc.SelectionChange(r.Context(), r.PathValue("id"), req.Value)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	v, err := h.svc.SetPendingCount(r.Context(), r.PathValue("id"), req.Count)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) autoSelect(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	v, run, err := h.svc.AutoSelect(r.Context(), r.PathValue("id"), req.Count)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AutoSelectResponse{View: v, Run: run})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Reset(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusClientClosedRequest is reported when the caller cancels a request
// before the service finished it. The client never sees it.
const StatusClientClosedRequest = 499

// StatusFor maps service errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidPageChange),
		errors.Is(err, session.ErrInvalidPendingCount):
		return http.StatusBadRequest
	case errors.Is(err, ErrAutoSelectAborted):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError:
		h.logger.Error().Err(err).Msg("Request failed")
	case StatusClientClosedRequest:
		h.logger.Debug().Err(err).Msg("Client went away")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decodeBody reads a JSON body. An empty body is accepted only if optional.
func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return errors.New("request body is required")
		}
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
