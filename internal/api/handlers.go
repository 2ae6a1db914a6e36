package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/creativecenter"
	"github.com/maltedev/creative-center-scraper/internal/dom"
	"github.com/maltedev/creative-center-scraper/internal/table"
)

const (
	maxRequestBody = 2 << 20
	maxHTMLBody    = 32 << 20
	serviceName    = "scraper"
)

// Scraper is the browser-backed side of the API.
type Scraper interface {
	ScrapeTopProducts(ctx context.Context, req creativecenter.Request) (*creativecenter.Result, error)
	Open(ctx context.Context) (*creativecenter.OpenResult, error)
	Frames(ctx context.Context) (*creativecenter.FramesResult, error)
	Snapshot(ctx context.Context) (*creativecenter.Snapshot, error)
}

type Handlers struct {
	scraper   Scraper
	extractor *table.Extractor
	logger    *slog.Logger
	now       func() time.Time
}

func NewHandlers(scraper Scraper, extractor *table.Extractor, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper:   scraper,
		extractor: extractor,
		logger:    logger.With("component", "api"),
		now:       time.Now,
	}
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	MS      *int64 `json:"ms,omitempty"`
}

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	TS      string `json:"ts"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, HealthResponse{
		OK:      true,
		Service: serviceName,
		TS:      h.now().UTC().Format(time.RFC3339Nano),
	})
}

// ScrapeTopProducts runs a full dashboard scrape. The body is optional.
func (h *Handlers) ScrapeTopProducts(w http.ResponseWriter, r *http.Request) {
	started := h.now()

	var req creativecenter.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.scraper.ScrapeTopProducts(r.Context(), req)
	if err != nil {
		h.logger.Error("scrape failed", "error", err, "region", req.Region)
		h.respondTimedError(w, http.StatusInternalServerError, err.Error(), started)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ExtractionResponse is the table extracted from an uploaded HTML snapshot.
type ExtractionResponse struct {
	OK         bool            `json:"ok"`
	Headers    []string        `json:"headers"`
	HeaderKeys []string        `json:"header_keys"`
	Count      int             `json:"count"`
	MS         int64           `json:"ms"`
	Items      []*table.Record `json:"items"`
}

// ExtractHTML runs the table extractor over a saved page.
func (h *Handlers) ExtractHTML(w http.ResponseWriter, r *http.Request) {
	started := h.now()

	doc, err := dom.NewDocument(http.MaxBytesReader(w, r.Body, maxHTMLBody))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid html body")
		return
	}

	result, err := h.extractor.Extract(r.Context(), doc)
	if err != nil {
		if errors.Is(err, table.ErrTableNotRendered) {
			h.respondTimedError(w, http.StatusUnprocessableEntity, err.Error(), started)
			return
		}
		h.logger.Error("html extraction failed", "error", err)
		h.respondTimedError(w, http.StatusInternalServerError, err.Error(), started)
		return
	}

	h.respondJSON(w, http.StatusOK, ExtractionResponse{
		OK:         true,
		Headers:    result.Headers,
		HeaderKeys: result.HeaderKeys,
		Count:      len(result.Items),
		MS:         h.now().Sub(started).Milliseconds(),
		Items:      result.Items,
	})
}

func (h *Handlers) DebugOpen(w http.ResponseWriter, r *http.Request) {
	started := h.now()

	result, err := h.scraper.Open(r.Context())
	if err != nil {
		h.logger.Error("debug open failed", "error", err)
		h.respondTimedError(w, http.StatusInternalServerError, err.Error(), started)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) DebugFrames(w http.ResponseWriter, r *http.Request) {
	result, err := h.scraper.Frames(r.Context())
	if err != nil {
		h.logger.Error("debug frames failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) DebugSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := h.scraper.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("debug snapshot failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{Message: message})
}

func (h *Handlers) respondTimedError(w http.ResponseWriter, status int, message string, started time.Time) {
	ms := h.now().Sub(started).Milliseconds()
	h.respondJSON(w, status, ErrorResponse{Message: message, MS: &ms})
}
