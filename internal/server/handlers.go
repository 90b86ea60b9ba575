// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/pmid2nct/internal/ingest"
	"github.com/pdiddy/pmid2nct/internal/pubmed"
	"github.com/pdiddy/pmid2nct/internal/report"
	"github.com/pdiddy/pmid2nct/internal/runstore"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

// lookupFailedMessage is shown for any failure talking to PubMed. Details
// go to the log only.
const lookupFailedMessage = "The PubMed lookup failed. No results were produced; please try again later."

type pageData struct {
	Title  string
	Column string
	Error  string
	Run    types.Run
}

// APIRequest is the body of POST /api/lookup.
type APIRequest struct {
	PMIDs  []string `json:"pmids"`
	Source string   `json:"source,omitempty"`
}

// APIResponse is the body of a successful POST /api/lookup.
type APIResponse struct {
	RunID string `json:"run_id"`
	types.Result
}

func (h *Handler) handleIndex(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, "index", pageData{Title: "Upload", Column: h.column})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.uploadError(w, fmt.Sprintf("Could not read the upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.uploadError(w, "Choose a spreadsheet to upload.")
		return
	}
	defer file.Close()

	pmids, err := ingest.Read(file, header.Filename, h.column)
	if err != nil {
		h.uploadError(w, fmt.Sprintf("Could not read %s: %v", header.Filename, err))
		return
	}

	run, err := h.lookup(r, header.Filename, pmids)
	if err != nil {
		h.render(w, lookupStatus(err), "error", pageData{Title: "Lookup failed", Error: publicMessage(err)})
		return
	}
	h.render(w, http.StatusOK, "result", pageData{Title: run.Source, Run: run})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, "result", pageData{Title: run.Source, Run: run})
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, run.Result); err != nil {
		h.logger.Error().Err(err).Str("run_id", run.ID).Msg("rendering csv")
		http.Error(w, "rendering csv failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.CSVFilename))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleYAML(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := h.store.ExportYAML(r.Context(), id, &buf); err != nil {
		h.storeError(w, id, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleAPILookup(w http.ResponseWriter, r *http.Request) {
	var req APIRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxUpload)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// Same normalisation as spreadsheet cells, so "12345.0" queries 12345.
	pmids := make([]string, 0, len(req.PMIDs))
	for _, id := range req.PMIDs {
		if id = ingest.Normalize(id); id != "" {
			pmids = append(pmids, id)
		}
	}
	if len(pmids) == 0 {
		writeJSONError(w, http.StatusBadRequest, "pmids must not be empty")
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}

	run, err := h.lookup(r, source, pmids)
	if err != nil {
		writeJSONError(w, lookupStatus(err), publicMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{RunID: run.ID, Result: run.Result})
}

// lookup runs the pipeline and stores the result.
func (h *Handler) lookup(r *http.Request, source string, pmids []string) (types.Run, error) {
	result, err := h.runner.Run(r.Context(), pmids)
	if err != nil {
		h.logger.Error().Err(err).Str("source", source).Int("pmids", len(pmids)).Msg("lookup failed")
		return types.Run{}, err
	}
	run, err := h.store.Save(r.Context(), source, result)
	if err != nil {
		h.logger.Error().Err(err).Str("source", source).Msg("saving run")
		return types.Run{}, fmt.Errorf("saving run: %w", err)
	}
	return run, nil
}

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (types.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.storeError(w, id, err)
		return types.Run{}, false
	}
	return run, true
}

func (h *Handler) storeError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, runstore.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	h.logger.Error().Err(err).Str("run_id", id).Msg("loading run")
	http.Error(w, "loading run failed", http.StatusInternalServerError)
}

func (h *Handler) uploadError(w http.ResponseWriter, msg string) {
	h.render(w, http.StatusBadRequest, "index", pageData{Title: "Upload", Column: h.column, Error: msg})
}

// render executes a template into a buffer first so a template error never
// leaves a half-written page.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("rendering page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// lookupStatus maps a pipeline error to an HTTP status: failures of the
// upstream service are 502, anything else 500.
func lookupStatus(err error) int {
	var fe *pubmed.FetchError
	if errors.As(err, &fe) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func publicMessage(err error) string {
	var fe *pubmed.FetchError
	if errors.As(err, &fe) {
		return lookupFailedMessage
	}
	return "Internal error while processing the lookup."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
