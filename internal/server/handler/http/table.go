// Package http provides the REST handlers of the table server. The wire
// format follows PostgREST: rows are JSON objects, filters are passed as
// "column=op.value" query parameters and results are JSON arrays.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/GophLibrary/internal/models"
	"github.com/atinyakov/GophLibrary/internal/repository"
	"github.com/atinyakov/GophLibrary/internal/service"
)

// maxBodySize caps request bodies; records are a few hundred bytes.
const maxBodySize = 1 << 20

// TableService defines the table operations required by the TableHandler.
type TableService interface {
	List(ctx context.Context, table string) ([]json.RawMessage, error)
	Get(ctx context.Context, table string, id models.ID) (json.RawMessage, error)
	Create(ctx context.Context, table string, body json.RawMessage) (models.ID, error)
	Update(ctx context.Context, table string, id models.ID, patch json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, table string, id models.ID) error
}

// TableHandler handles the /rest/v1/{table} endpoints.
type TableHandler struct {
	TableService TableService
}

// apiError is the PostgREST error document.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Select handles GET requests. Without an id filter it returns every row;
// with one it returns an array holding zero or one row.
func (h *TableHandler) Select(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	id, hasID, err := idFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "PGRST100", err.Error())
		return
	}

	var rows []json.RawMessage
	if hasID {
		var row json.RawMessage
		row, err = h.TableService.Get(r.Context(), table, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			rows, err = []json.RawMessage{}, nil
		case err == nil:
			rows = []json.RawMessage{row}
		}
	} else {
		rows, err = h.TableService.List(r.Context(), table)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "PGRST100", "limit must be a non-negative integer")
			return
		}
		if n < len(rows) {
			rows = rows[:n]
		}
	}

	rows, err = project(rows, r.URL.Query().Get("select"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "PGRST102", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Insert handles POST requests carrying one row.
func (h *TableHandler) Insert(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	table := chi.URLParam(r, "table")
	id, err := h.TableService.Create(r.Context(), table, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	row, err := h.TableService.Get(r.Context(), table, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, []json.RawMessage{row})
}

// Update handles PATCH requests. An id filter is required.
func (h *TableHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	row, err := h.TableService.Update(r.Context(), chi.URLParam(r, "table"), id, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, []json.RawMessage{row})
}

// Delete handles DELETE requests. An id filter is required. The deleted
// row is returned when the client prefers a representation.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	table := chi.URLParam(r, "table")
	if !wantsRepresentation(r) {
		if err := h.TableService.Delete(r.Context(), table, id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	row, err := h.TableService.Get(r.Context(), table, id)
	if err == nil {
		err = h.TableService.Delete(r.Context(), table, id)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, []json.RawMessage{row})
}

// wantsRepresentation reports whether the client asked for the affected
// rows with "Prefer: return=representation".
func wantsRepresentation(r *http.Request) bool {
	for _, v := range r.Header.Values("Prefer") {
		for _, pref := range strings.Split(v, ",") {
			if strings.TrimSpace(pref) == "return=representation" {
				return true
			}
		}
	}
	return false
}

// idFilter parses an "id=eq.N" query parameter.
func idFilter(r *http.Request) (models.ID, bool, error) {
	raw, ok := r.URL.Query()["id"]
	if !ok {
		return 0, false, nil
	}
	if len(raw) != 1 || !strings.HasPrefix(raw[0], "eq.") {
		return 0, false, errors.New(`only the "id=eq.N" filter is supported`)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(raw[0], "eq."), 10, 16)
	if err != nil || n == 0 {
		return 0, false, errors.New("id must be an integer between 1 and 65535")
	}
	return models.ID(n), true, nil
}

func requireID(w http.ResponseWriter, r *http.Request) (models.ID, bool) {
	id, ok, err := idFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "PGRST100", err.Error())
		return 0, false
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "21000", "an id filter is required")
		return 0, false
	}
	return id, true
}

func readBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "PGRST102", "invalid body")
		return nil, false
	}
	return body, true
}

// project keeps the requested columns of every row. "" and "*" keep all.
func project(rows []json.RawMessage, sel string) ([]json.RawMessage, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || sel == "*" {
		return rows, nil
	}
	cols := strings.Split(sel, ",")
	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(row, &fields); err != nil {
			return nil, err
		}
		kept := make(map[string]json.RawMessage, len(cols))
		for _, c := range cols {
			c = strings.TrimSpace(c)
			if v, ok := fields[c]; ok {
				kept[c] = v
			}
		}
		b, err := json.Marshal(kept)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownTable), errors.Is(err, repository.ErrNoTable):
		writeError(w, http.StatusNotFound, "42P01", err.Error())
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "23505", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "PGRST116", err.Error())
	case errors.Is(err, service.ErrBadBody), errors.Is(err, service.ErrIDMismatch):
		writeError(w, http.StatusBadRequest, "PGRST102", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "XX000", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, apiError{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
