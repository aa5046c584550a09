package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"pharmadb-backend/internal/models"
	"pharmadb-backend/internal/service"
	"pharmadb-backend/internal/state"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Explorer  *service.Explorer
	Sessions  *state.Store
	Publisher *service.GraphPublisher // nil when no graph database is configured
	Source    string
}

func NewHandler(explorer *service.Explorer, sessions *state.Store, publisher *service.GraphPublisher, source string) *Handler {
	return &Handler{
		Explorer:  explorer,
		Sessions:  sessions,
		Publisher: publisher,
		Source:    source,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	// Datasets
	r.Get("/api/datasets", h.GetStatus)
	r.Get("/api/datasets/{name}/columns", h.GetColumns)
	r.Get("/api/datasets/{name}/browse", h.Browse)

	// Products
	r.Get("/api/products/{id}", h.GetProduct)

	// Association rules
	r.Post("/api/rules/graph", h.RuleGraph)
	r.Post("/api/rules/export", h.ExportRules)
	r.Post("/api/rules/publish", h.PublishRules)

	// Sessions
	r.Post("/api/sessions", h.CreateSession)
	r.Get("/api/sessions/{id}", h.GetSession)
	r.Post("/api/sessions/{id}/events", h.HandleEvent)
	r.Delete("/api/sessions/{id}", h.DeleteSession)
}

// SessionResponse wraps a session's state and its current view
type SessionResponse struct {
	SessionID string             `json:"session_id"`
	State     state.SessionState `json:"state"`
	View      *service.View      `json:"view"`
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Datasets
// ============================================================================

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{Source: h.Source, Datasets: []models.DatasetStatus{}}
	for _, name := range models.TableNames {
		ds, ok := h.Explorer.Catalog().Table(name)
		if !ok {
			continue
		}
		resp.Datasets = append(resp.Datasets, models.DatasetStatus{
			Name:    name,
			Rows:    ds.Len(),
			Columns: ds.Schema().Len(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetColumns(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	columns, domains, profiles, err := h.Explorer.Columns(name)
	if err != nil {
		http.Error(w, fmt.Sprintf("Dataset %s not loaded", name), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"columns":  columns,
		"domains":  domains,
		"profiles": profiles,
	})
}

// Browse is the stateless tile browser: ?q=term&page=n
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	term := r.URL.Query().Get("q")
	page := getIntParam(r, "page", 1)

	view, err := h.Explorer.Browse(name, term, page)
	if err != nil {
		http.Error(w, fmt.Sprintf("Dataset %s not loaded", name), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ============================================================================
// Products
// ============================================================================

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details := h.Explorer.Details(id)
	if details.NotFound {
		http.Error(w, fmt.Sprintf("Product %s not found", id), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// ============================================================================
// Association rules
// ============================================================================

func (h *Handler) RuleGraph(w http.ResponseWriter, r *http.Request) {
	var req models.RulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	view, err := h.Explorer.RulesView(req.Filters, req.Label)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ExportRules streams the filtered rules table as CSV
func (h *Handler) ExportRules(w http.ResponseWriter, r *http.Request) {
	var req models.RulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	filtered, err := h.Explorer.FilterRules(req.Filters)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="association_rules.csv"`)

	writer := csv.NewWriter(w)
	writer.Write(filtered.Schema().Names())
	for _, rec := range filtered.Records() {
		values := rec.Values()
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String()
		}
		writer.Write(row)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Printf("Error writing rules export: %v", err)
	}
}

// PublishRules pushes the filtered rule graph to the graph database
func (h *Handler) PublishRules(w http.ResponseWriter, r *http.Request) {
	if h.Publisher == nil {
		http.Error(w, "No graph database configured", http.StatusServiceUnavailable)
		return
	}

	var req models.RulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	view, err := h.Explorer.RulesView(req.Filters, req.Label)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.Publisher.Publish(r.Context(), view.Graph)
	if err != nil {
		log.Printf("Failed to publish rule graph: %v", err)
		http.Error(w, fmt.Sprintf("Error publishing graph: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// Sessions
// ============================================================================

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	st := h.Sessions.Create()
	h.writeSession(w, http.StatusCreated, st)
}

// GetSession returns the current view, creating the session on first access
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	st := h.Sessions.GetOrCreate(chi.URLParam(r, "id"))
	h.writeSession(w, http.StatusOK, st)
}

func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var ev service.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var view *service.View
	st, err := h.Sessions.Apply(id, func(cur state.SessionState) (state.SessionState, error) {
		next, v, err := h.Explorer.Handle(ev, cur)
		if err != nil {
			return cur, err
		}
		view = v
		return next, nil
	})
	if errors.Is(err, service.ErrInvalidEvent) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("Event %s on session %s failed: %v", ev.Type, id, err)
		http.Error(w, fmt.Sprintf("Error handling event: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, State: st, View: view})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Sessions.Delete(id); err != nil {
		http.Error(w, fmt.Sprintf("Session %s not found", id), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, st state.SessionState) {
	view, err := h.Explorer.Render(st)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error rendering session: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, SessionResponse{SessionID: st.ID, State: st, View: view})
}

// ============================================================================
// Helpers
// ============================================================================

// writeJSON encodes before the status goes out, so an unencodable value
// becomes a 500 rather than a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func getIntParam(r *http.Request, name string, defaultVal int) int {
	valStr := r.URL.Query().Get(name)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
