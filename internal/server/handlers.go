package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frannie30/ip-add-identifier/internal/aggregate"
	"github.com/frannie30/ip-add-identifier/internal/entries"
	"github.com/frannie30/ip-add-identifier/internal/identity"
	"github.com/frannie30/ip-add-identifier/internal/snapshot"
)

// maxBodyBytes caps the size of a saved snapshot payload.
const maxBodyBytes = 1 << 20

// LocalFunc reports local host information.
type LocalFunc func(ctx context.Context) snapshot.Local

type Handlers struct {
	svc       *identity.Service
	local     LocalFunc
	providers []string
	backend   string
	started   time.Time
}

func NewHandlers(svc *identity.Service, opt Options) *Handlers {
	providers := opt.Providers
	if providers == nil {
		providers = []string{}
	}
	return &Handlers{
		svc:       svc,
		local:     opt.Local,
		providers: providers,
		backend:   opt.Backend,
		started:   time.Now(),
	}
}

func (h *Handlers) HandleIPInfo(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Aggregate(r.Context())
	if err != nil {
		log.Printf("Aggregate error: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type localInfoResponse struct {
	snapshot.Local
	Timestamp time.Time `json:"timestamp"`
}

func (h *Handlers) HandleLocalInfo(w http.ResponseWriter, r *http.Request) {
	local := snapshot.Local{LocalIPs: []string{}}
	if h.local != nil {
		local = h.local(r.Context())
	}
	if local.LocalIPs == nil {
		local.LocalIPs = []string{}
	}
	writeJSON(w, http.StatusOK, localInfoResponse{Local: local, Timestamp: time.Now().UTC()})
}

// saveRequest is a Snapshot with an optional title alongside its fields.
// Timestamp shadows the embedded field so zone-less values can be parsed.
type saveRequest struct {
	snapshot.Snapshot
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
}

func (h *Handlers) HandleSaveEntry(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid snapshot body: " + err.Error()})
		return
	}

	ts, err := snapshot.ParseTimestamp(req.Timestamp)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid snapshot body: " + err.Error()})
		return
	}
	req.Snapshot.Timestamp = ts

	title := strings.TrimSpace(req.Title)
	id, err := h.svc.CreateEntry(r.Context(), req.Snapshot, title)
	if err != nil {
		log.Printf("Save entry error: %v", err)
		writeError(w, err)
		return
	}
	if title == "" {
		title = entries.DefaultTitle(id)
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"id":      id,
		"title":   title,
	})
}

func (h *Handlers) HandleListEntries(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListEntries(r.Context())
	if err != nil {
		log.Printf("List entries error: %v", err)
		writeError(w, err)
		return
	}
	if list == nil {
		list = []entries.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": list,
		"total":   len(list),
	})
}

func (h *Handlers) HandleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": e})
}

func (h *Handlers) HandleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

type statusResponse struct {
	Providers     []string `json:"providers"`
	Backend       string   `json:"backend"`
	EntryCount    int      `json:"entryCount"`
	UptimeSeconds int64    `json:"uptimeSeconds"`
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListEntries(r.Context())
	if err != nil {
		log.Printf("Status error: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Providers:     h.providers,
		Backend:       h.backend,
		EntryCount:    len(list),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeError maps service errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidSnapshot):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, entries.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entry not found"})
	case errors.Is(err, aggregate.ErrAllProvidersFailed):
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":     "failed to retrieve IP information",
			"timestamp": time.Now().UTC(),
		})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
