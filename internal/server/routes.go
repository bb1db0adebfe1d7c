package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lazypower/stratum/internal/knowledge"
)

type itemJSON struct {
	ID             string            `json:"id"`
	Content        string            `json:"content,omitempty"`
	Kind           string            `json:"kind"`
	Importance     int               `json:"importance"`
	Tier           string            `json:"tier"`
	AccessCount    int               `json:"access_count"`
	LastAccessedAt int64             `json:"last_accessed_at"`
	Source         string            `json:"source,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	SemanticTags   []string          `json:"semantic_tags,omitempty"`
}

func toItemJSON(it knowledge.Item) itemJSON {
	return itemJSON{
		ID:             it.ID,
		Content:        it.Content,
		Kind:           string(it.Kind),
		Importance:     int(it.Importance),
		Tier:           string(it.Tier),
		AccessCount:    it.AccessCount,
		LastAccessedAt: it.LastAccessedAt.UnixMilli(),
		Source:         it.Source,
		Metadata:       it.Metadata,
		SemanticTags:   it.SemanticTags,
	}
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string            `json:"content"`
		Kind     string            `json:"kind"`
		Source   string            `json:"source"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, `{"error":"content required"}`, http.StatusBadRequest)
		return
	}
	kind, err := knowledge.ParseKind(req.Kind)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusBadRequest)
		return
	}

	id, err := s.engine.Route(r.Context(), req.Content, kind, req.Source, req.Metadata)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	it, err := s.db.GetItem(itemID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}
	if it == nil {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toItemJSON(*it))
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")

	edges, err := s.db.EdgesFor(itemID)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	type edgeJSON struct {
		ID       string  `json:"id"`
		Strength float64 `json:"strength"`
	}
	out := make([]edgeJSON, 0, len(edges))
	for _, e := range edges {
		out = append(out, edgeJSON{ID: e.ToID, Strength: e.Strength})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":        itemID,
		"neighbors": out,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error":"q parameter required"}`, http.StatusBadRequest)
		return
	}

	maxResults := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			maxResults = n
		}
	}

	results, err := s.engine.Retrieve(r.Context(), query, nil, maxResults)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	type resultJSON struct {
		Item  itemJSON `json:"item"`
		Score float64  `json:"score"`
	}
	out := make([]resultJSON, len(results))
	for i, res := range results {
		out[i] = resultJSON{Item: toItemJSON(res.Item), Score: res.Score}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   query,
		"count":   len(out),
		"results": out,
	})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	// Concurrent triggers share a single run via singleflight.
	rep, err := s.engine.OptimizeShared()
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

func (s *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if s.archiver == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "no archiver configured"})
		return
	}

	synced, requeued := s.engine.Queue().Drain(s.archiver)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"synced":   synced,
		"requeued": requeued,
	})
}
