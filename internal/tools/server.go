package tools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// callResponse is the envelope every tool call returns. The agent runtime
// always gets a response it can relay conversationally; failures travel as
// text in Error, never as a bare transport fault.
type callResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// toolInfo describes one registered tool for discovery.
type toolInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

// Server exposes a tool registry over HTTP for the external agent runtime:
// GET /tools lists the registered operations, POST /tools/{name} invokes
// one with a flat JSON object of string parameters.
type Server struct {
	registry *Registry
	log      *slog.Logger
}

// NewServer creates a Server over the given registry.
func NewServer(registry *Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{registry: registry, log: log}
}

// Handler returns the HTTP handler for the tool surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tools", s.handleList)
	mux.HandleFunc("POST /tools/{name}", s.handleCall)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos := make([]toolInfo, 0)
	for _, t := range s.registry.List() {
		infos = append(infos, toolInfo{Name: t.Name, Description: t.Description, Params: t.Params})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	args := Args{}
	if r.Body != nil && r.ContentLength != 0 {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSON(w, http.StatusBadRequest, callResponse{
				Error: fmt.Sprintf("invalid JSON body: %v", err),
			})
			return
		}
		for k, v := range raw {
			args[k] = fmt.Sprint(v)
		}
	}

	start := time.Now()
	output, err := s.registry.Dispatch(r.Context(), name, args)
	s.log.Info("tool call",
		"tool", name,
		"duration", time.Since(start).Round(time.Millisecond),
		"success", err == nil)

	resp := callResponse{Success: err == nil, Output: output}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
