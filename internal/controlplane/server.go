package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/schedule"
	"github.com/fentz26/dagsmith/internal/store"
)

// Version is reported by the health endpoint. It is set at build time.
var Version = "dev"

// Server provides the HTTP API for dagsmith.
type Server struct {
	service *Service
	store   *store.Store
	addr    string
	server  *http.Server
	log     *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(service *Service, st *store.Store, addr string) *Server {
	return &Server{
		service: service,
		store:   st,
		addr:    addr,
		log:     service.log,
	}
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Project endpoints
	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectByName)

	// Compile without storing
	mux.HandleFunc("/compile", s.handleCompile)

	// Schedule helpers
	mux.HandleFunc("/schedule/decode", s.handleScheduleDecode)
	mux.HandleFunc("/schedule/encode", s.handleScheduleEncode)
	mux.HandleFunc("/schedule/suggest", s.handleScheduleSuggest)

	// Deployment endpoints
	mux.HandleFunc("/deployments/", s.handleDeploymentByID)

	mux.HandleFunc("/health", s.handleHealth)

	return s.logRequests(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	s.log.Info("starting dagsmith daemon", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

// --- Health ---

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{
		OK:      true,
		DB:      "ok",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		resp.OK = false
		resp.DB = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// --- Project Handlers ---

// handleProjects handles POST /projects and GET /projects
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.saveProject(w, r)
	case http.MethodGet:
		s.listProjects(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProjectByName handles /projects/{name}/*
func (s *Server) handleProjectByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/projects/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "project name required", http.StatusBadRequest)
		return
	}

	name := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.getProject(w, r, name)
	case action == "" && r.Method == http.MethodDelete:
		s.deleteProject(w, r, name)
	case action == "compile" && r.Method == http.MethodPost:
		s.compileProject(w, r, name)
	case action == "deployments" && r.Method == http.MethodPost:
		s.startDeployment(w, r, name)
	case action == "history" && r.Method == http.MethodGet:
		s.projectHistory(w, r, name)
	default:
		s.writeError(w, fmt.Errorf("%w: %s %s", ErrNotFound, r.Method, r.URL.Path))
	}
}

func (s *Server) saveProject(w http.ResponseWriter, r *http.Request) {
	var cfg models.ProjectConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	rec, err := s.service.SaveProject(r.Context(), &cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if projects == nil {
		projects = []models.ProjectSummary{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, name string) {
	rec, err := s.service.GetProject(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.service.DeleteProject(r.Context(), name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) compileProject(w http.ResponseWriter, r *http.Request, name string) {
	res, err := s.service.CompileProject(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) projectHistory(w http.ResponseWriter, r *http.Request, name string) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.service.History(r.Context(), name, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.PDREntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCompile handles POST /compile with an inline configuration.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var cfg models.ProjectConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	res, err := s.service.Compile(&cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Schedule Handlers ---

func (s *Server) handleScheduleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.DescribeSchedule(r.URL.Query().Get("expr")))
}

func (s *Server) handleScheduleEncode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var d schedule.Descriptor
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	freq, err := schedule.ParseFrequency(string(d.Frequency))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	d.Frequency = freq
	writeJSON(w, http.StatusOK, s.service.EncodeSchedule(d))
}

func (s *Server) handleScheduleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.service.SuggestSchedule(r.URL.Query().Get("text")))
}

// --- Deployment Handlers ---

type startDeploymentRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) startDeployment(w http.ResponseWriter, r *http.Request, project string) {
	var req startDeploymentRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	v, err := s.service.StartDeployment(r.Context(), project, req.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// handleDeploymentByID handles /deployments/{id}/*
func (s *Server) handleDeploymentByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/deployments/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "deployment id required", http.StatusBadRequest)
		return
	}

	id := parts[0]
	action := ""
	if len(parts) > 1 {
		action = parts[1]
	}

	var (
		res interface{}
		err error
	)
	switch {
	case action == "" && r.Method == http.MethodGet:
		res, err = s.service.GetDeployment(r.Context(), id)
	case action == "run" && r.Method == http.MethodPost:
		res, err = s.service.RunStep(r.Context(), id)
	case action == "confirm" && r.Method == http.MethodPost:
		res, err = s.service.ConfirmDeployment(r.Context(), id)
	case action == "back" && r.Method == http.MethodPost:
		res, err = s.service.BackDeployment(r.Context(), id)
	case action == "runs" && r.Method == http.MethodGet:
		var runs []models.Run
		runs, err = s.service.Runs(r.Context(), id)
		if runs == nil {
			runs = []models.Run{}
		}
		res = runs
	default:
		s.writeError(w, fmt.Errorf("%w: %s %s", ErrNotFound, r.Method, r.URL.Path))
		return
	}

	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
