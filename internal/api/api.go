// Package api is the thin JSON HTTP/RPC transport adapter over
// internal/orchestrator: it parses requests, resolves identity from
// headers, calls the orchestrator, and serializes the result. No business
// logic lives here.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/taskhub/internal/config"
	"github.com/antigravity-dev/taskhub/internal/domain"
	"github.com/antigravity-dev/taskhub/internal/orchestrator"
)

// Server is the Taskhub HTTP API server.
type Server struct {
	cfg            config.API
	orch           *orchestrator.Orchestrator
	hub            *Hub
	logger         *slog.Logger
	startTime      time.Time
	httpServer     *http.Server
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server over orch. hub may be nil to disable
// the websocket discussion feed.
func NewServer(cfg config.API, orch *orchestrator.Orchestrator, hub *Hub, logger *slog.Logger) (*Server, error) {
	authMiddleware, err := NewAuthMiddleware(&cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:            cfg,
		orch:           orch,
		hub:            hub,
		logger:         logger,
		startTime:      time.Now(),
		authMiddleware: authMiddleware,
	}, nil
}

// Close closes the server's resources.
func (s *Server) Close() error {
	if s.authMiddleware != nil {
		return s.authMiddleware.Close()
	}
	return nil
}

// router builds the gorilla/mux route table. It is unexported; this
// package's tests call it directly to drive requests without a live listener.
func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.Use(s.authMiddleware.Middleware)

	v1.HandleFunc("/hunters/register", s.handleHunterRegister).Methods(http.MethodPost)
	v1.HandleFunc("/hunters/study", s.handleHunterStudy).Methods(http.MethodPost)

	v1.HandleFunc("/tasks", s.handleTaskPublish).Methods(http.MethodPost)
	v1.HandleFunc("/tasks", s.handleTaskList).Methods(http.MethodGet)
	v1.HandleFunc("/tasks/{id}/claim", s.handleTaskClaim).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}/start", s.handleTaskStart).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}/complete", s.handleTaskComplete).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}/archive", s.handleTaskArchive).Methods(http.MethodPost)
	v1.HandleFunc("/tasks/{id}", s.handleTaskDelete).Methods(http.MethodDelete)

	v1.HandleFunc("/reports", s.handleReportSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/reports/{id}/evaluate", s.handleReportEvaluate).Methods(http.MethodPost)

	v1.HandleFunc("/discussion", s.handleDiscussionPost).Methods(http.MethodPost)
	v1.HandleFunc("/discussion/unread", s.handleDiscussionUnread).Methods(http.MethodGet)
	v1.HandleFunc("/discussion/mark_read", s.handleDiscussionMarkRead).Methods(http.MethodPost)

	if s.hub != nil {
		v1.HandleFunc("/discussion/feed", s.handleDiscussionFeed).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	return r
}

// Start begins listening on the configured bind address. Blocks until ctx
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.cfg.Bind,
		Handler:     s.router(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "bind", s.cfg.Bind)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"healthy":  true,
		"uptime_s": time.Since(s.startTime).Seconds(),
	})
}

// --- hunter.* ---

func (s *Server) handleHunterRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Skills map[string]int `json:"skills"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err.Error() != "EOF" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h, err := s.orch.HunterRegister(r.Context(), r.Header, body.Skills)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, h)
}

func (s *Server) handleHunterStudy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		KnowledgeID string `json:"knowledge_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h, err := s.orch.HunterStudy(r.Context(), r.Header, body.KnowledgeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, h)
}

// --- task.* ---

func (s *Server) handleTaskPublish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name          string          `json:"name"`
		Details       string          `json:"details"`
		RequiredSkill string          `json:"required_skill"`
		DependsOn     []string        `json:"depends_on"`
		TaskType      domain.TaskType `json:"task_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.TaskType == "" {
		body.TaskType = domain.TaskNormal
	}
	t, err := s.orch.TaskPublish(r.Context(), r.Header, body.Name, body.Details, body.RequiredSkill, body.DependsOn, body.TaskType)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleTaskClaim(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]
	t, err := s.orch.TaskClaim(r.Context(), r.Header, taskID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleTaskStart(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]
	t, err := s.orch.TaskStart(r.Context(), r.Header, taskID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleTaskComplete(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]
	var body struct {
		Result      *string           `json:"result"`
		FinalStatus domain.TaskStatus `json:"final_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.orch.TaskComplete(r.Context(), r.Header, taskID, body.Result, body.FinalStatus)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter domain.TaskFilter
	if v := q.Get("status"); v != "" {
		status := domain.TaskStatus(v)
		filter.Status = &status
	}
	if v := q.Get("required_skill"); v != "" {
		filter.RequiredSkill = &v
	}
	if v := q.Get("hunter_id"); v != "" {
		filter.HunterID = &v
	}

	tasks, err := s.orch.TaskList(r.Context(), r.Header, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, tasks)
}

func (s *Server) handleTaskArchive(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]
	t, err := s.orch.TaskArchive(r.Context(), r.Header, taskID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	if err := s.orch.TaskDelete(r.Context(), r.Header, taskID, force); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"deleted": true})
}

// --- report.* ---

func (s *Server) handleReportSubmit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskID      string            `json:"task_id"`
		FinalStatus domain.TaskStatus `json:"status"`
		Result      *string           `json:"result"`
		Details     *string           `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.orch.ReportSubmit(r.Context(), r.Header, body.TaskID, body.FinalStatus, body.Result, body.Details)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleReportEvaluate(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["id"]
	var body struct {
		Score        int            `json:"score"`
		Feedback     string         `json:"feedback"`
		SkillUpdates map[string]int `json:"skill_updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.orch.ReportEvaluate(r.Context(), r.Header, reportID, body.Score, body.Feedback, body.SkillUpdates)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, res)
}

// --- discussion.* ---

func (s *Server) handleDiscussionPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	msg, err := s.orch.DiscussionPost(r.Context(), r.Header, body.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, msg)
}

func (s *Server) handleDiscussionUnread(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.orch.DiscussionUnread(r.Context(), r.Header)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, msgs)
}

func (s *Server) handleDiscussionMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DiscussionMarkRead(r.Context(), r.Header); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"marked_read": true})
}
