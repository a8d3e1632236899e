package commandapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/crewboard/platform/internal/app/feedback"
	"github.com/crewboard/platform/internal/app/identity"
	"github.com/crewboard/platform/internal/app/knowledge"
	"github.com/crewboard/platform/internal/app/prefs"
	"github.com/crewboard/platform/internal/app/query"
	platformauth "github.com/crewboard/platform/internal/platform/auth"
	"github.com/crewboard/platform/internal/schedule"
)

type TaskReader interface {
	GetTaskByID(ctx context.Context, taskID string) (query.TaskView, error)
	ListForAssignee(ctx context.Context, assignee string, limit int) ([]query.TaskView, error)
	ListAll(ctx context.Context, limit int) ([]query.TaskView, error)
}

type Handler struct {
	Service       *Service
	Identity      *identity.Service
	Tasks         TaskReader
	Feedback      *feedback.Service
	Knowledge     *knowledge.Service
	Prefs         *prefs.Service
	AllowedOrigin string
}

func NewHandler(service *Service, identitySvc *identity.Service, taskReader TaskReader, allowedOrigin string) *Handler {
	return &Handler{
		Service:       service,
		Identity:      identitySvc,
		Tasks:         taskReader,
		AllowedOrigin: allowedOrigin,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.corsMiddleware)
	r.Options("/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/api/v1/auth/register", h.handleRegister)
	r.Post("/api/v1/auth/login", h.handleLogin)
	r.Post("/api/v1/auth/refresh", h.handleRefresh)
	r.Post("/api/v1/auth/logout", h.handleLogout)

	r.Group(func(authR chi.Router) {
		authR.Use(h.authMiddleware)
		authR.Post("/api/v1/command", h.handleCommand)
		authR.Get("/api/v1/tasks", h.handleListTasks)
		authR.Get("/api/v1/agenda", h.handleAgenda)
		authR.Get("/api/v1/tasks/export.ics", h.handleExportICS)
		authR.Get("/api/v1/directory", h.handleDirectory)
		authR.Post("/api/v1/users/{userID}/role", h.handleSetRole)

		authR.Post("/api/v1/feedback", h.handleSubmitFeedback)
		authR.Get("/api/v1/feedback", h.handleListFeedback)

		authR.Get("/api/v1/kb", h.handleListArticles)
		authR.Get("/api/v1/kb/{articleID}", h.handleGetArticle)
		authR.Post("/api/v1/kb", h.handleCreateArticle)
		authR.Put("/api/v1/kb/{articleID}", h.handleUpdateArticle)
		authR.Delete("/api/v1/kb/{articleID}", h.handleDeleteArticle)

		authR.Get("/api/v1/prefs/view", h.handleGetViewPref)
		authR.Put("/api/v1/prefs/view", h.handleSetViewPref)
	})

	return r
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	resp, err := h.Identity.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidUsername), errors.Is(err, identity.ErrInvalidPassword):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			if strings.Contains(strings.ToLower(err.Error()), "duplicate") {
				h.writeError(w, http.StatusConflict, "username already exists")
				return
			}
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	resp, err := h.Identity.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	resp, err := h.Identity.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrRefreshTokenMissing):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrInvalidRefreshToken):
			h.writeError(w, http.StatusUnauthorized, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.Identity.Logout(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, identity.ErrRefreshTokenMissing) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req TaskCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	claims := claimsFromContext(r.Context())
	isAdmin := h.Identity.IsAdmin(claims.Role)
	action := normalizeAction(req.Action)

	if action == "create-task" {
		if req.AssignedTo == "" {
			req.AssignedTo = claims.Subject
		}
		// Technicians schedule work for themselves only.
		if !isAdmin && strings.TrimSpace(req.AssignedTo) != claims.Subject {
			h.writeError(w, http.StatusForbidden, "technicians may only create their own tasks")
			return
		}
	} else {
		// Removal is permanent and reserved for dispatchers; owning a task
		// grants no right to delete it.
		if action == "delete-task" && !isAdmin {
			h.writeError(w, http.StatusForbidden, "only administrators may delete tasks")
			return
		}
		if h.Tasks == nil {
			h.writeError(w, http.StatusInternalServerError, "task reader is not configured")
			return
		}
		task, err := h.Tasks.GetTaskByID(r.Context(), req.TaskID)
		if err != nil {
			if errors.Is(err, query.ErrTaskNotFound) {
				h.writeError(w, http.StatusNotFound, "task not found")
				return
			}
			h.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !isAdmin && task.AssignedTo != claims.Subject {
			h.writeError(w, http.StatusForbidden, "insufficient permissions for this task")
			return
		}
		// The owning shard never changes on mutation; reassignment would
		// strand the projection row, so only admins may move a task and the
		// move is expressed through update-task.
		if action != "update-task" || !isAdmin || strings.TrimSpace(req.AssignedTo) == "" {
			req.AssignedTo = task.AssignedTo
		}
		// Recurrence settings always come from the stored task. Lifecycle
		// commands that echoed client-side values could otherwise clear the
		// recurrence flag or push out the end date, and the engine decides
		// follow-up spawning from the completion event alone.
		req.IsRecurring = task.IsRecurring
		req.RecurringType = task.RecurringType
		req.RecurringInterval = task.RecurringInterval
		req.RecurringEndDate = task.RecurringEndDate
		if req.Description == "" {
			req.Description = task.Description
		}
		switch action {
		case "complete-task", "reopen-task", "delete-task":
			req.Description = task.Description
			req.DueDate = task.DueDate
			req.DueTime = task.DueTime
		}
	}

	resp, err := h.Service.Accept(Actor{
		UserID:      claims.Subject,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrDescriptionRequired),
			errors.Is(err, ErrAssigneeRequired),
			errors.Is(err, ErrTaskIDRequired),
			errors.Is(err, ErrInvalidDueDate),
			errors.Is(err, ErrInvalidDueTime),
			errors.Is(err, ErrInvalidCompletionStatus),
			errors.Is(err, ErrNotesRequired),
			errors.Is(err, ErrInvalidRecurrence),
			errors.Is(err, ErrUnsupportedAction):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, resp)
}

// scopeForRequest resolves the assignee scope a caller is allowed to read.
// Technicians always get their own scope; admins may pass ?assignee= or
// ?assignee=all.
func (h *Handler) scopeForRequest(r *http.Request) (assignee string, all bool, err error) {
	claims := claimsFromContext(r.Context())
	if !h.Identity.IsAdmin(claims.Role) {
		return claims.Subject, false, nil
	}
	requested := strings.TrimSpace(r.URL.Query().Get("assignee"))
	switch requested {
	case "", "all":
		return "", true, nil
	default:
		return requested, false, nil
	}
}

func (h *Handler) tasksForRequest(r *http.Request) ([]query.TaskView, error) {
	assignee, all, err := h.scopeForRequest(r)
	if err != nil {
		return nil, err
	}
	if all {
		return h.Tasks.ListAll(r.Context(), 0)
	}
	return h.Tasks.ListForAssignee(r.Context(), assignee, 0)
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasksForRequest(r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := h.Service.Now()
	type taskWithStatus struct {
		query.TaskView
		Status schedule.Status `json:"status"`
	}
	out := make([]taskWithStatus, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskWithStatus{
			TaskView: t,
			Status:   schedule.Classify(t.DueDate, t.DueTime, t.Completed, now),
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

type agendaResponse struct {
	View      string                   `json:"view"`
	Reference string                   `json:"reference"`
	Buckets   schedule.Buckets         `json:"buckets"`
	Cells     []string                 `json:"cells,omitempty"`
	Events    []schedule.CalendarEvent `json:"events"`
}

func formatCells(dates []time.Time) []string {
	cells := make([]string, 0, len(dates))
	for _, d := range dates {
		cells = append(cells, d.Format(schedule.DateLayout))
	}
	return cells
}

func (h *Handler) handleAgenda(w http.ResponseWriter, r *http.Request) {
	view := strings.TrimSpace(r.URL.Query().Get("view"))
	if view == "" {
		view = schedule.ViewMonth
	}
	if !schedule.IsValidView(view) {
		h.writeError(w, http.StatusBadRequest, "view must be day, week or month")
		return
	}

	now := h.Service.Now()
	ref := now
	if raw := strings.TrimSpace(r.URL.Query().Get("ref")); raw != "" {
		parsed, err := time.ParseInLocation(schedule.DateLayout, raw, now.Location())
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "ref must be YYYY-MM-DD")
			return
		}
		ref = parsed
	}

	tasks, err := h.tasksForRequest(r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	directory, err := h.Identity.DirectoryMap(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	scheduled := make([]schedule.Task, 0, len(tasks))
	for _, t := range tasks {
		scheduled = append(scheduled, t.ToSchedule())
	}

	resp := agendaResponse{
		View:      view,
		Reference: ref.Format(schedule.DateLayout),
		Buckets:   schedule.GroupTasks(scheduled, now),
		Events:    schedule.ProjectAll(scheduled, directory, now),
	}
	switch view {
	case schedule.ViewMonth:
		resp.Cells = formatCells(schedule.MonthGrid(ref))
	case schedule.ViewWeek:
		resp.Cells = formatCells(schedule.WeekGrid(ref))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExportICS(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasksForRequest(r)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	directory, err := h.Identity.DirectoryMap(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := h.Service.Now()
	scheduled := make([]schedule.Task, 0, len(tasks))
	for _, t := range tasks {
		scheduled = append(scheduled, t.ToSchedule())
	}
	events := schedule.ProjectAll(scheduled, directory, now)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "crewboard-agenda.ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(schedule.BuildICS(events, now)))
}

func (h *Handler) handleDirectory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Identity.Directory(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"users": entries})
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	claims := claimsFromContext(r.Context())
	err := h.Identity.PromoteUser(r.Context(), claims.Role, userID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidRole):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, identity.ErrForbiddenRole):
			h.writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, identity.ErrNotFound):
			h.writeError(w, http.StatusNotFound, "user not found")
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin, Access-Control-Request-Headers")
		w.Header().Set("Access-Control-Allow-Origin", h.allowedOriginForRequest(r.Header.Get("Origin")))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

		requestHeaders := strings.TrimSpace(r.Header.Get("Access-Control-Request-Headers"))
		if requestHeaders != "" {
			w.Header().Set("Access-Control-Allow-Headers", requestHeaders)
		} else {
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) allowedOriginForRequest(requestOrigin string) string {
	allowed := strings.TrimSpace(h.AllowedOrigin)
	if allowed == "" {
		return "*"
	}
	if allowed == "*" {
		return allowed
	}

	origin := strings.TrimSpace(requestOrigin)
	if origin == "" {
		return allowed
	}
	if origin == allowed {
		return origin
	}
	if isEquivalentLoopbackOrigin(origin, allowed) {
		return origin
	}
	return allowed
}

func isEquivalentLoopbackOrigin(originA, originB string) bool {
	a, err := url.Parse(originA)
	if err != nil {
		return false
	}
	b, err := url.Parse(originB)
	if err != nil {
		return false
	}
	if !isLoopbackHost(a.Hostname()) || !isLoopbackHost(b.Hostname()) {
		return false
	}
	if a.Port() != b.Port() {
		return false
	}
	return strings.EqualFold(a.Scheme, b.Scheme)
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

type claimsContextKey struct{}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := platformauth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			h.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := h.Identity.AuthToken.Parse(token)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := r.Context()
		ctx = contextWithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func contextWithClaims(ctx context.Context, claims platformauth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

func claimsFromContext(ctx context.Context) platformauth.Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(platformauth.Claims)
	return claims
}
