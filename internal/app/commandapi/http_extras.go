package commandapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/crewboard/platform/internal/app/feedback"
	"github.com/crewboard/platform/internal/app/knowledge"
	"github.com/crewboard/platform/internal/app/prefs"
)

type feedbackRequest struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type articleRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

type viewPrefRequest struct {
	View string `json:"view"`
}

func (h *Handler) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	if h.Feedback == nil {
		h.writeError(w, http.StatusInternalServerError, "feedback service is not configured")
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	claims := claimsFromContext(r.Context())
	sub, err := h.Feedback.Submit(r.Context(), claims.Subject, req.Kind, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, feedback.ErrTextRequired), errors.Is(err, feedback.ErrInvalidKind):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	if h.Feedback == nil {
		h.writeError(w, http.StatusInternalServerError, "feedback service is not configured")
		return
	}
	claims := claimsFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.Feedback.List(r.Context(), h.Identity.IsAdmin(claims.Role), limit)
	if err != nil {
		if errors.Is(err, feedback.ErrForbidden) {
			h.writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"submissions": items})
}

func (h *Handler) handleListArticles(w http.ResponseWriter, r *http.Request) {
	if h.Knowledge == nil {
		h.writeError(w, http.StatusInternalServerError, "knowledge service is not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.Knowledge.List(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"articles": items})
}

func (h *Handler) articleIDFromRequest(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "articleID")))
	return id, err == nil
}

func (h *Handler) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	if h.Knowledge == nil {
		h.writeError(w, http.StatusInternalServerError, "knowledge service is not configured")
		return
	}
	id, ok := h.articleIDFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}
	article, err := h.Knowledge.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, knowledge.ErrArticleNotFound) {
			h.writeError(w, http.StatusNotFound, "article not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, article)
}

func (h *Handler) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	if h.Knowledge == nil {
		h.writeError(w, http.StatusInternalServerError, "knowledge service is not configured")
		return
	}
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	claims := claimsFromContext(r.Context())
	article, err := h.Knowledge.Create(r.Context(), h.Identity.IsAdmin(claims.Role), claims.Subject, req.Title, req.Body, req.Tags)
	if err != nil {
		h.writeArticleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, article)
}

func (h *Handler) handleUpdateArticle(w http.ResponseWriter, r *http.Request) {
	if h.Knowledge == nil {
		h.writeError(w, http.StatusInternalServerError, "knowledge service is not configured")
		return
	}
	id, ok := h.articleIDFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}
	var req articleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	claims := claimsFromContext(r.Context())
	article, err := h.Knowledge.Update(r.Context(), h.Identity.IsAdmin(claims.Role), id, req.Title, req.Body, req.Tags)
	if err != nil {
		h.writeArticleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, article)
}

func (h *Handler) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	if h.Knowledge == nil {
		h.writeError(w, http.StatusInternalServerError, "knowledge service is not configured")
		return
	}
	id, ok := h.articleIDFromRequest(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid article id")
		return
	}
	claims := claimsFromContext(r.Context())
	if err := h.Knowledge.Delete(r.Context(), h.Identity.IsAdmin(claims.Role), id); err != nil {
		h.writeArticleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeArticleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, knowledge.ErrTitleRequired), errors.Is(err, knowledge.ErrBodyRequired):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, knowledge.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, knowledge.ErrArticleNotFound):
		h.writeError(w, http.StatusNotFound, "article not found")
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleGetViewPref(w http.ResponseWriter, r *http.Request) {
	if h.Prefs == nil {
		h.writeError(w, http.StatusInternalServerError, "preferences service is not configured")
		return
	}
	claims := claimsFromContext(r.Context())
	view, err := h.Prefs.DefaultView(r.Context(), claims.Subject)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"view": view})
}

func (h *Handler) handleSetViewPref(w http.ResponseWriter, r *http.Request) {
	if h.Prefs == nil {
		h.writeError(w, http.StatusInternalServerError, "preferences service is not configured")
		return
	}
	var req viewPrefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	claims := claimsFromContext(r.Context())
	if err := h.Prefs.SetDefaultView(r.Context(), claims.Subject, req.View); err != nil {
		if errors.Is(err, prefs.ErrInvalidView) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
