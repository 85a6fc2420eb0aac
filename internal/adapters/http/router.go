package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AREA-equipe/app/internal/application"
	"github.com/AREA-equipe/app/internal/domain"
	"github.com/go-chi/chi/v5"
)

const sessionCookieName = "tmn_session"

type contextKey string

const userKey contextKey = "user"

type Handler struct {
	service *application.PlaygroundService
}

func NewRouter(service *application.PlaygroundService) http.Handler {
	h := &Handler{service: service}
	r := chi.NewRouter()

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", h.handleRegister)
		api.Post("/auth/login", h.handleLogin)
		api.With(h.requireAuth).Get("/auth/whoami", h.handleWhoAmI)
		api.With(h.requireAuth).Post("/auth/logout", h.handleLogout)

		api.With(h.requireAuth).Get("/catalog/actions", h.handleListActionKinds)
		api.With(h.requireAuth).Get("/catalog/reactions", h.handleListReactionKinds)

		api.With(h.requireAuth).Get("/playgrounds", h.handleListPlaygrounds)
		api.With(h.requireAuth).Post("/playgrounds", h.handleCreatePlayground)
		api.With(h.requireAuth).Get("/playgrounds/{id}", h.handleGetPlayground)
		api.With(h.requireAuth).Patch("/playgrounds/{id}", h.handleRenamePlayground)
		api.With(h.requireAuth).Delete("/playgrounds/{id}", h.handleDeletePlayground)

		api.With(h.requireAuth).Post("/playgrounds/{playgroundID}/actions/{actionKindID}", h.handleAddAction)
		api.With(h.requireAuth).Delete("/playgrounds/{playgroundID}/actions/{instanceID}", h.handleRemoveAction)
		api.With(h.requireAuth).Post("/playgrounds/{playgroundID}/reactions/{reactionKindID}", h.handleAddReaction)
		api.With(h.requireAuth).Patch("/playgrounds/{playgroundID}/reactions/{instanceID}", h.handlePatchReactionSettings)
		api.With(h.requireAuth).Delete("/playgrounds/{playgroundID}/reactions/{instanceID}", h.handleRemoveReaction)

		api.With(h.requireAuth).Post("/links/action/{triggerID}/{reactionID}", h.handleLinkAction)
		api.With(h.requireAuth).Post("/links/reaction/{triggerID}/{reactionID}", h.handleLinkReaction)
		api.With(h.requireAuth).Delete("/links/action/{linkID}", h.handleUnlinkAction)
		api.With(h.requireAuth).Delete("/links/reaction/{linkID}", h.handleUnlinkReaction)
	})

	return r
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := h.authenticateRequest(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.User, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[7:])
		user, err := h.service.AuthenticateBearerToken(r.Context(), token)
		if err == nil {
			return user, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		user, authErr := h.service.AuthenticateSession(r.Context(), c.Value)
		if authErr == nil {
			return user, true
		}
	}

	return domain.User{}, false
}

func userFromContext(ctx context.Context) (domain.User, bool) {
	value := ctx.Value(userKey)
	if value == nil {
		return domain.User{}, false
	}
	user, ok := value.(domain.User)
	return user, ok
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	u, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "email": u.Email})
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"token_name"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "token"
	}

	if mode == "session" {
		u, token, err := h.service.LoginWithSession(r.Context(), req.Email, req.Password, 12*time.Hour)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
			return
		}
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "mode": "session"})
		return
	}

	u, token, err := h.service.LoginWithAPIToken(r.Context(), req.Email, req.Password, req.TokenName, nil)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "token": token, "mode": "token"})
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "email": user.Email})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	c, err := r.Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		_ = h.service.LogoutSession(r.Context(), c.Value)
		h.clearSessionCookie(w)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleListActionKinds(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListActionKinds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleListReactionKinds(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListReactionKinds(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleListPlaygrounds(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	items, err := h.service.ListPlaygrounds(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreatePlayground(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	v, err := h.service.CreatePlayground(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleGetPlayground(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	graph, err := h.service.GetPlayground(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleRenamePlayground(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.RenamePlayground(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleDeletePlayground(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeletePlayground(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (h *Handler) handleAddAction(w http.ResponseWriter, r *http.Request) {
	playgroundID, err := domain.ParseID(chi.URLParam(r, "playgroundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	actionKindID, err := domain.ParseID(chi.URLParam(r, "actionKindID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req positionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	v, err := h.service.AddActionInstance(r.Context(), playgroundID, actionKindID, req.X, req.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleRemoveAction(w http.ResponseWriter, r *http.Request) {
	playgroundID, err := domain.ParseID(chi.URLParam(r, "playgroundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	instanceID, err := domain.ParseID(chi.URLParam(r, "instanceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.RemoveActionInstance(r.Context(), playgroundID, instanceID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type addReactionRequest struct {
	Settings map[string]any `json:"settings"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
}

func (h *Handler) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	playgroundID, err := domain.ParseID(chi.URLParam(r, "playgroundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	reactionKindID, err := domain.ParseID(chi.URLParam(r, "reactionKindID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req addReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.AddReactionInstance(r.Context(), playgroundID, reactionKindID, req.Settings, req.X, req.Y)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

type patchSettingsRequest struct {
	Settings map[string]any `json:"settings"`
}

func (h *Handler) handlePatchReactionSettings(w http.ResponseWriter, r *http.Request) {
	playgroundID, err := domain.ParseID(chi.URLParam(r, "playgroundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	instanceID, err := domain.ParseID(chi.URLParam(r, "instanceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req patchSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	v, err := h.service.UpdateReactionSettings(r.Context(), playgroundID, instanceID, req.Settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	playgroundID, err := domain.ParseID(chi.URLParam(r, "playgroundID"))
	if err != nil {
		writeError(w, err)
		return
	}
	instanceID, err := domain.ParseID(chi.URLParam(r, "instanceID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.RemoveReactionInstance(r.Context(), playgroundID, instanceID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleLinkAction(w http.ResponseWriter, r *http.Request) {
	triggerID, err := domain.ParseID(chi.URLParam(r, "triggerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	reactionID, err := domain.ParseID(chi.URLParam(r, "reactionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.LinkAction(r.Context(), triggerID, reactionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleLinkReaction(w http.ResponseWriter, r *http.Request) {
	triggerID, err := domain.ParseID(chi.URLParam(r, "triggerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	reactionID, err := domain.ParseID(chi.URLParam(r, "reactionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	v, err := h.service.LinkReaction(r.Context(), triggerID, reactionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handler) handleUnlinkAction(w http.ResponseWriter, r *http.Request) {
	linkID, err := domain.ParseID(chi.URLParam(r, "linkID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.UnlinkAction(r.Context(), linkID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleUnlinkReaction(w http.ResponseWriter, r *http.Request) {
	linkID, err := domain.ParseID(chi.URLParam(r, "linkID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.UnlinkReaction(r.Context(), linkID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
