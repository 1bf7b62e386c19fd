package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-chi/chi/v5"
	"github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/model"
)

type userView struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"displayName"`
	Role        model.UserRole `json:"role"`
	Active      bool           `json:"active"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to list users")
		return
	}

	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = userView{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			Active:      u.Active,
		}
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
		Password    string `json:"password"`
		Role        string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		h.jsonError(w, r, http.StatusBadRequest, "username and password required")
		return
	}

	role := model.UserRole(req.Role)
	if role != model.UserRoleTeacher && role != model.UserRoleAdmin {
		role = model.UserRoleTeacher
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	if req.DisplayName == "" {
		req.DisplayName = req.Username
	}

	id, err := h.store.CreateUser(model.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	})
	if err != nil {
		slog.Error("failed to create user", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"id":     id,
		"status": i18n.T(r.Context(), "UserCreated"),
	})
}

func (h *Handler) handleToggleUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid user ID")
		return
	}

	if err := h.store.ToggleUserActive(id); err != nil {
		slog.Error("failed to toggle user active", "id", id, "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "failed to update user")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": i18n.T(r.Context(), "UserToggled")})
}
