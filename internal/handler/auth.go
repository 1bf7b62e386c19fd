package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/gradeboard/internal/i18n"
	"github.com/pavelanni/gradeboard/internal/model"
)

const sessionCookieName = "session"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.store.GetUserByUsername(req.Username)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		h.jsonError(w, r, http.StatusUnauthorized, i18n.T(r.Context(), "InvalidCredentials"))
		return
	}
	if user == nil || !user.Active {
		h.jsonError(w, r, http.StatusUnauthorized, i18n.T(r.Context(), "InvalidCredentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.jsonError(w, r, http.StatusUnauthorized, i18n.T(r.Context(), "InvalidCredentials"))
		return
	}

	token, err := h.store.CreateAuthSession(user.ID)
	if err != nil {
		slog.Error("failed to create auth session", "error", err)
		h.jsonError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   h.config.SecureCookies,
	})
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":      i18n.T(r.Context(), "LoginSuccess"),
		"username":    user.Username,
		"displayName": user.DisplayName,
		"role":        user.Role,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.store.DeleteAuthSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.SecureCookies,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": i18n.T(r.Context(), "LogoutSuccess")})
}

// requireAuth is middleware that checks for a valid session cookie.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			h.jsonError(w, r, http.StatusUnauthorized, i18n.T(r.Context(), "Unauthorized"))
			return
		}

		authSess, err := h.store.GetAuthSession(cookie.Value)
		if err != nil {
			slog.Error("failed to get auth session", "error", err)
			h.jsonError(w, r, http.StatusUnauthorized, i18n.T(r.Context(), "Unauthorized"))
			return
		}
		if authSess == nil {
			h.jsonError(w, r, http.StatusUnauthorized, i18n.T(r.Context(), "Unauthorized"))
			return
		}

		user, err := h.store.GetUserByID(authSess.UserID)
		if err != nil || user == nil || !user.Active {
			h.jsonError(w, r, http.StatusUnauthorized, i18n.T(r.Context(), "Unauthorized"))
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}
