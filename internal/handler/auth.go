package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ErenYea9er69/MarketShop-sub000/internal/model"
	"github.com/ErenYea9er69/MarketShop-sub000/internal/validation"
)

type credentialsRequest struct {
	Login    string `json:"login" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type authResponse struct {
	UserID int64      `json:"userId"`
	Role   model.Role `json:"role"`
	Token  string     `json:"token"`
}

// Register обрабатывает регистрацию нового пользователя и сразу авторизует его.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode register request")
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, err, "register user error")
		return
	}

	h.issueSession(w, userID, model.RoleClient)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := validation.DecodeJSON(r.Body, &req); err != nil {
		h.writeError(w, err, "decode login request")
		return
	}

	u, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		h.writeError(w, err, "login user error")
		return
	}

	h.issueSession(w, u.ID, u.Role)
}

func (h *Handler) issueSession(w http.ResponseWriter, userID int64, role model.Role) {
	token, err := h.authMiddleware.SetAuthCookie(w, userID, role)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{UserID: userID, Role: role, Token: token})
}

// Logout удаляет cookie авторизации.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "get user error", zap.Int64("userID", userID))
		return
	}

	h.writeJSON(w, http.StatusOK, toUserResponse(*u))
}
