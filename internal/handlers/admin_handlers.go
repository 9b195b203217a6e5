package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/middleware"
	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/service"
)

type AdminHandlers struct {
	adminService *service.AdminService
	logger       *logrus.Logger
}

func NewAdminHandlers(adminService *service.AdminService, logger *logrus.Logger) *AdminHandlers {
	return &AdminHandlers{
		adminService: adminService,
		logger:       logger,
	}
}

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	Success   bool          `json:"success"`
	Admin     *models.Admin `json:"admin"`
	Token     string        `json:"token"`
	TokenType string        `json:"token_type"`
	ExpiresIn int64         `json:"expires_in"`
}

type AdminResponse struct {
	Success bool          `json:"success"`
	Admin   *models.Admin `json:"admin"`
}

func (h *AdminHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeValidation, "Invalid request body")
		return
	}

	admin, token, err := h.adminService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AdminLoginResponse{
		Success:   true,
		Admin:     admin,
		Token:     token.Token,
		TokenType: token.TokenType,
		ExpiresIn: token.ExpiresIn,
	})
}

func (h *AdminHandlers) Me(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, service.CodeUnauthenticated, "Not authorized")
		return
	}
	respondWithJSON(w, http.StatusOK, AdminResponse{Success: true, Admin: admin})
}
