package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/service"
)

type contextKey string

const (
	adminKey     contextKey = "admin"
	requestIDKey contextKey = "request_id"
)

type AuthMiddleware struct {
	adminService *service.AdminService
	logger       *logrus.Logger
}

func NewAuthMiddleware(adminService *service.AdminService, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		adminService: adminService,
		logger:       logger,
	}
}

// RequireAdmin admits requests carrying a valid admin bearer token whose admin still exists.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := m.adminService.Authenticate(r.Context(), BearerToken(r))
		if err != nil {
			if service.CodeOf(err) != service.CodeUnauthenticated {
				m.logger.WithError(err).Error("Admin authorization failed")
				writeError(w, http.StatusInternalServerError, string(service.CodeUpstreamFailure), "Failed to authorize")
				return
			}
			m.logger.WithError(err).Debug("Admin token rejected")
			writeError(w, http.StatusUnauthorized, string(service.CodeUnauthenticated), errorMessage(err))
			return
		}

		ctx := context.WithValue(r.Context(), adminKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AdminFromContext returns the admin attached by RequireAdmin.
func AdminFromContext(ctx context.Context) (*models.Admin, bool) {
	admin, ok := ctx.Value(adminKey).(*models.Admin)
	return admin, ok
}

func errorMessage(err error) string {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "Not authorized"
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
		"code":    code,
	})
}
