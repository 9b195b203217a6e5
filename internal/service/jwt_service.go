package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/config"
	"github.com/ganatech/academy/internal/models"
)

// RoleAdmin is the role claim of administrator credentials.
const RoleAdmin = "admin"

type JWTService struct {
	secretKey   []byte
	userExpiry  time.Duration
	adminExpiry time.Duration
	logger      *logrus.Logger
	now         func() time.Time
}

func NewJWTService(cfg *config.JWTConfig, logger *logrus.Logger) (*JWTService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &JWTService{
		secretKey:   secretKey,
		userExpiry:  cfg.UserExpiry,
		adminExpiry: cfg.AdminExpiry,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// SetClock replaces the time source used for issuance and validation.
func (s *JWTService) SetClock(now func() time.Time) {
	s.now = now
}

// Claims is the signed session payload. Subject holds the record ID.
type Claims struct {
	Role       string `json:"role"`
	Phone      string `json:"phone,omitempty"`
	Name       string `json:"name,omitempty"`
	Course     string `json:"course,omitempty"`
	Technology string `json:"technology,omitempty"`
	Username   string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

func (s *JWTService) IssueIdentityToken(identity *models.Identity) (*models.SessionToken, error) {
	claims := &Claims{
		Role:  string(identity.Kind),
		Phone: identity.Phone,
		Name:  identity.Name,
	}
	switch identity.Kind {
	case models.KindStudent:
		claims.Course = identity.RoleAttribute()
	case models.KindTrainer:
		claims.Technology = identity.RoleAttribute()
	}
	return s.sign(identity.ID, claims, s.userExpiry)
}

func (s *JWTService) IssueAdminToken(admin *models.Admin) (*models.SessionToken, error) {
	claims := &Claims{
		Role:     RoleAdmin,
		Username: admin.Username,
	}
	return s.sign(admin.ID, claims, s.adminExpiry)
}

func (s *JWTService) sign(subject string, claims *Claims, expiry time.Duration) (*models.SessionToken, error) {
	now := s.now()
	expiresAt := now.Add(expiry)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &models.SessionToken{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		ExpiresIn: int64(expiry.Seconds()),
	}, nil
}

func (s *JWTService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
