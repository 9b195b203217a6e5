package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/service"
)

type IdentityHandlers struct {
	services      map[models.Kind]*service.VerificationService
	secureCookies bool
	logger        *logrus.Logger
}

func NewIdentityHandlers(services []*service.VerificationService, secureCookies bool, logger *logrus.Logger) *IdentityHandlers {
	byKind := make(map[models.Kind]*service.VerificationService, len(services))
	for _, svc := range services {
		byKind[svc.Kind()] = svc
	}
	return &IdentityHandlers{
		services:      byKind,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// phoneFields accepts the phone under its current and legacy names.
type phoneFields struct {
	Phone       string `json:"phone"`
	Mobile      string `json:"mobile"`
	PhoneNumber string `json:"phoneNumber"`
}

func (p phoneFields) value() string {
	for _, v := range []string{p.Phone, p.Mobile, p.PhoneNumber} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type SignupOTPRequest struct {
	phoneFields
	Name        string `json:"name"`
	TrainerName string `json:"trainerName"`
	Email       string `json:"email"`
	Course      string `json:"course"`
	Message     string `json:"message"`
	Technology  string `json:"technology"`
	Experience  string `json:"experience"`
}

func (req SignupOTPRequest) profile() models.Profile {
	name := req.Name
	if strings.TrimSpace(name) == "" {
		name = req.TrainerName
	}
	return models.Profile{
		Name:       name,
		Email:      req.Email,
		Course:     req.Course,
		Message:    req.Message,
		Technology: req.Technology,
		Experience: req.Experience,
	}
}

type SignupOTPResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AlreadyExists bool   `json:"alreadyExists"`
}

type LoginOTPRequest struct {
	phoneFields
}

type VerifyOTPRequest struct {
	phoneFields
	Code       string `json:"code"`
	OTP        string `json:"otp"`
	EnteredOTP string `json:"enteredOtp"`
}

func (req VerifyOTPRequest) code() string {
	for _, v := range []string{req.Code, req.OTP, req.EnteredOTP} {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type VerifyOTPResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Identity *models.Identity `json:"identity"`
}

// SessionIdentity is the identity projection decoded from a session credential.
type SessionIdentity struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Course     string `json:"course,omitempty"`
	Technology string `json:"technology,omitempty"`
}

type CheckAuthResponse struct {
	Identity *SessionIdentity `json:"identity"`
}

type IdentityListResponse struct {
	Success    bool              `json:"success"`
	Identities []models.Identity `json:"identities"`
}

type IdentityResponse struct {
	Success  bool             `json:"success"`
	Identity *models.Identity `json:"identity"`
}

func (h *IdentityHandlers) resolve(w http.ResponseWriter, r *http.Request) (*service.VerificationService, bool) {
	kind, err := models.ParseKind(mux.Vars(r)["kind"])
	if err == nil {
		if svc, ok := h.services[kind]; ok {
			return svc, true
		}
	}
	respondWithError(w, http.StatusNotFound, service.CodeNotFound, "Unknown identity kind")
	return nil, false
}

func (h *IdentityHandlers) SignupOTP(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req SignupOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeValidation, "Invalid request body")
		return
	}

	result, err := svc.RequestSignupOTP(r.Context(), req.value(), req.profile())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if result.AlreadyExists {
		respondWithJSON(w, http.StatusOK, SignupOTPResponse{
			Success:       false,
			Message:       fmt.Sprintf("%s already exists. Please login!", svc.Kind().Title()),
			AlreadyExists: true,
		})
		return
	}

	respondWithJSON(w, http.StatusOK, SignupOTPResponse{
		Success: true,
		Message: "OTP sent successfully",
	})
}

func (h *IdentityHandlers) LoginOTP(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req LoginOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeValidation, "Invalid request body")
		return
	}

	if err := svc.RequestLoginOTP(r.Context(), req.value()); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "OTP sent successfully",
	})
}

func (h *IdentityHandlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeValidation, "Invalid request body")
		return
	}
	if req.value() == "" || req.code() == "" {
		respondWithError(w, http.StatusBadRequest, service.CodeValidation, "Phone number and OTP are required")
		return
	}

	result, err := svc.VerifyOTP(r.Context(), req.value(), req.code())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     svc.Kind().CookieName(),
		Value:    result.Token.Token,
		Path:     "/",
		Expires:  result.Token.ExpiresAt,
		MaxAge:   int(result.Token.ExpiresIn),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondWithJSON(w, http.StatusOK, VerifyOTPResponse{
		Success:  true,
		Message:  "OTP verified successfully",
		Identity: result.Identity,
	})
}

func (h *IdentityHandlers) CheckAuth(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}

	token := ""
	if cookie, err := r.Cookie(svc.Kind().CookieName()); err == nil {
		token = cookie.Value
	}

	claims, err := svc.CheckAuth(token)
	if err != nil {
		h.logger.WithError(err).Debug("check-auth rejected")
		respondWithJSON(w, http.StatusUnauthorized, CheckAuthResponse{Identity: nil})
		return
	}

	respondWithJSON(w, http.StatusOK, CheckAuthResponse{Identity: &SessionIdentity{
		ID:         claims.Subject,
		Kind:       claims.Role,
		Phone:      claims.Phone,
		Name:       claims.Name,
		Course:     claims.Course,
		Technology: claims.Technology,
	}})
}

// Logout clears the session cookie. Issued tokens stay valid until they expire.
func (h *IdentityHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     svc.Kind().CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	respondWithJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

func (h *IdentityHandlers) List(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	identities, err := svc.ListIdentities(r.Context())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, IdentityListResponse{Success: true, Identities: identities})
}

func (h *IdentityHandlers) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	identity, err := svc.GetIdentity(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, IdentityResponse{Success: true, Identity: identity})
}

func (h *IdentityHandlers) Update(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var update models.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondWithError(w, http.StatusBadRequest, service.CodeValidation, "Invalid request body")
		return
	}

	identity, err := svc.UpdateIdentity(r.Context(), mux.Vars(r)["id"], update)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, IdentityResponse{Success: true, Identity: identity})
}

func (h *IdentityHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.resolve(w, r)
	if !ok {
		return
	}
	if err := svc.DeleteIdentity(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: svc.Kind().Title() + " deleted successfully",
	})
}
