package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ganatech/academy/internal/config"
	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/notification"
	"github.com/ganatech/academy/internal/repository"
)

var (
	localPhonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	e164PhonePattern  = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// VerificationService runs the OTP signup and login flows for one identity kind.
//
// Signup challenges are staged in the pending store so that no identity exists until
// its code is verified. Login challenges are embedded on the existing identity.
// Both are cleared with a compare-and-delete, so a code verifies at most once.
type VerificationService struct {
	kind        models.Kind
	identities  repository.IdentityRepository
	pending     repository.PendingRepository
	notifier    notification.Notifier
	tokens      *JWTService
	expiry      time.Duration
	hashCost    int
	countryCode string
	logger      *logrus.Logger
	now         func() time.Time
	newCode     CodeGenerator
}

func NewVerificationService(
	kind models.Kind,
	identities repository.IdentityRepository,
	pending repository.PendingRepository,
	notifier notification.Notifier,
	tokens *JWTService,
	otpCfg *config.OTPConfig,
	countryCode string,
	logger *logrus.Logger,
) *VerificationService {
	hashCost := otpCfg.HashCost
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}
	return &VerificationService{
		kind:        kind,
		identities:  identities,
		pending:     pending,
		notifier:    notifier,
		tokens:      tokens,
		expiry:      otpCfg.Expiry,
		hashCost:    hashCost,
		countryCode: countryCode,
		logger:      logger,
		now:         time.Now,
		newCode:     GenerateCode,
	}
}

func (s *VerificationService) Kind() models.Kind {
	return s.kind
}

func (s *VerificationService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *VerificationService) SetCodeGenerator(gen CodeGenerator) {
	s.newCode = gen
}

// SignupResult reports whether a signup OTP was withheld because the phone is taken.
type SignupResult struct {
	AlreadyExists bool
}

// VerifyResult is the outcome of a successful verification.
type VerifyResult struct {
	Identity *models.Identity
	Token    *models.SessionToken
}

func (s *VerificationService) RequestSignupOTP(ctx context.Context, phone string, profile models.Profile) (*SignupResult, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	profile = profile.Normalize()
	if missing := profile.MissingFields(s.kind); len(missing) > 0 {
		return nil, newError(CodeValidation, "Missing required fields: "+strings.Join(missing, ", "), nil)
	}

	log := s.logger.WithFields(logrus.Fields{"kind": s.kind, "phone": phone})

	existing, err := s.identities.FindByPhone(ctx, phone)
	if err != nil {
		log.WithError(err).Error("Failed to look up identity")
		return nil, upstream("Failed to send OTP", err)
	}
	if existing != nil {
		log.Info("Signup requested for registered phone")
		return &SignupResult{AlreadyExists: true}, nil
	}

	code, hash, err := s.issueCode()
	if err != nil {
		log.WithError(err).Error("Failed to generate OTP")
		return nil, upstream("Failed to send OTP", err)
	}

	now := s.now()
	pending := &models.PendingVerification{
		ID:        uuid.New().String(),
		Kind:      s.kind,
		Phone:     phone,
		Profile:   profile,
		CodeHash:  hash,
		Purpose:   models.PurposeSignup,
		CreatedAt: now,
		ExpiresAt: now.Add(s.expiry),
	}
	if err := s.pending.Put(ctx, pending); err != nil {
		log.WithError(err).Error("Failed to stage signup")
		return nil, upstream("Failed to send OTP", err)
	}

	if err := s.dispatch(ctx, phone, models.PurposeSignup, code); err != nil {
		return nil, err
	}

	log.Info("Signup OTP sent")
	return &SignupResult{}, nil
}

func (s *VerificationService) RequestLoginOTP(ctx context.Context, phone string) error {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return err
	}
	log := s.logger.WithFields(logrus.Fields{"kind": s.kind, "phone": phone})

	identity, err := s.identities.FindByPhone(ctx, phone)
	if err != nil {
		log.WithError(err).Error("Failed to look up identity")
		return upstream("Failed to send OTP", err)
	}
	if identity == nil {
		return newError(CodeNotFound, fmt.Sprintf("%s not found. Please sign up first", s.kind.Title()), nil)
	}

	code, hash, err := s.issueCode()
	if err != nil {
		log.WithError(err).Error("Failed to generate OTP")
		return upstream("Failed to send OTP", err)
	}

	identity.OTP = &models.EmbeddedOTP{
		CodeHash:  hash,
		Purpose:   models.PurposeLogin,
		ExpiresAt: s.now().Add(s.expiry),
	}
	if err := s.identities.Save(ctx, identity); err != nil {
		log.WithError(err).Error("Failed to store login OTP")
		return upstream("Failed to send OTP", err)
	}

	if err := s.dispatch(ctx, phone, models.PurposeLogin, code); err != nil {
		return err
	}

	log.Info("Login OTP sent")
	return nil
}

// VerifyOTP checks code against the live challenge for phone and, on success, clears
// the challenge, materializes the identity for signups and issues a session token.
func (s *VerificationService) VerifyOTP(ctx context.Context, phone, code string) (*VerifyResult, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, newError(CodeValidation, "Phone number and OTP are required", nil)
	}
	log := s.logger.WithFields(logrus.Fields{"kind": s.kind, "phone": phone})

	identity, err := s.identities.FindByPhone(ctx, phone)
	if err != nil {
		log.WithError(err).Error("Failed to look up identity")
		return nil, upstream("Failed to verify OTP", err)
	}

	if identity != nil && identity.OTP != nil {
		return s.verifyEmbedded(ctx, log, identity, code)
	}
	return s.verifyPending(ctx, log, phone, code)
}

func (s *VerificationService) verifyEmbedded(ctx context.Context, log *logrus.Entry, identity *models.Identity, code string) (*VerifyResult, error) {
	if !s.matches(identity.OTP.CodeHash, identity.OTP.ExpiresAt, code) {
		return nil, errInvalidOrExpired
	}

	cleared, err := s.identities.ClearOTP(ctx, identity)
	if err != nil {
		log.WithError(err).Error("Failed to clear login OTP")
		return nil, upstream("Failed to verify OTP", err)
	}
	if !cleared {
		return nil, errNotRequested
	}
	identity.OTP = nil

	return s.complete(log, identity)
}

func (s *VerificationService) verifyPending(ctx context.Context, log *logrus.Entry, phone, code string) (*VerifyResult, error) {
	pending, err := s.pending.Get(ctx, s.kind, phone)
	if err != nil {
		log.WithError(err).Error("Failed to load pending signup")
		return nil, upstream("Failed to verify OTP", err)
	}
	if pending == nil {
		return nil, errNotRequested
	}
	if !s.matches(pending.CodeHash, pending.ExpiresAt, code) {
		return nil, errInvalidOrExpired
	}

	consumed, err := s.pending.Consume(ctx, s.kind, phone, pending.ID)
	if err != nil {
		log.WithError(err).Error("Failed to consume pending signup")
		return nil, upstream("Failed to verify OTP", err)
	}
	if !consumed {
		return nil, errNotRequested
	}

	identity := models.NewIdentity(s.kind, phone, pending.Profile)
	err = s.identities.Create(ctx, identity)
	if errors.Is(err, repository.ErrDuplicatePhone) {
		identity, err = s.identities.FindByPhone(ctx, phone)
		if err == nil && identity == nil {
			err = fmt.Errorf("identity vanished after duplicate phone")
		}
	}
	if err != nil {
		log.WithError(err).Error("Failed to create identity")
		return nil, upstream("Failed to verify OTP", err)
	}
	identity.OTP = nil

	log.WithField("id", identity.ID).Info("Identity created")
	return s.complete(log, identity)
}

func (s *VerificationService) complete(log *logrus.Entry, identity *models.Identity) (*VerifyResult, error) {
	token, err := s.tokens.IssueIdentityToken(identity)
	if err != nil {
		return nil, upstream("Failed to verify OTP", err)
	}
	log.WithField("id", identity.ID).Info("OTP verified")
	return &VerifyResult{Identity: identity, Token: token}, nil
}

// CheckAuth validates a session token issued for this service's kind.
func (s *VerificationService) CheckAuth(token string) (*Claims, error) {
	if token == "" {
		return nil, newError(CodeUnauthenticated, "Not authenticated", nil)
	}
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil, newError(CodeUnauthenticated, "Invalid or expired session", err)
	}
	if claims.Role != string(s.kind) {
		return nil, newError(CodeUnauthenticated, "Invalid or expired session", nil)
	}
	return claims, nil
}

// matches reports whether code is correct and the challenge is still live.
// Wrong and expired codes are deliberately indistinguishable.
func (s *VerificationService) matches(hash string, expiresAt time.Time, code string) bool {
	if !s.now().Before(expiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

func (s *VerificationService) issueCode() (string, string, error) {
	code, err := s.newCode()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash OTP: %w", err)
	}
	return code, string(hash), nil
}

func (s *VerificationService) dispatch(ctx context.Context, phone string, purpose models.Purpose, code string) error {
	body := fmt.Sprintf("Your OTP for %s %s is: %s", s.kind.Title(), purposeTitle(purpose), code)
	if err := s.notifier.Send(ctx, s.dialNumber(phone), body); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"kind":  s.kind,
			"phone": phone,
		}).Error("Failed to send OTP")
		return newError(CodeNotificationFailed, "Failed to send OTP", err)
	}
	return nil
}

func (s *VerificationService) dialNumber(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return s.countryCode + phone
}

func purposeTitle(p models.Purpose) string {
	if p == models.PurposeLogin {
		return "Login"
	}
	return "Signup"
}

// normalizePhone validates phone and returns its stored form. Numbers in the
// configured country are stored in their 10-digit local form whichever way they
// were entered, so one handset always maps to one record.
func (s *VerificationService) normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", newError(CodeValidation, "Phone number is required", nil)
	}
	if !localPhonePattern.MatchString(phone) && !e164PhonePattern.MatchString(phone) {
		return "", newError(CodeValidation, "Invalid phone number", nil)
	}
	if s.countryCode != "" && strings.HasPrefix(phone, s.countryCode) {
		if local := strings.TrimPrefix(phone, s.countryCode); localPhonePattern.MatchString(local) {
			return local, nil
		}
	}
	return phone, nil
}

var (
	errNotRequested     = newError(CodeNotRequested, "OTP not requested", nil)
	errInvalidOrExpired = newError(CodeInvalidOrExpired, "Invalid or expired OTP", nil)
)
