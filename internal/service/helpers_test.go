package service

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"golang.org/x/crypto/bcrypt"

	"github.com/ganatech/academy/internal/config"
	"github.com/ganatech/academy/internal/models"
	"github.com/ganatech/academy/internal/notification/notificationtest"
	"github.com/ganatech/academy/internal/repository"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc        *VerificationService
	identities *repository.MemoryIdentityRepository
	pending    *repository.MemoryPendingRepository
	notifier   *notificationtest.Recorder
	tokens     *JWTService
	clock      *testClock
}

func newTokens(t *testing.T, clock *testClock) *JWTService {
	t.Helper()
	logger, _ := test.NewNullLogger()
	tokens, err := NewJWTService(&config.JWTConfig{
		SecretKey:   testSecret,
		UserExpiry:  7 * 24 * time.Hour,
		AdminExpiry: 24 * time.Hour,
	}, logger)
	if err != nil {
		t.Fatalf("NewJWTService: %v", err)
	}
	tokens.SetClock(clock.Now)
	return tokens
}

func newFixture(t *testing.T, kind models.Kind) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	clock := newTestClock()

	identities := repository.NewMemoryIdentityRepository()
	pending := repository.NewMemoryPendingRepository(15*time.Minute, logger)
	pending.SetClock(clock.Now)
	notifier := &notificationtest.Recorder{}
	tokens := newTokens(t, clock)

	svc := NewVerificationService(kind, identities, pending, notifier, tokens, &config.OTPConfig{
		Expiry:   5 * time.Minute,
		HashCost: bcrypt.MinCost,
	}, "+91", logger)
	svc.SetClock(clock.Now)

	return &fixture{
		svc:        svc,
		identities: identities,
		pending:    pending,
		notifier:   notifier,
		tokens:     tokens,
		clock:      clock,
	}
}

// sequence returns a generator yielding codes in order.
func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

func lastCode(t *testing.T, r *notificationtest.Recorder) string {
	t.Helper()
	msg, ok := r.Last()
	if !ok {
		t.Fatal("no message was sent")
	}
	idx := strings.LastIndex(msg.Body, "is: ")
	if idx < 0 {
		t.Fatalf("unexpected message body %q", msg.Body)
	}
	return msg.Body[idx+len("is: "):]
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var svcErr *Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected *service.Error, got %T: %v", err, err)
	}
	if svcErr.Code != want {
		t.Fatalf("code = %s, want %s (%v)", svcErr.Code, want, err)
	}
}

func studentProfile() models.Profile {
	return models.Profile{Name: "A", Course: "X"}
}
