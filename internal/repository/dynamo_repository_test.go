package repository

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ganatech/academy/internal/models"
)

// fakeDynamo serves the DynamoDB JSON protocol for the item operations and
// condition expressions the repositories issue, with one lock per request so
// conditional writes are atomic the way DynamoDB applies them.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]interface{}
	calls map[string]int
}

type fakeDynamoRequest struct {
	Key                       map[string]interface{} `json:"Key"`
	Item                      map[string]interface{} `json:"Item"`
	ConditionExpression       string                 `json:"ConditionExpression"`
	ExpressionAttributeValues map[string]interface{} `json:"ExpressionAttributeValues"`
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		items: make(map[string]map[string]interface{}),
		calls: make(map[string]int),
	}
}

func (f *fakeDynamo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("X-Amz-Target")
	op := target[strings.LastIndex(target, ".")+1:]

	var req fakeDynamoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		f.fail(w, "SerializationException", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++

	switch op {
	case "PutItem":
		key := itemID(req.Item)
		existing, exists := f.items[key]
		switch req.ConditionExpression {
		case "":
		case "attribute_not_exists(PK)":
			if exists {
				f.conditionFailed(w)
				return
			}
		case "attribute_exists(PK) AND id = :id":
			if !exists || attrS(existing, "id") != attrS(req.ExpressionAttributeValues, ":id") {
				f.conditionFailed(w)
				return
			}
		default:
			f.fail(w, "ValidationException", "unsupported condition "+req.ConditionExpression)
			return
		}
		f.items[key] = req.Item
		f.ok(w, map[string]interface{}{})

	case "GetItem":
		item, ok := f.items[itemID(req.Key)]
		if !ok {
			f.ok(w, map[string]interface{}{})
			return
		}
		f.ok(w, map[string]interface{}{"Item": item})

	case "DeleteItem":
		key := itemID(req.Key)
		item, ok := f.items[key]
		if req.ConditionExpression == "id = :id" &&
			(!ok || attrS(item, "id") != attrS(req.ExpressionAttributeValues, ":id")) {
			f.conditionFailed(w)
			return
		}
		delete(f.items, key)
		f.ok(w, map[string]interface{}{})

	case "UpdateItem":
		// Only the OTP clear is issued as an update with this condition.
		if req.ConditionExpression != "id = :id AND #otp.code_hash = :hash" {
			f.fail(w, "ValidationException", "unsupported condition "+req.ConditionExpression)
			return
		}
		item, ok := f.items[itemID(req.Key)]
		if !ok ||
			attrS(item, "id") != attrS(req.ExpressionAttributeValues, ":id") ||
			otpHash(item) != attrS(req.ExpressionAttributeValues, ":hash") {
			f.conditionFailed(w)
			return
		}
		delete(item, "otp")
		item["updated_at"] = req.ExpressionAttributeValues[":updated_at"]
		f.ok(w, map[string]interface{}{})

	default:
		f.fail(w, "UnknownOperationException", op)
	}
}

func (f *fakeDynamo) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeDynamo) ok(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeDynamo) conditionFailed(w http.ResponseWriter) {
	f.fail(w, "ConditionalCheckFailedException", "The conditional request failed")
}

func (f *fakeDynamo) fail(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"__type":  "com.amazonaws.dynamodb.v20120810#" + code,
		"message": message,
	})
}

func itemID(m map[string]interface{}) string {
	return attrS(m, "PK") + "|" + attrS(m, "SK")
}

func attrS(m map[string]interface{}, name string) string {
	av, _ := m[name].(map[string]interface{})
	s, _ := av["S"].(string)
	return s
}

func otpHash(item map[string]interface{}) string {
	av, _ := item["otp"].(map[string]interface{})
	fields, _ := av["M"].(map[string]interface{})
	return attrS(fields, "code_hash")
}

func setupDynamo(t *testing.T) (*dynamodb.Client, *fakeDynamo) {
	t.Helper()
	fake := newFakeDynamo()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := dynamodb.New(dynamodb.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test", Source: "test"}, nil
		}),
		RetryMaxAttempts: 1,
	})
	return client, fake
}

func TestDynamoPendingRepository_PutGetConsume(t *testing.T) {
	client, _ := setupDynamo(t)
	logger, _ := test.NewNullLogger()
	repo := NewDynamoPendingRepository(client, "AcademyTable", 15*time.Minute, logger)
	ctx := context.Background()

	if err := repo.Put(ctx, newPending("first", time.Now().UTC())); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put(ctx, newPending("second", time.Now().UTC())); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := repo.Get(ctx, models.KindStudent, "9876543210")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.ID != "second" || got.CodeHash != "hash-second" || got.Profile.Course != "X" {
		t.Fatalf("Get = %+v", got)
	}
	if other, _ := repo.Get(ctx, models.KindTrainer, "9876543210"); other != nil {
		t.Error("pending records must be scoped by kind")
	}

	ok, err := repo.Consume(ctx, models.KindStudent, "9876543210", "first")
	if err != nil || ok {
		t.Fatalf("Consume(superseded id) = %v, %v; want false", ok, err)
	}
	if still, _ := repo.Get(ctx, models.KindStudent, "9876543210"); still == nil {
		t.Fatal("a failed consume must leave the record in place")
	}
}

func TestDynamoPendingRepository_GetPastRetention(t *testing.T) {
	client, _ := setupDynamo(t)
	logger, _ := test.NewNullLogger()
	repo := NewDynamoPendingRepository(client, "AcademyTable", 15*time.Minute, logger)
	ctx := context.Background()

	if err := repo.Put(ctx, newPending("old", time.Now().Add(-16*time.Minute))); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := repo.Get(ctx, models.KindStudent, "9876543210")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil past retention", got)
	}
}

func TestDynamoPendingRepository_ConcurrentConsume(t *testing.T) {
	client, fake := setupDynamo(t)
	logger, _ := test.NewNullLogger()
	repo := NewDynamoPendingRepository(client, "AcademyTable", 15*time.Minute, logger)
	ctx := context.Background()

	if err := repo.Put(ctx, newPending("only", time.Now().UTC())); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Consume(ctx, models.KindStudent, "9876543210", "only")
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	if n := fake.count("DeleteItem"); n != 10 {
		t.Errorf("DeleteItem calls = %d, want 10", n)
	}
	if got, _ := repo.Get(ctx, models.KindStudent, "9876543210"); got != nil {
		t.Error("record should be gone after a successful consume")
	}
}

func TestDynamoIdentityRepository_CreateDuplicate(t *testing.T) {
	client, _ := setupDynamo(t)
	logger, _ := test.NewNullLogger()
	repo := NewDynamoIdentityRepository(client, "AcademyTable", models.KindTrainer, logger)
	ctx := context.Background()

	identity := models.NewIdentity(models.KindTrainer, "9876543210", models.Profile{Name: "T", Technology: "Go"})
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if identity.ID == "" || identity.Kind != models.KindTrainer {
		t.Errorf("identity = %+v", identity)
	}

	dup := models.NewIdentity(models.KindTrainer, "9876543210", models.Profile{Name: "Other"})
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("Create duplicate err = %v, want ErrDuplicatePhone", err)
	}

	found, err := repo.FindByPhone(ctx, "9876543210")
	if err != nil {
		t.Fatalf("FindByPhone: %v", err)
	}
	if found == nil || found.ID != identity.ID || found.Technology != "Go" {
		t.Errorf("FindByPhone = %+v", found)
	}
}

func TestDynamoIdentityRepository_ConcurrentClearOTP(t *testing.T) {
	client, _ := setupDynamo(t)
	logger, _ := test.NewNullLogger()
	repo := NewDynamoIdentityRepository(client, "AcademyTable", models.KindStudent, logger)
	ctx := context.Background()

	identity := models.NewIdentity(models.KindStudent, "9876543210", models.Profile{Name: "A", Course: "X"})
	if err := repo.Create(ctx, identity); err != nil {
		t.Fatalf("Create: %v", err)
	}
	identity.OTP = &models.EmbeddedOTP{
		CodeHash:  "hash-login",
		Purpose:   models.PurposeLogin,
		ExpiresAt: time.Now().Add(5 * time.Minute).UTC(),
	}
	if err := repo.Save(ctx, identity); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stale := *identity
	stale.OTP = &models.EmbeddedOTP{CodeHash: "hash-superseded"}
	if ok, err := repo.ClearOTP(ctx, &stale); err != nil || ok {
		t.Fatalf("ClearOTP(stale hash) = %v, %v; want false", ok, err)
	}

	loaded, err := repo.FindByPhone(ctx, "9876543210")
	if err != nil || loaded == nil || loaded.OTP == nil {
		t.Fatalf("FindByPhone = %+v, %v; want embedded OTP", loaded, err)
	}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			attempt := *loaded
			ok, err := repo.ClearOTP(ctx, &attempt)
			if err != nil {
				t.Errorf("ClearOTP: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	cleared, _ := repo.FindByPhone(ctx, "9876543210")
	if cleared == nil || cleared.OTP != nil {
		t.Errorf("OTP should be cleared: %+v", cleared)
	}
}
