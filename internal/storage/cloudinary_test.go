package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestCloudinaryFileStore_SaveKeepsExtension(t *testing.T) {
	var (
		mu     sync.Mutex
		fields = map[string]string{}
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mu.Lock()
		for key := range r.MultipartForm.Value {
			fields[key] = r.FormValue(key)
		}
		if file, _, err := r.FormFile("file"); err == nil {
			buf := new(strings.Builder)
			_, _ = io.Copy(buf, file)
			body = buf.String()
		}
		mu.Unlock()

		publicID := r.FormValue("folder") + "/" + r.FormValue("public_id")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"public_id":  publicID,
			"secure_url": "https://res.cloudinary.com/demo/raw/upload/v1/" + publicID,
		})
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	store, err := NewCloudinaryFileStore("demo", "key", "secret", "academy/courses", logger)
	if err != nil {
		t.Fatalf("NewCloudinaryFileStore: %v", err)
	}
	store.cld.Upload.Config.API.UploadPrefix = srv.URL

	stored, err := store.Save(context.Background(), "1772359200000-course_plan.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if fields["public_id"] != "1772359200000-course_plan.pdf" {
		t.Errorf("public_id = %q, want the extension kept", fields["public_id"])
	}
	if body != "%PDF-1.4" {
		t.Errorf("uploaded body = %q", body)
	}
	if stored.Key != "academy/courses/1772359200000-course_plan.pdf" {
		t.Errorf("Key = %q", stored.Key)
	}
	if !strings.HasSuffix(stored.URL, ".pdf") {
		t.Errorf("URL = %q, want .pdf suffix", stored.URL)
	}
}
