package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		want    Location
		wantErr bool
	}{
		{"s3://reports", Location{Bucket: "reports"}, false},
		{"s3://reports/", Location{Bucket: "reports"}, false},
		{"s3://reports/team/weekly/", Location{Bucket: "reports", Prefix: "team/weekly"}, false},
		{"http://reports/x", Location{}, true},
		{"s3:///x", Location{}, true},
		{"", Location{}, true},
	}

	for _, tt := range tests {
		got, err := ParseURI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseURI(%q) = %+v, want %+v", tt.uri, got, tt.want)
		}
	}
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, runID, file, want string
	}{
		{"team", "run-1", "/tmp/out/report.pdf", "team/run-1/report.pdf"},
		{"", "run-1", "out/report.xlsx", "run-1/report.xlsx"},
		{"a/b", "r", `C:\out\report.pdf`, "a/b/r/report.pdf"},
	}

	for _, tt := range tests {
		if got := ObjectKey(tt.prefix, tt.runID, tt.file); got != tt.want {
			t.Errorf("ObjectKey(%q, %q, %q) = %q, want %q", tt.prefix, tt.runID, tt.file, got, tt.want)
		}
	}
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	cts  []string
	fail map[string]bool
}

func (f *fakeUploader) PutFile(_ context.Context, key, _, ct string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[key] {
		return errors.New("access denied")
	}
	f.keys = append(f.keys, key)
	f.cts = append(f.cts, ct)
	return nil
}

func (f *fakeUploader) URI(key string) string { return "s3://bucket/" + key }

func TestPublisher_Publish(t *testing.T) {
	up := &fakeUploader{}
	p := &Publisher{client: up, prefix: "reports"}

	uris, err := p.Publish(context.Background(), "run-1", []string{"out/report.pdf", "out/report.xlsx"})
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	wantKeys := []string{"reports/run-1/report.pdf", "reports/run-1/report.xlsx"}
	if !reflect.DeepEqual(up.keys, wantKeys) {
		t.Errorf("keys = %v, want %v", up.keys, wantKeys)
	}
	if up.cts[0] != "application/pdf" {
		t.Errorf("content type = %q", up.cts[0])
	}
	if uris[1] != "s3://bucket/reports/run-1/report.xlsx" {
		t.Errorf("uris = %v", uris)
	}
}

func TestPublisher_PartialFailure(t *testing.T) {
	up := &fakeUploader{fail: map[string]bool{"run-1/report.pdf": true}}
	p := &Publisher{client: up}

	uris, err := p.Publish(context.Background(), "run-1", []string{"report.pdf", "report.xlsx"})
	if !aderrors.IsCode(err, aderrors.CodePublishFailed) {
		t.Fatalf("Publish() error = %v, want %s", err, aderrors.CodePublishFailed)
	}
	if len(uris) != 1 {
		t.Errorf("uris = %v, want the one successful upload", uris)
	}
	if !strings.Contains(err.Error(), "1 of 2 uploaded") {
		t.Errorf("error = %q, want the upload count", err)
	}
}

func TestClient_PutFile(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		reqURL string
		body   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		reqURL = r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.3 test"), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := NewClient(context.Background(), Config{
		Region:          "us-east-1",
		Bucket:          "reports",
		Endpoint:        srv.URL,
		UsePathStyle:    true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if err := c.PutFile(context.Background(), "team/run-1/report.pdf", file, "application/pdf"); err != nil {
		t.Fatalf("PutFile() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut || reqURL != "/reports/team/run-1/report.pdf" {
		t.Errorf("request = %s %s", method, reqURL)
	}
	if string(body) != "%PDF-1.3 test" {
		t.Errorf("body = %q", body)
	}
}

func TestNewClient_RequiresBucket(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{Region: "us-east-1"}); err == nil {
		t.Error("NewClient() without bucket should fail")
	}
}
