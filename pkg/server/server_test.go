package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/autodoc/autodoc/internal/model"
	"github.com/autodoc/autodoc/pkg/config"
)

const salesCSV = "produto,receita\nA,100.5\nB,50\nA,0\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	web := fstest.MapFS{
		"index.html": {Data: []byte("<html>Gerar PDF</html>")},
	}
	cfg := config.Default()
	return NewServer(web, Options{
		Report:  cfg.Report,
		Summary: cfg.Summary,
		Logger:  log.New(io.Discard, "", 0),
	})
}

// upload builds a multipart request with the given file parts and fields.
func upload(t *testing.T, target string, files map[string][2]string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(f[1]))
	}
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("Expected status 'ok', got %v", resp["status"])
	}
}

func TestServer_Static(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/index.html", "/unknown"} {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest("GET", path, nil))

		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, w.Code)
		}
		if !strings.Contains(w.Body.String(), "Gerar PDF") {
			t.Errorf("GET %s: body = %q", path, w.Body.String())
		}
	}
}

func TestServer_Analyze(t *testing.T) {
	s := newTestServer(t)

	req := upload(t, "/api/analyze",
		map[string][2]string{"file": {"vendas.csv", salesCSV}},
		map[string]string{"title": "Vendas", "ai": "on"})
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		RunID     string                 `json:"run_id"`
		Columns   []string               `json:"columns"`
		RowCount  int                    `json:"row_count"`
		Metrics   map[string]interface{} `json:"metrics"`
		Narrative string                 `json:"narrative"`
		Charts    []string               `json:"charts"`
		TopCategories []CategoryCount `json:"top_categories"`
		Preview       Preview         `json:"preview"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}

	if resp.RunID == "" {
		t.Error("run_id should be set")
	}
	if resp.RowCount != 3 || len(resp.Columns) != 2 {
		t.Errorf("row_count=%d columns=%v", resp.RowCount, resp.Columns)
	}
	if resp.Metrics["category_column"] != "produto" {
		t.Errorf("category_column = %v", resp.Metrics["category_column"])
	}
	// No credential in the test config, so the fallback narrative is used.
	if !strings.Contains(resp.Narrative, "receita soma=150.50") {
		t.Errorf("narrative = %q", resp.Narrative)
	}
	if len(resp.Charts) != 3 {
		t.Fatalf("got %d charts, want 3", len(resp.Charts))
	}
	for _, c := range resp.Charts {
		if !strings.HasPrefix(c, "data:image/png;base64,") {
			t.Errorf("chart is not a PNG data URI: %.40s", c)
		}
	}

	top, ok := resp.Metrics["top_categories"].(map[string]interface{})
	if !ok || top["A"] != float64(2) || top["B"] != float64(1) {
		t.Errorf("metrics.top_categories = %v", resp.Metrics["top_categories"])
	}
	wantTop := []CategoryCount{{"A", 2}, {"B", 1}}
	if len(resp.TopCategories) != 2 || resp.TopCategories[0] != wantTop[0] || resp.TopCategories[1] != wantTop[1] {
		t.Errorf("top_categories = %v, want %v", resp.TopCategories, wantTop)
	}

	if want := []string{"produto", "receita"}; strings.Join(resp.Preview.Columns, ",") != strings.Join(want, ",") {
		t.Errorf("preview columns = %v, want %v", resp.Preview.Columns, want)
	}
	if len(resp.Preview.Rows) != 3 {
		t.Fatalf("preview has %d rows, want 3", len(resp.Preview.Rows))
	}
	if first := resp.Preview.Rows[0]; first[0] != "A" || first[1] != 100.5 {
		t.Errorf("preview row 0 = %v", first)
	}
}

func TestServer_AnalyzePreviewLimit(t *testing.T) {
	s := newTestServer(t)

	var csv strings.Builder
	csv.WriteString("valor\n")
	for i := 0; i < PreviewRows+20; i++ {
		csv.WriteString("1\n")
	}
	csv.WriteString("inf\n")

	req := upload(t, "/api/analyze", map[string][2]string{"file": {"big.csv", csv.String()}}, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		RowCount int     `json:"row_count"`
		Preview  Preview `json:"preview"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp.RowCount != PreviewRows+21 {
		t.Errorf("row_count = %d", resp.RowCount)
	}
	if len(resp.Preview.Rows) != PreviewRows {
		t.Errorf("preview has %d rows, want %d", len(resp.Preview.Rows), PreviewRows)
	}
}

func TestNewPreview_NonFinite(t *testing.T) {
	ds := model.NewDataset("mem", []string{"a", "b"})
	ds.AppendRow([]model.Value{model.Number(math.Inf(1)), model.Null()})

	p := newPreview(ds, PreviewRows)
	if p.Rows[0][0] != "+Inf" || p.Rows[0][1] != nil {
		t.Errorf("row = %v", p.Rows[0])
	}
	if _, err := json.Marshal(p); err != nil {
		t.Errorf("Marshal() error: %v", err)
	}
}

func TestServer_AnalyzeWithoutNarrative(t *testing.T) {
	s := newTestServer(t)

	req := upload(t, "/api/analyze", map[string][2]string{"file": {"vendas.csv", salesCSV}}, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["narrative"]; ok {
		t.Errorf("narrative should be omitted, got %v", resp["narrative"])
	}
}

func TestServer_Reports(t *testing.T) {
	tests := []struct {
		path        string
		contentType string
		filename    string
		magic       string
	}{
		{"/api/report/pdf", "application/pdf", "report.pdf", "%PDF-"},
		{"/api/report/xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "report.xlsx", "PK"},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			req := upload(t, tt.path,
				map[string][2]string{"file": {"vendas.csv", salesCSV}},
				map[string]string{"title": "Vendas", "ai": "true"})
			w := httptest.NewRecorder()
			s.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if got := w.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q", got)
			}
			if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, tt.filename) {
				t.Errorf("Content-Disposition = %q", got)
			}
			if !strings.HasPrefix(w.Body.String(), tt.magic) {
				t.Errorf("body does not start with %q", tt.magic)
			}
		})
	}
}

func TestServer_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{
			name:   "missing file",
			req:    upload(t, "/api/analyze", nil, map[string]string{"title": "x"}),
			status: http.StatusBadRequest,
			code:   "E101",
		},
		{
			name:   "unsupported format",
			req:    upload(t, "/api/report/pdf", map[string][2]string{"file": {"notes.txt", "hello"}}, nil),
			status: http.StatusBadRequest,
			code:   "E102",
		},
		{
			name:   "empty dataset",
			req:    upload(t, "/api/report/xlsx", map[string][2]string{"file": {"empty.csv", "a,b\n"}}, nil),
			status: http.StatusBadRequest,
			code:   "E103",
		},
		{
			name:   "invalid json",
			req:    upload(t, "/api/analyze", map[string][2]string{"file": {"bad.json", "{not json"}}, nil),
			status: http.StatusBadRequest,
			code:   "E104",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.ServeHTTP(w, tt.req)

			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
			resp := decodeError(t, w)
			if resp["code"] != tt.code {
				t.Errorf("code = %q, want %q", resp["code"], tt.code)
			}
			if resp["error"] == "" {
				t.Error("error message should be set")
			}
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/analyze", "/api/report/pdf"} {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s: expected 405, got %d", path, w.Code)
		}
	}
}

func TestServer_UploadTooLarge(t *testing.T) {
	cfg := config.Default()
	s := NewServer(fstest.MapFS{}, Options{
		Report:        cfg.Report,
		MaxUploadSize: 64,
		Logger:        log.New(io.Discard, "", 0),
	})

	req := upload(t, "/api/analyze",
		map[string][2]string{"file": {"big.csv", "a\n" + strings.Repeat("1\n", 200)}}, nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code < 400 {
		t.Errorf("oversized upload accepted with %d", w.Code)
	}
}
