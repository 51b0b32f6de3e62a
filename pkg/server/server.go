// Package server provides the HTTP API for the web UI.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autodoc/autodoc/internal/model"
	"github.com/autodoc/autodoc/pkg/analyzer"
	"github.com/autodoc/autodoc/pkg/config"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
	"github.com/autodoc/autodoc/pkg/pipeline"
	"github.com/autodoc/autodoc/pkg/report"
	"github.com/autodoc/autodoc/pkg/summary"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to disk.
const multipartMemory = 32 << 20

// PreviewRows is the number of data rows returned by /api/analyze.
const PreviewRows = 50

// Options configures a Server.
type Options struct {
	Report        config.ReportConfig
	Summary       config.SummaryConfig
	MaxUploadSize int64
	Logger        *log.Logger
}

// Server handles HTTP requests for the web UI. Every action runs one whole
// pipeline in its own temporary directory.
type Server struct {
	opts     Options
	mux      *http.ServeMux
	staticFS fs.FS
	logger   *log.Logger
}

// AnalyzeResponse is the body of POST /api/analyze.
type AnalyzeResponse struct {
	RunID     string            `json:"run_id"`
	Columns   []string          `json:"columns"`
	RowCount  int               `json:"row_count"`
	Metrics   *analyzer.Metrics `json:"metrics"`
	Narrative string            `json:"narrative,omitempty"`
	Charts    []string          `json:"charts"`

	// TopCategories repeats metrics.top_categories as a list, so clients
	// that reorder numeric object keys still see count order.
	TopCategories []CategoryCount `json:"top_categories"`
	Preview       Preview         `json:"preview"`
}

// CategoryCount is one entry of AnalyzeResponse.TopCategories.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Preview is the header and the first PreviewRows rows of the dataset.
// Missing cells are null.
type Preview struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// NewServer creates a new HTTP server. staticFS holds index.html at its root.
func NewServer(staticFS fs.FS, opts Options) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = config.Default().Server.MaxUploadSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		opts:     opts,
		mux:      http.NewServeMux(),
		staticFS: staticFS,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures HTTP handlers.
func (s *Server) setupRoutes() {
	// API routes
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/report/pdf", s.handleReport)
	s.mux.HandleFunc("/api/report/xlsx", s.handleReport)

	// Static files (embedded HTML)
	s.mux.HandleFunc("/", s.handleStatic)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)
	s.logger.Printf("[server] %s %s %d %v", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handleStatic serves the embedded web UI.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	data, err := fs.ReadFile(s.staticFS, name)
	if err != nil {
		// Single page: everything unknown falls back to the form.
		name = "index.html"
		data, err = fs.ReadFile(s.staticFS, name)
		if err != nil {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
	}

	switch filepath.Ext(name) {
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case ".css":
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
	case ".js":
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	}

	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"})
}

// handleAnalyze runs load, analyze and (optionally) summarize and returns the
// results inline, with charts as data URIs.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	work, cleanup, err := s.workDir()
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	req, err := s.readRequest(w, r, work)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	charts := make([]string, 0, len(res.Charts))
	for _, c := range res.Charts {
		uri, err := dataURI(c)
		if err != nil {
			writeError(w, aderrors.Wrap(err, aderrors.CodeChartFailed, "failed to read chart"))
			return
		}
		charts = append(charts, uri)
	}

	resp := AnalyzeResponse{
		RunID:         res.RunID,
		Columns:       res.Metrics.Columns,
		RowCount:      res.Metrics.TotalRows,
		Metrics:       res.Metrics,
		Narrative:     res.Narrative,
		Charts:        charts,
		TopCategories: []CategoryCount{},
		Preview:       newPreview(res.Dataset, PreviewRows),
	}
	for _, c := range res.Metrics.TopCategories {
		resp.TopCategories = append(resp.TopCategories, CategoryCount{Value: c.Value, Count: c.Count})
	}
	jsonResponse(w, resp)
}

// newPreview copies the first n rows of ds. Infinite and NaN numbers are
// sent as text since JSON has no literal for them.
func newPreview(ds *model.Dataset, n int) Preview {
	p := Preview{Columns: ds.ColumnNames(), Rows: [][]interface{}{}}
	for i := 0; i < ds.NumRows() && i < n; i++ {
		values := ds.Row(i)
		row := make([]interface{}, len(values))
		for j, v := range values {
			if f, ok := v.Interface().(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
				row[j] = v.String()
				continue
			}
			row[j] = v.Interface()
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}

// handleReport renders one artifact and sends it as an attachment.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", "", http.StatusMethodNotAllowed)
		return
	}

	work, cleanup, err := s.workDir()
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()

	req, err := s.readRequest(w, r, work)
	if err != nil {
		writeError(w, err)
		return
	}

	pdf := strings.HasSuffix(r.URL.Path, "/pdf")
	req.PDF = pdf
	req.Excel = !pdf

	res, err := s.run(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	artifact, name, contentType := res.ExcelPath, report.XLSXFile, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	if pdf {
		artifact, name, contentType = res.PDFPath, report.PDFFile, "application/pdf"
	}

	f, err := os.Open(artifact)
	if err != nil {
		writeError(w, aderrors.Wrap(err, aderrors.CodeWriteFailed, "failed to open report"))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	io.Copy(w, f)
}

// run executes one pipeline with a runner built for this request.
func (s *Server) run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	opts := []pipeline.Option{
		pipeline.WithAnalyzer(analyzer.New(analyzer.WithChartSize(s.opts.Report.ChartWidth, s.opts.Report.ChartHeight))),
	}
	if req.Summary {
		opts = append(opts, pipeline.WithSummarizer(summary.New(s.opts.Summary)))
	}
	return pipeline.New(opts...).Run(ctx, req)
}

// workDir creates the per-request temporary directory.
func (s *Server) workDir() (string, func(), error) {
	dir := filepath.Join(os.TempDir(), "autodoc-"+uuid.New().String())
	if err := os.Mkdir(dir, 0700); err != nil {
		return "", nil, aderrors.Wrap(err, aderrors.CodeWriteFailed, "failed to create work directory")
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// readRequest parses the multipart form and stores the uploads in work.
func (s *Server) readRequest(w http.ResponseWriter, r *http.Request, work string) (pipeline.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return pipeline.Request{}, aderrors.Wrap(err, aderrors.CodeParseFailed, "invalid upload")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return pipeline.Request{}, aderrors.New(aderrors.CodeFileNotFound, "no data file uploaded")
	}
	defer file.Close()

	input, err := saveUpload(file, header, work, "input")
	if err != nil {
		return pipeline.Request{}, err
	}

	req := pipeline.Request{
		InputPath: input,
		OutputDir: filepath.Join(work, "output"),
		Title:     r.FormValue("title"),
		LogoPath:  s.opts.Report.Logo,
		Summary:   formBool(r.FormValue("ai")),
	}
	if req.Title == "" {
		req.Title = s.opts.Report.Title
	}

	if logo, logoHeader, err := r.FormFile("logo"); err == nil {
		defer logo.Close()
		req.LogoPath, err = saveUpload(logo, logoHeader, work, "logo")
		if err != nil {
			return pipeline.Request{}, err
		}
	}

	return req, nil
}

// saveUpload copies an uploaded part to work/<name><ext>, keeping only the
// client's extension so format detection still works.
func saveUpload(src multipart.File, header *multipart.FileHeader, work, name string) (string, error) {
	dst := filepath.Join(work, name+strings.ToLower(filepath.Ext(header.Filename)))
	out, err := os.Create(dst)
	if err != nil {
		return "", aderrors.Wrap(err, aderrors.CodeWriteFailed, "failed to store upload")
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return "", aderrors.Wrap(err, aderrors.CodeWriteFailed, "failed to store upload")
	}
	return dst, nil
}

func formBool(v string) bool {
	if v == "on" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// writeError maps err to a status: 400 for input problems, 500 otherwise.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case aderrors.IsInputError(err):
		status = http.StatusBadRequest
	}
	jsonError(w, err.Error(), string(aderrors.GetCode(err)), status)
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	json.NewEncoder(w).Encode(body)
}
