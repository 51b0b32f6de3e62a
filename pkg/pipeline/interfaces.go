// Package pipeline runs one AutoDoc invocation: load, analyze, summarize,
// render and optionally publish. Stages run strictly in sequence.
package pipeline

import (
	"context"
	"time"

	"github.com/autodoc/autodoc/internal/model"
	"github.com/autodoc/autodoc/pkg/analyzer"
)

// Stage names, also used as span suffixes (autodoc.<stage>).
const (
	StageLoad      = "load"
	StageAnalyze   = "analyze"
	StageSummarize = "summarize"
	StagePDF       = "pdf"
	StageXLSX      = "xlsx"
	StagePublish   = "publish"
)

// Publisher ships finished artifacts somewhere outside the output directory.
type Publisher interface {
	// Publish uploads files under runID and returns their remote locations.
	Publish(ctx context.Context, runID string, files []string) ([]string, error)
}

// Request describes one report run.
type Request struct {
	InputPath string
	OutputDir string
	Title     string
	LogoPath  string

	PDF     bool // render report.pdf
	Excel   bool // render report.xlsx
	Summary bool // generate the narrative
}

// StageEvent is sent to the stage hook before and after each stage.
type StageEvent struct {
	Stage    string
	Index    int // 1-based position among the stages of this run
	Total    int
	Done     bool
	Duration time.Duration // set when Done
	Err      error         // set when Done and the stage failed
}

// StageTiming records how long a stage took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result is everything a run produced.
type Result struct {
	RunID   string
	Dataset *model.Dataset
	Metrics *analyzer.Metrics
	Charts  []string

	Narrative    string
	HasNarrative bool

	PDFPath   string
	ExcelPath string
	Published []string

	Stages []StageTiming
}

// Artifacts returns the report files written by the run, PDF first.
func (r *Result) Artifacts() []string {
	var files []string
	if r.PDFPath != "" {
		files = append(files, r.PDFPath)
	}
	if r.ExcelPath != "" {
		files = append(files, r.ExcelPath)
	}
	return files
}
