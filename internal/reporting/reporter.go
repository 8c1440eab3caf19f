// -- internal/reporting/reporter.go --
package reporting

import (
	"fmt"
	"io"
	"os"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/typst-batch/internal/jobs"
	"github.com/xkilldash9x/typst-batch/internal/orchestrator"
)

// Document is the JSON form of a finished run.
type Document struct {
	RunID    string       `json:"run_id"`
	Tool     string       `json:"tool_version,omitempty"`
	Version  string       `json:"compiler_version,omitempty"`
	Phase    string       `json:"phase"`
	ExitCode int          `json:"exit_code"`
	Error    string       `json:"error,omitempty"`
	Results  []jobs.Entry `json:"results"`
}

// NewDocument converts a run report. toolVersion identifies this program.
func NewDocument(report *orchestrator.Report, toolVersion string) Document {
	doc := Document{
		RunID:    report.RunID,
		Tool:     toolVersion,
		Version:  report.Version,
		Phase:    string(report.Phase),
		ExitCode: report.ExitCode,
		Results:  []jobs.Entry{},
	}
	if report.Err != nil {
		doc.Error = report.Err.Error()
	}
	if report.Results != nil {
		doc.Results = report.Results.Entries()
	}
	return doc
}

// Reporter writes run documents to an output.
type Reporter interface {
	Write(doc Document) error
	// Close finalizes the report and closes any underlying file.
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a JSON reporter writing to outputPath, or to stdout when the
// path is empty or "stdout".
func New(outputPath string) (Reporter, error) {
	if outputPath == "" || outputPath == "stdout" {
		return NewJSONReporter(&nopWriteCloser{os.Stdout}), nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file %s: %w", outputPath, err)
	}
	return NewJSONReporter(f), nil
}

// JSONReporter writes indented JSON. It takes ownership of the writer.
type JSONReporter struct {
	w io.WriteCloser
}

// NewJSONReporter returns a reporter writing to w.
func NewJSONReporter(w io.WriteCloser) *JSONReporter {
	return &JSONReporter{w: w}
}

// Write encodes doc followed by a newline.
func (r *JSONReporter) Write(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Close closes the underlying writer.
func (r *JSONReporter) Close() error {
	return r.w.Close()
}

// WriteFile writes a single report to path.
func WriteFile(path string, report *orchestrator.Report, toolVersion string) (err error) {
	r, err := New(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report: %w", cerr)
		}
	}()
	return r.Write(NewDocument(report, toolVersion))
}
