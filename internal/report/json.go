package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/siteaudit/internal/model"
)

// JSONWriter encodes results and history as JSON documents, one per call.
type JSONWriter struct {
	baseWriter

	prefix, indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent, starting every line with
// prefix. Without it output is one compact line.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix, w.indent = prefix, indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes the bare result.
func (w *JSONWriter) Write(result *model.AuditResult) (int, error) {
	return w.encode(result)
}

// WriteHistory encodes history.
func (w *JSONWriter) WriteHistory(history *History) (int, error) {
	return w.encode(history)
}

// encode buffers the document so that a marshal error writes nothing.
// URLs keep their & and < > unescaped.
func (w *JSONWriter) encode(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.prefix != "" || w.indent != "" {
		enc.SetIndent(w.prefix, w.indent)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// JSONReport wraps a result with the generating version and its summary.
type JSONReport struct {
	// Version is the siteaudit version that generated this report.
	Version string `json:"version"`

	Summary *Summary           `json:"summary"`
	Result  *model.AuditResult `json:"result"`
}

// NewJSONReport creates a JSONReport.
func NewJSONReport(result *model.AuditResult, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: NewSummary(result),
		Result:  result,
	}
}

// FullJSONWriter outputs results wrapped with version and summary.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter creates a writer for wrapped results.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the wrapped result.
func (w *FullJSONWriter) Write(result *model.AuditResult) (int, error) {
	return w.encode(NewJSONReport(result, w.version))
}
