package report

import (
	"io"

	"github.com/nao1215/siteaudit/internal/model"
)

// Writer renders audit results and site history in one output format.
// Both methods return the number of bytes written.
type Writer interface {
	Write(result *model.AuditResult) (int, error)
	WriteHistory(history *History) (int, error)
}

// MultiWriter fans every report out to several Writers, for example the
// terminal and a file. It stops at the first failing Writer.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write writes result to each Writer in order.
func (m *MultiWriter) Write(result *model.AuditResult) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.Write(result) })
}

// WriteHistory writes history to each Writer in order.
func (m *MultiWriter) WriteHistory(history *History) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteHistory(history) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	total := 0
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter holds the destination shared by the concrete writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
