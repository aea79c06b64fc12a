package report

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/futig/report-writer/internal/entity"
)

// streamWriter sends every fragment to the client as soon as it arrives.
type streamWriter struct {
	w  io.Writer
	rc *http.ResponseController
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *streamWriter) WriteFragment(text string) error {
	if _, err := io.WriteString(s.w, text); err != nil {
		return err
	}
	return s.flush()
}

func (s *streamWriter) flush() error {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// setStreamHeaders writes the plain-text streaming headers and the knowledge
// metadata. The query is percent-encoded so non-ASCII text survives as a
// header value, and is only reported when the knowledge base was asked.
func setStreamHeaders(h http.Header, k entity.KnowledgeQueryResult) {
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	h.Set("X-Content-Type-Options", "nosniff")

	query := ""
	if k.Status != entity.KnowledgeNoDataset && k.Status != entity.KnowledgeNoAPIKey {
		query = k.QueryText
	}
	h.Set("X-Knowledge-Used", strconv.FormatBool(k.Used()))
	h.Set("X-Knowledge-Status", string(k.Status))
	h.Set("X-Knowledge-Query", url.PathEscape(query))
	h.Set("X-Knowledge-Record-Count", strconv.Itoa(k.RecordCount))
}
