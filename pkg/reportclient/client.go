// Package reportclient consumes the streaming body endpoints of the report
// writer service.
package reportclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkghttp "github.com/futig/report-writer/pkg/http"
	"github.com/futig/report-writer/pkg/sections"
	"go.uber.org/zap"
)

const (
	bodyEndpoint    = "/api/body"
	sectionEndpoint = "/api/body-section"

	minSectionWords = 20
	readBufferSize  = 4096
)

// Request mirrors the JSON body the body endpoints accept.
type Request struct {
	Topic               string   `json:"topic"`
	Outline             []string `json:"outline"`
	WordCount           int      `json:"wordCount"`
	ReportTemplate      string   `json:"reportTemplate,omitempty"`
	CoreContent         string   `json:"coreContent,omitempty"`
	StyleMode           string   `json:"styleMode,omitempty"`
	ReferenceText       string   `json:"referenceText,omitempty"`
	KnowledgeDatasetIDs []string `json:"knowledgeDatasetIds,omitempty"`
	SectionIndex        *int     `json:"sectionIndex,omitempty"`
	WordCountPerSection int      `json:"wordCountPerSection,omitempty"`
}

// Knowledge is the retrieval metadata reported in response headers.
type Knowledge struct {
	Used        bool
	Status      string
	Query       string
	RecordCount int
}

type FullResult struct {
	Text      string
	Knowledge Knowledge
}

type SectionsResult struct {
	Text      string
	Sections  []string
	Completed []bool
	Knowledge []Knowledge
}

// APIError is a JSON error answered before any text was streamed.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("report service returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	connector   *pkghttp.Connector
	concurrency int
}

type Option func(*Client)

func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func New(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		connector: pkghttp.NewConnector(
			&pkghttp.ConnectorConfig{BaseURL: strings.TrimRight(baseURL, "/"), Logger: logger},
			pkghttp.WithRequestTimeout(0),
			pkghttp.WithConnClientTimeout(10*time.Second),
			pkghttp.WithDisableCompression(),
			pkghttp.WithRequestLogging(),
		),
		concurrency: sections.DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamFull generates the whole body in one request. onText receives every
// decoded piece as soon as it is read; the partial text is returned along
// with any error.
func (c *Client) StreamFull(ctx context.Context, req Request, onText func(text string)) (*FullResult, error) {
	req.SectionIndex = nil
	req.WordCountPerSection = 0

	var sb strings.Builder
	knowledge, err := c.stream(ctx, bodyEndpoint, req, func(text string) {
		sb.WriteString(text)
		if onText != nil {
			onText(text)
		}
	})
	return &FullResult{Text: sb.String(), Knowledge: knowledge}, err
}

// StreamSections issues one request per outline entry, a few at a time, and
// assembles the document in outline order.
func (c *Client) StreamSections(ctx context.Context, req Request, onProgress sections.Progress) (*SectionsResult, error) {
	total := len(req.Outline)
	perSection := req.WordCountPerSection
	if perSection <= 0 && total > 0 {
		perSection = max(minSectionWords, req.WordCount/total)
	}

	knowledge := make([]Knowledge, total)
	worker := func(ctx context.Context, index int, _ string, emit func(string)) error {
		sectionReq := req
		sectionReq.SectionIndex = &index
		sectionReq.WordCountPerSection = perSection

		k, err := c.stream(ctx, sectionEndpoint, sectionReq, emit)
		knowledge[index] = k
		return err
	}

	res, err := sections.Run(ctx, req.Outline, c.concurrency, worker, sections.WithProgress(onProgress))
	return &SectionsResult{
		Text:      sections.BuildFullText(req.Outline, res.Texts),
		Sections:  res.Texts,
		Completed: res.Completed,
		Knowledge: knowledge,
	}, err
}

func (c *Client) stream(ctx context.Context, endpoint string, req Request, emit func(string)) (Knowledge, error) {
	resp, err := c.connector.OpenStreamResponse(ctx, http.MethodPost, endpoint, req, pkghttp.WithHeader("Accept", "text/plain"))
	if err != nil {
		return Knowledge{}, toAPIError(err)
	}
	defer resp.Body.Close()

	knowledge := parseKnowledge(resp.Header)
	return knowledge, decodeStream(resp.Body, emit)
}

// decodeStream reads r incrementally and emits only whole UTF-8 sequences;
// a rune split across reads is held back until its remaining bytes arrive.
func decodeStream(r io.Reader, emit func(string)) error {
	var (
		buf     = make([]byte, readBufferSize)
		pending []byte
	)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			cut := completePrefix(pending)
			if cut > 0 {
				emit(string(pending[:cut]))
				pending = append(pending[:0], pending[cut:]...)
			}
		}
		if err != nil {
			if len(pending) > 0 {
				emit(string(pending))
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read body stream: %w", err)
		}
	}
}

func parseKnowledge(h http.Header) Knowledge {
	k := Knowledge{
		Used:   h.Get("X-Knowledge-Used") == "true",
		Status: h.Get("X-Knowledge-Status"),
	}
	if q := h.Get("X-Knowledge-Query"); q != "" {
		if decoded, err := url.PathUnescape(q); err == nil {
			k.Query = decoded
		} else {
			k.Query = q
		}
	}
	k.RecordCount, _ = strconv.Atoi(h.Get("X-Knowledge-Record-Count"))
	return k
}

func toAPIError(err error) error {
	var httpErr *pkghttp.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	var body struct {
		Error string `json:"error"`
	}
	msg := httpErr.Message
	if json.Unmarshal([]byte(msg), &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: httpErr.StatusCode, Message: msg}
}
