package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBodyServer(t *testing.T, handler func(w http.ResponseWriter, sectionIndex *int)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SectionIndex *int `json:"sectionIndex"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		handler(w, body.SectionIndex)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRun_MissingArgs(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-topic", "t"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "-topic and -outline are required")
}

func TestRun_UnknownMode(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-topic", "t", "-outline", "一", "-mode", "batch"}, &stdout, &stderr)

	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), `unknown mode "batch"`)
}

func TestRun_FullModeWritesFile(t *testing.T) {
	url := newBodyServer(t, func(w http.ResponseWriter, _ *int) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "完整正文")
	})
	out := filepath.Join(t.TempDir(), "body.md")
	var stdout, stderr bytes.Buffer

	code := run([]string{"-url", url, "-topic", "t", "-outline", "一|二", "-out", out}, &stdout, &stderr)

	require.Equal(t, exitOK, code, stderr.String())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "完整正文", string(data))
}

func TestRun_FullModeLiveFailureReturnsCode(t *testing.T) {
	url := newBodyServer(t, func(w http.ResponseWriter, _ *int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"模型未配置"}`)
	})
	var stdout, stderr bytes.Buffer

	code := run([]string{"-url", url, "-topic", "t", "-outline", "一"}, &stdout, &stderr)

	assert.Equal(t, exitFailed, code)
	assert.Contains(t, stderr.String(), "generation failed")
}

func TestRun_SectionsFailureKeepsPartialText(t *testing.T) {
	url := newBodyServer(t, func(w http.ResponseWriter, sectionIndex *int) {
		if sectionIndex != nil && *sectionIndex == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"本节生成失败，请重试"}`)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "第一节正文")
	})
	out := filepath.Join(t.TempDir(), "body.md")
	var stdout, stderr bytes.Buffer

	code := run([]string{
		"-url", url, "-topic", "t", "-outline", "一|二",
		"-mode", "sections", "-concurrency", "1", "-out", out,
	}, &stdout, &stderr)

	assert.Equal(t, exitFailed, code)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "## 一\n\n第一节正文\n\n## 二", string(data))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b ", ","))
	assert.Nil(t, splitList("  ", "|"))
}
