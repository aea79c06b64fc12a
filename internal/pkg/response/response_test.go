package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/report-writer/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", entity.NewValidationError(entity.ErrEmptyBody, "body", "请求体为空"), 400, "请求体为空"},
		{"wrapped not found", fmt.Errorf("get: %w", entity.ErrDocumentNotFound), 404, MsgDocNotFound},
		{"no key", fmt.Errorf("open model stream: %w", entity.ErrModelNotConfigured), 503, MsgModelNoKey},
		{"auth", &entity.UpstreamError{StatusCode: 401, Auth: true, Err: errors.New("bad key")}, 500, MsgAuthFailed},
		{"encoding", fmt.Errorf("x: %w", &entity.EncodingError{Where: "user message"}), 500, MsgEncoding},
		{"other upstream", &entity.UpstreamError{StatusCode: 502, Err: errors.New("gateway")}, 500, "生成正文失败"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := Status(tc.err, "生成正文失败")
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, msg)
		})
	}

	_, msg := Status(errors.New("boom"), "")
	assert.Equal(t, MsgInternalFailed, msg)
}

func TestHandleErrorWritesJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(context.Background(), rec, entity.NewValidationError(entity.ErrMissingField, "topic", "缺少报告主题或大纲"), "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body entity.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "缺少报告主题或大纲", body.Error)
}
