package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/futig/report-writer/internal/entity"
	pkgRetry "github.com/futig/report-writer/internal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fastRetry = pkgRetry.RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}

func TestGenerateOutline_RetriesTransientFailures(t *testing.T) {
	model := &fakeModel{completions: []func() (string, error){
		func() (string, error) { return "", &entity.UpstreamError{StatusCode: 502, Err: errors.New("bad gateway")} },
		func() (string, error) { return "\n\n", nil },
		func() (string, error) { return "一、概述\r\n\n  二、现状  \n三、建议\n", nil },
	}}
	uc := NewUsecase(model, &fakeKnowledge{}, testGenerationConfig(), 5, fastRetry, zap.NewNop())

	outline, err := uc.GenerateOutline(context.Background(), entity.OutlineRequest{Topic: "新能源"})

	require.NoError(t, err)
	assert.Equal(t, []string{"一、概述", "二、现状", "三、建议"}, outline)
	assert.Equal(t, 3, model.calls)
}

func TestGenerateOutline_AuthFailureNotRetried(t *testing.T) {
	model := &fakeModel{completions: []func() (string, error){
		func() (string, error) { return "", &entity.UpstreamError{StatusCode: 401, Auth: true, Err: errors.New("denied")} },
	}}
	uc := NewUsecase(model, &fakeKnowledge{}, testGenerationConfig(), 5, fastRetry, zap.NewNop())

	_, err := uc.GenerateOutline(context.Background(), entity.OutlineRequest{Topic: "新能源"})

	require.Error(t, err)
	assert.True(t, entity.IsAuthError(err))
	assert.Equal(t, 1, model.calls)
}

func TestGenerateOutline_EmptyTopic(t *testing.T) {
	model := &fakeModel{}
	uc := NewUsecase(model, &fakeKnowledge{}, testGenerationConfig(), 5, fastRetry, zap.NewNop())

	_, err := uc.GenerateOutline(context.Background(), entity.OutlineRequest{Topic: "  "})

	var vErr *entity.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "topic", vErr.Field)
	assert.Zero(t, model.calls)
}

func TestTransform(t *testing.T) {
	model := &fakeModel{completions: []func() (string, error){
		func() (string, error) { return "  精简后的文本\n", nil },
	}}
	uc := NewUsecase(model, &fakeKnowledge{}, testGenerationConfig(), 5, fastRetry, zap.NewNop())

	out, err := uc.Transform(context.Background(), entity.TransformRequest{Text: " 原文 ", Action: "simplify"})

	require.NoError(t, err)
	assert.Equal(t, "精简后的文本", out)

	_, err = uc.Transform(context.Background(), entity.TransformRequest{Text: "   "})
	assert.ErrorIs(t, err, entity.ErrMissingField)
}

func TestTestRetrieval(t *testing.T) {
	long := strings.Repeat("知", 350)
	kb := &fakeKnowledge{
		configured: true,
		defaults:   []string{"ds1"},
		result:     entity.KnowledgeQueryResult{Status: entity.KnowledgeUsed, SnippetText: long, RecordCount: 1},
	}
	uc := NewUsecase(&fakeModel{}, kb, testGenerationConfig(), 5, fastRetry, zap.NewNop())

	resp := uc.TestRetrieval(context.Background(), "")

	assert.True(t, resp.Success)
	assert.Equal(t, defaultTestQuery, resp.Query)
	assert.Equal(t, 350, resp.TotalChars)
	assert.Equal(t, strings.Repeat("知", 300)+"…", resp.Preview)

	kb.configured = false
	resp = uc.TestRetrieval(context.Background(), "x")
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
