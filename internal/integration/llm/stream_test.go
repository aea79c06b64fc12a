package llm

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/futig/report-writer/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingBody struct {
	io.Reader
	closes int
}

func (b *trackingBody) Close() error {
	b.closes++
	return nil
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func collect(t *testing.T, s *ChatStream) ([]string, error) {
	t.Helper()
	var out []string
	for fragment, err := range s.Fragments() {
		if err != nil {
			return out, err
		}
		out = append(out, fragment)
	}
	return out, nil
}

func TestChatStream_YieldsFragmentsInOrder(t *testing.T) {
	raw := strings.Join([]string{
		`: keep-alive`,
		`data: {"choices":[{"delta":{"content":"一、"}}]}`,
		``,
		`data: {"choices":[{"delta":{"content":"概述"}}]}`,
		`data: {not json}`,
		`data: {"choices":[]}`,
		`data: {"choices":[{"delta":{"content":"完成"},"finish_reason":"stop"}]}`,
		`data: [DONE]`,
		`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
	}, "\n")
	body := &trackingBody{Reader: strings.NewReader(raw)}

	fragments, err := collect(t, NewChatStream(body))

	require.NoError(t, err)
	assert.Equal(t, []string{"一、", "概述", "完成"}, fragments)
	assert.Equal(t, 1, body.closes)
}

func TestChatStream_EndsAtEOFWithoutSentinel(t *testing.T) {
	raw := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\r\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}"
	fragments, err := collect(t, NewChatStream(io.NopCloser(strings.NewReader(raw))))

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fragments)
}

func TestChatStream_InvalidUTF8IsEncodingError(t *testing.T) {
	raw := "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"\xe4\xb8\"}}]}\n"
	fragments, err := collect(t, NewChatStream(io.NopCloser(strings.NewReader(raw))))

	assert.Equal(t, []string{"ok"}, fragments)
	require.Error(t, err)
	assert.True(t, entity.IsEncodingError(err))
}

func TestChatStream_ReadFailureIsUpstreamError(t *testing.T) {
	reader := &failingReader{
		data: []byte("data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n"),
		err:  errors.New("connection reset"),
	}
	fragments, err := collect(t, NewChatStream(io.NopCloser(reader)))

	assert.Equal(t, []string{"partial"}, fragments)
	var upErr *entity.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.False(t, upErr.Auth)
}

func TestChatStream_BreakClosesBody(t *testing.T) {
	raw := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"
	body := &trackingBody{Reader: strings.NewReader(raw)}
	stream := NewChatStream(body)

	for fragment, err := range stream.Fragments() {
		require.NoError(t, err)
		assert.Equal(t, "a", fragment)
		break
	}

	assert.Equal(t, 1, body.closes)
	require.NoError(t, stream.Close())
	assert.Equal(t, 1, body.closes)
}

func TestChatStream_SingleUse(t *testing.T) {
	stream := NewChatStream(io.NopCloser(strings.NewReader("data: [DONE]\n")))
	_, err := collect(t, stream)
	require.NoError(t, err)

	_, err = collect(t, stream)
	assert.ErrorIs(t, err, errStreamUsed)
}
