package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateUTF8(t *testing.T) {
	s := []byte("报告ab")

	assert.Equal(t, s, truncateUTF8(s, 100))
	assert.Equal(t, []byte("报"), truncateUTF8(s, 4))
	assert.Equal(t, []byte("报告"), truncateUTF8(s, 6))
	assert.True(t, utf8.Valid(truncateUTF8(s, 5)))
	assert.Empty(t, truncateUTF8(s, 2))
}

type recordingTransport struct {
	got *http.Request
}

func (r *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r.got = req
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestAuthTransport(t *testing.T) {
	inner := &recordingTransport{}
	rt := &authTransport{token: "sk-test", transport: inner}

	req := httptest.NewRequest(http.MethodGet, "http://upstream/v1/datasets", nil)
	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", inner.got.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Authorization"), "caller's request must not be mutated")

	req = httptest.NewRequest(http.MethodGet, "http://upstream/v1/datasets", nil)
	req.Header.Set("Authorization", "Bearer other")
	_, err = rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "Bearer other", inner.got.Header.Get("Authorization"))

	rt = &authTransport{transport: inner}
	_, err = rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://upstream/", nil))
	require.NoError(t, err)
	assert.Empty(t, inner.got.Header.Get("Authorization"))
}

func TestNewClient_AppliesTransportsInOrder(t *testing.T) {
	var order []string
	wrap := func(name string) TransportFunc {
		return func(rt http.RoundTripper) http.RoundTripper {
			return roundTripFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return rt.RoundTrip(req)
			})
		}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := newClient(WithTransport(wrap("inner")), WithTransport(wrap("outer")), WithRequestTimeout(0))
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Zero(t, client.Timeout)
}

func TestNewClient_StreamingDefaults(t *testing.T) {
	short := newClient()
	assert.Equal(t, 30*time.Second, short.Timeout)
	assert.False(t, short.Transport.(*http.Transport).DisableCompression)

	stream := newClient(WithRequestTimeout(0), WithDisableCompression())
	assert.Zero(t, stream.Timeout)
	assert.True(t, stream.Transport.(*http.Transport).DisableCompression)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
