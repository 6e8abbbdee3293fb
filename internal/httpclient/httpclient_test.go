package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SetsUserAgent(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	client := New(Options{Timeout: 5 * time.Second})

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "custom/2")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{DefaultUserAgent, "custom/2"}, got)
}

func TestNew_Timeouts(t *testing.T) {
	client := New(Options{Timeout: 30 * time.Second, ResponseHeaderTimeout: time.Minute})
	assert.Equal(t, 30*time.Second, client.Timeout)

	ua, ok := client.Transport.(*userAgentTransport)
	require.True(t, ok)
	tr, ok := ua.next.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, tr.ResponseHeaderTimeout)

	assert.Equal(t, 180*time.Second, New(Options{}).Timeout)
}
