package proxy

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/AdguardTeam/urlmatcher/contenttype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssumeRequestTypeFromMediaType(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want contenttype.Type
	}{{
		in:   "text/html",
		want: contenttype.Document,
	}, {
		in:   "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		want: contenttype.Document,
	}, {
		in:   "text/css",
		want: contenttype.Stylesheet,
	}, {
		in:   "text/javascript",
		want: contenttype.Script,
	}, {
		in:   "image/png",
		want: contenttype.Image,
	}, {
		in:   "font/woff2",
		want: contenttype.Font,
	}, {
		in:   "video/mp4",
		want: contenttype.Media,
	}, {
		in:   "application/json",
		want: contenttype.XMLHTTPRequest,
	}, {
		in:   "*/*",
		want: contenttype.Other,
	}}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, assumeRequestTypeFromMediaType(tc.in))
		})
	}
}

func TestAssumeRequestTypeFromURL(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("http://example.org/script.js?v=1")
	require.NoError(t, err)

	assert.Equal(t, contenttype.Script, assumeRequestTypeFromURL(u))

	u, err = url.Parse("http://example.org/STYLE.CSS")
	require.NoError(t, err)

	assert.Equal(t, contenttype.Stylesheet, assumeRequestTypeFromURL(u))

	u, err = url.Parse("http://example.org/")
	require.NoError(t, err)

	assert.Equal(t, contenttype.Other, assumeRequestTypeFromURL(u))
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://cdn.example.org/app.js", nil)
	req.Header.Set("Referer", "https://www.example.com/page")

	s := NewSession("1", req)
	assert.Equal(t, "http://cdn.example.org/app.js", s.URL)
	assert.Equal(t, "https://www.example.com/page", s.DocumentURL)
	assert.Equal(t, "www.example.com", s.DocumentHost)
	assert.Equal(t, contenttype.Script, s.Type)

	req.Header.Set("Sec-Fetch-Dest", "iframe")
	s = NewSession("2", req)
	assert.Equal(t, contenttype.Subdocument, s.Type)
}

func TestSession_SetResponse(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://example.org/data", nil)
	s := NewSession("1", req)
	require.Equal(t, contenttype.Other, s.Type)

	res := &http.Response{Header: http.Header{}}
	res.Header.Set("Content-Type", "image/gif")

	assert.True(t, s.SetResponse(res))
	assert.Equal(t, contenttype.Image, s.Type)
	assert.Equal(t, "image/gif", s.MediaType)

	assert.False(t, s.SetResponse(res))

	res.Header.Set("Content-Type", "application/octet-stream")
	assert.False(t, s.SetResponse(res))
	assert.Equal(t, contenttype.Image, s.Type)
}
