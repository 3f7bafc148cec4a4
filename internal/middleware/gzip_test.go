package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler возвращает тело запроса с заданным типом содержимого.
func echoHandler(contentType string, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		defer r.Body.Close()

		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		if status != http.StatusNoContent {
			_, _ = w.Write(body)
		}
	})
}

func gzipBytes(t *testing.T, payload string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	const cart = `{"items":[{"productId":5,"quantity":2}],"total":"40.000"}`

	tests := []struct {
		name           string
		contentType    string
		status         int
		compressedBody bool
		acceptGzip     bool
		wantEncoding   string
	}{
		{
			name:         "json response is compressed",
			contentType:  "application/json",
			status:       http.StatusOK,
			acceptGzip:   true,
			wantEncoding: "gzip",
		},
		{
			name:         "plain text error is compressed",
			contentType:  "text/plain; charset=utf-8",
			status:       http.StatusBadRequest,
			acceptGzip:   true,
			wantEncoding: "gzip",
		},
		{
			name:        "client without gzip support",
			contentType: "application/json",
			status:      http.StatusOK,
		},
		{
			name:        "binary response is left as is",
			contentType: "application/octet-stream",
			status:      http.StatusOK,
			acceptGzip:  true,
		},
		{
			name:           "compressed request body is unpacked",
			contentType:    "application/json",
			status:         http.StatusOK,
			compressedBody: true,
			acceptGzip:     true,
			wantEncoding:   "gzip",
		},
		{
			name:        "no content",
			contentType: "application/json",
			status:      http.StatusNoContent,
			acceptGzip:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(cart)
			if tt.compressedBody {
				body = gzipBytes(t, cart)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
			if tt.compressedBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptGzip {
				req.Header.Set("Accept-Encoding", "gzip, deflate")
			}

			rec := httptest.NewRecorder()
			GzipMiddleware(echoHandler(tt.contentType, tt.status)).ServeHTTP(rec, req)

			res := rec.Result()
			defer res.Body.Close()

			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))

			if tt.status == http.StatusNoContent {
				assert.Zero(t, rec.Body.Len())
				return
			}

			reader := io.Reader(res.Body)
			if tt.wantEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				require.NoError(t, err)
				defer gr.Close()
				reader = gr
			}

			got, err := io.ReadAll(reader)
			require.NoError(t, err)
			assert.Equal(t, cart, string(got))
		})
	}
}

func TestGzipMiddleware_BrokenRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")

	rec := httptest.NewRecorder()
	GzipMiddleware(echoHandler("application/json", http.StatusOK)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGzipMiddleware_Flush(t *testing.T) {
	const first, second = `{"chunk":1}`, `{"chunk":2}`

	var flushedBytes int
	rec := httptest.NewRecorder()
	h := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(first))

		f, ok := w.(http.Flusher)
		require.True(t, ok, "gzip writer must support flushing")
		f.Flush()
		flushedBytes = rec.Body.Len()

		_, _ = w.Write([]byte(second))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	h.ServeHTTP(rec, req)

	assert.True(t, rec.Flushed)
	assert.Positive(t, flushedBytes, "compressed data must reach the client on flush")

	gr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	defer gr.Close()
	got, err := io.ReadAll(gr)
	require.NoError(t, err)
	assert.Equal(t, first+second, string(got))
}
