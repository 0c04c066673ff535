package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cargo-watcher/internal/core/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackedPage = `<html><body>
<a href="/logout">Выйти</a>
<script>
this.tracks = JSON.parse('[{"barcode":"TRK1","title":"Box","added_at":"2024-01-01","history":[{"warehouse":"ТРЦ «АДК»","date":"2024-01-05"}]}]');
</script>
</body></html>`

// TestEmirPortalSource_Fetch verifies login, extraction and decoding of the
// embedded tracks JSON.
func TestEmirPortalSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "user", r.PostForm.Get("login"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))
		fmt.Fprint(w, trackedPage)
	}))
	defer srv.Close()

	source := NewEmirPortalSource(srv.URL, "user", "secret", httpclient.NewSessionClient(0))

	records, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "TRK1", rec.Barcode)
	assert.Equal(t, "Box", rec.Title)
	assert.Equal(t, "2024-01-01", rec.AddedAt)
	require.Len(t, rec.History, 1)
	assert.Equal(t, "ТРЦ «АДК»", rec.History[0].Warehouse)
	assert.Equal(t, "2024-01-05", rec.History[0].Date)
}

// TestEmirPortalSource_Fetch_AuthFailed verifies the logout-link check.
func TestEmirPortalSource_Fetch_AuthFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>Неверный логин или пароль</body></html>`)
	}))
	defer srv.Close()

	source := NewEmirPortalSource(srv.URL, "user", "wrong", httpclient.NewSessionClient(0))

	_, err := source.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
}

// TestEmirPortalSource_Fetch_NoTracksJSON verifies the parse failure kind.
func TestEmirPortalSource_Fetch_NoTracksJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/logout">Выйти</a></body></html>`)
	}))
	defer srv.Close()

	source := NewEmirPortalSource(srv.URL, "user", "secret", httpclient.NewSessionClient(0))

	_, err := source.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrParseFailed)
}

// TestEmirPortalSource_Fetch_BadStatus verifies non-200 handling.
func TestEmirPortalSource_Fetch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	source := NewEmirPortalSource(srv.URL, "user", "secret", httpclient.NewSessionClient(0))

	_, err := source.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

// TestDecodeJSString verifies escape handling for the portal's JS literal.
func TestDecodeJSString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", "hello", "hello"},
		{"Quote", `it\'s`, "it's"},
		{"Slash", `a\/b`, "a/b"},
		{"Backslash", `a\\b`, `a\b`},
		{"Newline", `a\nb`, "a\nb"},
		{"Unicode", `ТРЦ`, "ТРЦ"},
		{"SurrogatePair", `📦`, "📦"},
		{"MalformedUnicode", `\u12`, "u12"},
		{"TrailingBackslash", `a\`, `a\`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeJSString(tt.input))
		})
	}
}

// TestParseTracksPage_EmptyList verifies an account with no tracks decodes to
// an empty snapshot rather than an error.
func TestParseTracksPage_EmptyList(t *testing.T) {
	page := `<a href="/logout">x</a> this.tracks = JSON.parse('[]');`
	records, err := ParseTracksPage(page)
	require.NoError(t, err)
	assert.Empty(t, records)
}
