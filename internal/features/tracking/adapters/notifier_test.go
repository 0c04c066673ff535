package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cargo-watcher/internal/core/httpclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTelegramNotifier_Notify verifies the sendMessage request shape.
func TestTelegramNotifier_Notify(t *testing.T) {
	var gotPath, gotChatID, gotText string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChatID = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
	}))
	defer srv.Close()

	n := NewTelegramNotifierWithBase(srv.URL, "bot-token", "12345", httpclient.NewClient(0))

	err := n.Notify(context.Background(), "Трек-код: TRK1")
	require.NoError(t, err)
	assert.Equal(t, "/botbot-token/sendMessage", gotPath)
	assert.Equal(t, "12345", gotChatID)
	assert.Equal(t, "Трек-код: TRK1", gotText)
}

// TestTelegramNotifier_Notify_BadStatus verifies API errors surface to the
// caller for logging.
func TestTelegramNotifier_Notify_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifierWithBase(srv.URL, "bad-token", "12345", httpclient.NewClient(0))

	err := n.Notify(context.Background(), "msg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

// TestPushoverNotifier_Notify verifies the messages request shape.
func TestPushoverNotifier_Notify(t *testing.T) {
	var gotToken, gotUser, gotMessage, gotSound string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotToken = r.PostForm.Get("token")
		gotUser = r.PostForm.Get("user")
		gotMessage = r.PostForm.Get("message")
		gotSound = r.PostForm.Get("sound")
	}))
	defer srv.Close()

	n := NewPushoverNotifier(srv.URL, "app-token", "user-token", httpclient.NewClient(0))

	err := n.Notify(context.Background(), "arrived")
	require.NoError(t, err)
	assert.Equal(t, "app-token", gotToken)
	assert.Equal(t, "user-token", gotUser)
	assert.Equal(t, "arrived", gotMessage)
	assert.Equal(t, "magic", gotSound)
}

// stubNotifier records calls and optionally fails.
type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(ctx context.Context, message string) error {
	s.calls++
	return s.err
}

// TestMultiNotifier_Notify verifies fan-out and partial-failure semantics.
func TestMultiNotifier_Notify(t *testing.T) {
	t.Run("AllSucceed", func(t *testing.T) {
		a, b := &stubNotifier{}, &stubNotifier{}
		err := NewMultiNotifier(a, b).Notify(context.Background(), "msg")
		assert.NoError(t, err)
		assert.Equal(t, 1, a.calls)
		assert.Equal(t, 1, b.calls)
	})

	t.Run("OneFails", func(t *testing.T) {
		a := &stubNotifier{err: errors.New("down")}
		b := &stubNotifier{}
		err := NewMultiNotifier(a, b).Notify(context.Background(), "msg")
		assert.NoError(t, err)
		assert.Equal(t, 1, b.calls)
	})

	t.Run("AllFail", func(t *testing.T) {
		a := &stubNotifier{err: errors.New("down")}
		b := &stubNotifier{err: errors.New("also down")}
		err := NewMultiNotifier(a, b).Notify(context.Background(), "msg")
		assert.Error(t, err)
	})

	t.Run("NoSinks", func(t *testing.T) {
		err := NewMultiNotifier().Notify(context.Background(), "msg")
		assert.Error(t, err)
	})
}
