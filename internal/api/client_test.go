package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/taskcal/pkg/httpclient"
)

// TestClientFlow はAPIクライアント経由でサインアップから認証済みアクセスまでを検証する。
func TestClientFlow(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	client := httpclient.New(ts.URL)

	t.Run("未ログインでは/meがトークン必須エラーになること", func(t *testing.T) {
		_, err := client.Me(t.Context())

		var apiErr *httpclient.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("*APIErrorが返るべき: got %v", err)
		}
		if apiErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("ステータスコード: got %d, want %d", apiErr.StatusCode, http.StatusUnauthorized)
		}
		if apiErr.Message != "Authorization token required" {
			t.Errorf("メッセージ: got %q, want %q", apiErr.Message, "Authorization token required")
		}
	})

	session, err := client.Signup(t.Context(), "flow@example.com", strongPassword)
	if err != nil {
		t.Fatalf("Signup()でエラーが発生: %v", err)
	}

	t.Run("サインアップ後は/meで自分の情報を取得できること", func(t *testing.T) {
		me, err := client.Me(t.Context())
		if err != nil {
			t.Fatalf("Me()でエラーが発生: %v", err)
		}
		if me.ID != session.ID {
			t.Errorf("ID: got %q, want %q", me.ID, session.ID)
		}
		if me.Email != "flow@example.com" {
			t.Errorf("Email: got %q, want %q", me.Email, "flow@example.com")
		}
		if me.CreatedAt.IsZero() {
			t.Error("CreatedAtが設定されていない")
		}
	})

	t.Run("改ざんされたトークンでは汎用メッセージの401になること", func(t *testing.T) {
		client.SetToken(session.Token + "x")
		defer client.SetToken(session.Token)

		_, err := client.Me(t.Context())
		if code, ok := httpclient.StatusCode(err); !ok || code != http.StatusUnauthorized {
			t.Fatalf("401が返るべき: got %v", err)
		}
		var apiErr *httpclient.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "Request not authorized" {
			t.Errorf("メッセージ: got %q, want %q", apiErr.Message, "Request not authorized")
		}
	})

	t.Run("ログアウト後に再ログインできること", func(t *testing.T) {
		client.Logout()
		if client.Token() != "" {
			t.Fatal("ログアウト後もトークンが残っている")
		}

		relogin, err := client.Login(t.Context(), "flow@example.com", strongPassword)
		if err != nil {
			t.Fatalf("Login()でエラーが発生: %v", err)
		}
		if relogin.ID != session.ID {
			t.Errorf("ID: got %q, want %q", relogin.ID, session.ID)
		}
		if _, err := client.Me(t.Context()); err != nil {
			t.Errorf("再ログイン後のMe()でエラーが発生: %v", err)
		}
	})
}
