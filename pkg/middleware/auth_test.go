package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// protectedRouter はRequireAuthで保護されたエンドポイントを持つルーターを生成する。
// ハンドラの呼び出し回数と、ハンドラが観測したユーザー情報を記録する。
type protectedRouter struct {
	router      *gin.Engine
	calls       int
	userID      string
	identity    *Identity
	hasIdentity bool
}

func newProtectedRouter(t *testing.T, gate *Gate) *protectedRouter {
	t.Helper()

	p := &protectedRouter{router: gin.New()}
	p.router.Use(RequireAuth(gate))
	p.router.GET("/api/tasks", func(c *gin.Context) {
		p.calls++
		p.userID = GetUserID(c)
		p.identity, p.hasIdentity = IdentityFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return p
}

func (p *protectedRouter) get(authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	if authorization != "" {
		req.Header.Set(HeaderAuthorization, authorization)
	}
	w := httptest.NewRecorder()
	p.router.ServeHTTP(w, req)
	return w
}

// errorMessage はレスポンスボディのerrorフィールドを取り出す。
func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v, body=%s", err, w.Body.String())
	}
	return body["error"]
}

// TestRequireAuth はRequireAuthミドルウェアを検証する。
func TestRequireAuth(t *testing.T) {
	t.Parallel()

	t.Run("Authorizationヘッダーが無い場合401とトークン必須メッセージが返ること", func(t *testing.T) {
		t.Parallel()

		p := newProtectedRouter(t, newTestGate(t, newFakeLookup("user-1")))
		w := p.get("")

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := errorMessage(t, w); got != "Authorization token required" {
			t.Errorf("error = %q, want %q", got, "Authorization token required")
		}
		if p.calls != 0 {
			t.Errorf("ハンドラの呼び出し回数 = %d, want 0", p.calls)
		}
	})

	rejected := []struct {
		name          string
		authorization func(t *testing.T) string
	}{
		{
			name:          "スキームの無いヘッダー",
			authorization: func(_ *testing.T) string { return "malformed" },
		},
		{
			name:          "JWT形式ではないトークン",
			authorization: func(_ *testing.T) string { return "Bearer invalid-token-string" },
		},
		{
			name: "改ざんされたトークン",
			authorization: func(t *testing.T) string {
				original := generateToken(t, "user-1")
				forged, err := GenerateJWT("attacker-secret", "user-2", 0)
				if err != nil {
					t.Fatalf("GenerateJWT()でエラーが発生: %v", err)
				}
				return "Bearer " + replaceSignature(t, forged, original)
			},
		},
		{
			name:          "期限切れのトークン",
			authorization: func(t *testing.T) string { return "Bearer " + expiredToken(t, "user-1") },
		},
	}

	for _, tt := range rejected {
		t.Run(tt.name+"で401と汎用メッセージが返ること", func(t *testing.T) {
			t.Parallel()

			p := newProtectedRouter(t, newTestGate(t, newFakeLookup("user-1")))
			w := p.get(tt.authorization(t))

			if w.Code != http.StatusUnauthorized {
				t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if got := errorMessage(t, w); got != "Request not authorized" {
				t.Errorf("error = %q, want %q", got, "Request not authorized")
			}
			if p.calls != 0 {
				t.Errorf("ハンドラの呼び出し回数 = %d, want 0", p.calls)
			}
		})
	}

	t.Run("ユーザー検索が失敗した場合も401と汎用メッセージが返ること", func(t *testing.T) {
		t.Parallel()

		lookup := newFakeLookup("user-1")
		lookup.err = errors.New("connection refused")
		p := newProtectedRouter(t, newTestGate(t, lookup))
		w := p.get("Bearer " + generateToken(t, "user-1"))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := errorMessage(t, w); got != "Request not authorized" {
			t.Errorf("error = %q, want %q", got, "Request not authorized")
		}
		if p.calls != 0 {
			t.Errorf("ハンドラの呼び出し回数 = %d, want 0", p.calls)
		}
	})

	t.Run("有効なトークンでハンドラが1回だけ呼ばれユーザー情報が設定されること", func(t *testing.T) {
		t.Parallel()

		p := newProtectedRouter(t, newTestGate(t, newFakeLookup("user-1")))
		w := p.get("Bearer " + generateToken(t, "user-1"))

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if p.calls != 1 {
			t.Errorf("ハンドラの呼び出し回数 = %d, want 1", p.calls)
		}
		if p.userID != "user-1" {
			t.Errorf("GetUserID() = %q, want %q", p.userID, "user-1")
		}
		if !p.hasIdentity || p.identity == nil || p.identity.UserID != "user-1" {
			t.Errorf("IdentityFromContext() = (%v, %v), want user-1", p.identity, p.hasIdentity)
		}
	})

	t.Run("存在しないユーザーでもハンドラが呼ばれ空のユーザー情報が設定されること", func(t *testing.T) {
		t.Parallel()

		p := newProtectedRouter(t, newTestGate(t, newFakeLookup("user-1")))
		w := p.get("Bearer " + generateToken(t, "ghost"))

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d, want %d", w.Code, http.StatusOK)
		}
		if p.calls != 1 {
			t.Errorf("ハンドラの呼び出し回数 = %d, want 1", p.calls)
		}
		if p.userID != "" {
			t.Errorf("GetUserID() = %q, want empty string", p.userID)
		}
		if !p.hasIdentity {
			t.Error("ゲートを通過したコンテキストにはユーザー情報のキーが設定されるべき")
		}
		if p.identity != nil {
			t.Errorf("identity = %+v, want nil", p.identity)
		}
	})

	t.Run("存在しないユーザーを拒否する設定では401が返ること", func(t *testing.T) {
		t.Parallel()

		p := newProtectedRouter(t, newTestGate(t, newFakeLookup("user-1"), WithRejectUnknownSubject(true)))
		w := p.get("Bearer " + generateToken(t, "ghost"))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if got := errorMessage(t, w); got != "Request not authorized" {
			t.Errorf("error = %q, want %q", got, "Request not authorized")
		}
		if p.calls != 0 {
			t.Errorf("ハンドラの呼び出し回数 = %d, want 0", p.calls)
		}
	})
}

// TestGetUserID はGetUserID関数を検証する。
func TestGetUserID(t *testing.T) {
	t.Parallel()

	t.Run("コンテキストにuser_idが設定されている場合に取得できること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", "user-get-id")

		if got := GetUserID(c); got != "user-get-id" {
			t.Errorf("GetUserID() = %q, want %q", got, "user-get-id")
		}
	})

	t.Run("コンテキストにuser_idが設定されていない場合に空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())

		if got := GetUserID(c); got != "" {
			t.Errorf("GetUserID() = %q, want empty string", got)
		}
	})

	t.Run("user_idが文字列以外の型の場合に空文字列が返ること", func(t *testing.T) {
		t.Parallel()

		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", 12345)

		if got := GetUserID(c); got != "" {
			t.Errorf("GetUserID() = %q, want empty string", got)
		}
	})
}

// TestIdentityFromContext はIdentityFromContext関数を検証する。
func TestIdentityFromContext(t *testing.T) {
	t.Parallel()

	t.Run("ゲートを通過していないコンテキストではokがfalseになること", func(t *testing.T) {
		t.Parallel()

		identity, ok := IdentityFromContext(t.Context())
		if ok || identity != nil {
			t.Errorf("IdentityFromContext() = (%v, %v), want (nil, false)", identity, ok)
		}
	})

	t.Run("設定したユーザー情報を取得できること", func(t *testing.T) {
		t.Parallel()

		ctx := WithIdentity(t.Context(), &Identity{UserID: "user-ctx"})
		identity, ok := IdentityFromContext(ctx)
		if !ok || identity == nil || identity.UserID != "user-ctx" {
			t.Errorf("IdentityFromContext() = (%v, %v), want user-ctx", identity, ok)
		}
	})
}
