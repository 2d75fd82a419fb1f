package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// contextKeyUserID はGinコンテキストにユーザーIDを格納するキー。
const contextKeyUserID = "user_id"

// identityContextKey はリクエストのcontext.Contextにユーザー情報を格納するキーの型。
type identityContextKey struct{}

// WithIdentity はコンテキストに検証済みのユーザー情報を設定する。
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext はコンテキストから検証済みのユーザー情報を取得する。
// 認証ゲートを通過していないコンテキストではokがfalseになる。
// 通過していてもユーザーが見つからなかった場合はidentityがnilになる。
func IdentityFromContext(ctx context.Context) (identity *Identity, ok bool) {
	identity, ok = ctx.Value(identityContextKey{}).(*Identity)
	return identity, ok
}

// RequireAuth は認証ゲートの判定をGinのミドルウェアチェーンに適用する。
// 拒否された場合は401とエラーメッセージを返して以降のハンドラを実行しない。
// 通過した場合はGinコンテキストとリクエストのcontext.Contextの両方に
// ユーザー情報を設定する。
func RequireAuth(gate *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := gate.Evaluate(c.Request.Context(), c.Request.Header)
		if !decision.Continue() {
			c.AbortWithStatusJSON(decision.Rejection.Status, gin.H{
				"error": decision.Rejection.Message,
			})
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), decision.Identity))
		c.Set(contextKeyUserID, decision.UserID())
		c.Next()
	}
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// RequireAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(contextKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
