// Package httpclient はtaskcal APIを呼び出すHTTPクライアントを提供する。
//
// ログインで得たBearerトークンを保持し、以降のリクエストの
// Authorizationヘッダーに自動で付与する。APIが返す {"error": "..."}
// 形式のエラーは*APIErrorとして扱える。
package httpclient
