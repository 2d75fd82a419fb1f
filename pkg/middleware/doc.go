// Package middleware はtaskcal APIで使用するGinミドルウェアを提供する。
//
// Bearerトークンを検証してユーザー情報を付与する認証ゲート、
// トークンの発行と検証、リクエストログ、パニックリカバリ、
// CORS設定を含む。
package middleware
