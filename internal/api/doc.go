// Package api はtaskcalのHTTP APIサーバーを提供する。
//
// サインアップ・ログインによるトークン発行と、認証ゲートで保護された
// エンドポイントのルーティングを担当する。
package api
