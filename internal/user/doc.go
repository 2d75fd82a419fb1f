// Package user はユーザーアカウントの永続化と認証を提供する。
//
// SQLiteに保存したユーザーレコードを、認証ゲートが使うID検索と、
// サインアップ・ログインによるトークン発行の両方に提供する。
package user
