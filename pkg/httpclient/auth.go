package httpclient

import (
	"context"
	"time"
)

// credentials はサインアップ・ログインのリクエストボディ。
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session はサインアップ・ログインのレスポンス。
type Session struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Token はBearerトークン。
	Token string `json:"token"`
}

// CurrentUser は認証済みユーザーの情報。
type CurrentUser struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// CreatedAt は作成日時。
	CreatedAt time.Time `json:"created_at"`
}

// Signup はユーザーを作成し、発行されたトークンをクライアントに設定する。
func (c *Client) Signup(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, "/api/user/signup", email, password)
}

// Login はログインし、発行されたトークンをクライアントに設定する。
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	return c.authenticate(ctx, "/api/user/login", email, password)
}

// Logout はクライアントが保持するトークンを破棄する。
func (c *Client) Logout() {
	c.SetToken("")
}

// Me は現在のトークンに対応するユーザーの情報を取得する。
func (c *Client) Me(ctx context.Context) (CurrentUser, error) {
	var u CurrentUser
	if err := c.GetJSON(ctx, "/api/user/me", &u); err != nil {
		return CurrentUser{}, err
	}
	return u, nil
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (Session, error) {
	var s Session
	if err := c.PostJSON(ctx, path, credentials{Email: email, Password: password}, &s); err != nil {
		return Session{}, err
	}
	c.SetToken(s.Token)
	return s, nil
}
