package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nao1215/taskcal/pkg/middleware"
)

// クライアントにそのまま返せる入力エラー。
var (
	// ErrMissingFields は必須項目が空であることを表す。
	ErrMissingFields = errors.New("All fields must be filled")
	// ErrInvalidEmail はメールアドレスの形式が不正であることを表す。
	ErrInvalidEmail = errors.New("Email not valid")
	// ErrWeakPassword はパスワードの強度が足りないことを表す。
	ErrWeakPassword = errors.New("Password not strong enough")
	// ErrPasswordTooLong はパスワードがbcryptの上限を超えていることを表す。
	ErrPasswordTooLong = errors.New("Password must be at most 72 bytes")
	// ErrEmailTaken はメールアドレスが既に使われていることを表す。
	ErrEmailTaken = errors.New("Email already in use")
	// ErrInvalidCredentials はメールアドレスまたはパスワードが誤っていることを表す。
	// どちらが誤っているかは区別しない。
	ErrInvalidCredentials = errors.New("Incorrect email or password")
)

// IsInputError はerrがクライアントの入力に起因するエラーかどうかを返す。
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrMissingFields, ErrInvalidEmail, ErrWeakPassword,
		ErrPasswordTooLong, ErrEmailTaken, ErrInvalidCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Session はサインアップ・ログインの結果としてクライアントに返す内容。
type Session struct {
	// UserID はユーザーの一意識別子。
	UserID string `json:"id"`
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
	// Token はBearerトークン。
	Token string `json:"token"`
}

// Service はサインアップとログインを行い、Bearerトークンを発行する。
type Service struct {
	store    *Store
	secret   string
	tokenTTL time.Duration
	validate *validator.Validate
}

// NewService は新しいServiceを生成する。
// secretはトークン署名用の共有シークレットで、認証ゲートと同じ値を使う。
func NewService(store *Store, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		secret:   secret,
		tokenTTL: tokenTTL,
		validate: validator.New(),
	}
}

// Signup はユーザーを作成してトークンを発行する。
func (s *Service) Signup(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, ErrMissingFields
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return Session{}, ErrInvalidEmail
	}
	if len(password) > maxPasswordBytes {
		return Session{}, ErrPasswordTooLong
	}
	if !isStrongPassword(password) {
		return Session{}, ErrWeakPassword
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Session{}, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return Session{}, err
	}

	u, err := s.store.Create(ctx, email, hash)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// Login はメールアドレスとパスワードを検証してトークンを発行する。
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, ErrMissingFields
	}

	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}

	if !verifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

// IssueToken は既存ユーザーのトークンを発行する。運用時の確認用。
func (s *Service) IssueToken(ctx context.Context, userID string) (Session, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	return s.issue(u)
}

// issue はユーザーのトークンを発行する。
func (s *Service) issue(u User) (Session, error) {
	token, err := middleware.GenerateJWT(s.secret, u.ID, s.tokenTTL)
	if err != nil {
		return Session{}, fmt.Errorf("トークン生成に失敗: %w", err)
	}
	return Session{UserID: u.ID, Email: u.Email, Token: token}, nil
}
