package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer は発行するトークンのissクレーム。
const tokenIssuer = "taskcal"

// DefaultTokenTTL はトークンの既定の有効期間。
const DefaultTokenTTL = 72 * time.Hour

// validSigningMethods は検証時に受け入れる署名アルゴリズム。
// 共有シークレットによるHMAC以外は拒否する。
var validSigningMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Claims はBearerトークンのクレーム（ペイロード）を表す。
// サブジェクト識別子（ユーザーID）は標準のsubクレームに格納する。
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateJWT はユーザーIDをサブジェクトとするトークンを生成する。
// ttlが0以下の場合はDefaultTokenTTLを使用する。
func GenerateJWT(secret, userID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWTシークレットが空です")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// VerifyJWT はトークンの署名と有効期限を検証し、サブジェクト識別子を返す。
// 失敗理由（署名不正、形式不正、期限切れ、サブジェクト欠落）に関わらず
// ErrInvalidCredentialをラップしたエラーを返す。
func VerifyJWT(tokenString, secret string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods(validSigningMethods),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}
	if !token.Valid {
		return "", fmt.Errorf("%w: トークンが無効です", ErrInvalidCredential)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: サブジェクトが含まれていません", ErrInvalidCredential)
	}
	return claims.Subject, nil
}
