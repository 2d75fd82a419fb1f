// Package config は環境変数からAPIサーバーの設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config はAPIサーバーの設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string `envconfig:"PORT" default:"4000"`
	// Secret はトークンの署名と検証に使う共有シークレット。
	Secret string `envconfig:"SECRET" required:"true"`
	// DatabasePath はユーザーを保存するSQLiteファイルのパス。
	DatabasePath string `envconfig:"DATABASE_PATH" default:"taskcal.db"`
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	// TokenTTL は発行するトークンの有効期間。
	TokenTTL time.Duration `envconfig:"TOKEN_TTL" default:"72h"`
	// LookupTimeout は認証ゲートのユーザー検索のタイムアウト。0で無制限。
	LookupTimeout time.Duration `envconfig:"LOOKUP_TIMEOUT" default:"5s"`
	// RejectUnknownSubject は存在しないユーザーのトークンを拒否するかどうか。
	RejectUnknownSubject bool `envconfig:"REJECT_UNKNOWN_SUBJECT" default:"false"`
}

// Load は環境変数から設定を読み込み、検証する。
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c Config) Validate() error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, errors.New("SECRETが空です"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORTが空です"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATHが空です"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("TOKEN_TTLは正の値である必要があります: %s", c.TokenTTL))
	}
	if c.LookupTimeout < 0 {
		errs = append(errs, fmt.Errorf("LOOKUP_TIMEOUTは0以上である必要があります: %s", c.LookupTimeout))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("設定が不正です: %w", err)
	}
	return nil
}

// Addr はサーバーのリッスンアドレスを返す。
func (c Config) Addr() string {
	return ":" + c.Port
}
