package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/taskcal/internal/config"
	"github.com/nao1215/taskcal/internal/user"
	"github.com/nao1215/taskcal/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// Server はtaskcal APIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーのリッスンアドレス。
	addr string
	// users はユーザーレコードのストア。
	users *user.Store
	// accounts はサインアップ・ログインを行うサービス。
	accounts *user.Service
	// gate は保護されたエンドポイントの認証ゲート。
	gate *middleware.Gate
}

// NewServer は新しいAPIサーバーを生成する。
// storeは認証ゲートのユーザー検索とアカウント管理の両方に使われる。
func NewServer(cfg config.Config, store *user.Store) (*Server, error) {
	gate, err := middleware.NewGate(cfg.Secret, store,
		middleware.WithLookupTimeout(cfg.LookupTimeout),
		middleware.WithRejectUnknownSubject(cfg.RejectUnknownSubject),
	)
	if err != nil {
		return nil, fmt.Errorf("認証ゲートの初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.RequestLog())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.FrontendURL)))

	s := &Server{
		router:   router,
		addr:     cfg.Addr(),
		users:    store,
		accounts: user.NewService(store, cfg.Secret, cfg.TokenTTL),
		gate:     gate,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	log.Printf("シャットダウンを開始します: %s", s.addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	users := s.router.Group("/api/user")
	{
		// 認証不要
		users.POST("/signup", s.handleSignup())
		users.POST("/login", s.handleLogin())

		// 認証必須
		users.GET("/me", middleware.RequireAuth(s.gate), s.handleGetCurrentUser())
	}

	// ヘルスチェック
	s.router.GET("/health", s.handleHealth())
}

// Protected は認証ゲートで保護されたルートグループを返す。
// 後から追加するエンドポイントはこのグループに登録する。
func (s *Server) Protected(relativePath string) *gin.RouterGroup {
	return s.router.Group(relativePath, middleware.RequireAuth(s.gate))
}
