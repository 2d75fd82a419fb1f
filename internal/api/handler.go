package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/taskcal/internal/user"
	"github.com/nao1215/taskcal/pkg/middleware"
)

// credentialsRequest はサインアップ・ログインリクエストのJSON構造。
// 必須チェックはuser.Serviceが行うため、ここでは型だけを検証する。
type credentialsRequest struct {
	// Email はメールアドレス。
	Email string `json:"email"`
	// Password は平文のパスワード。
	Password string `json:"password"`
}

// currentUserResponse は認証済みユーザー情報のJSONレスポンス構造。
type currentUserResponse struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
}

// handleSignup はサインアップを処理するハンドラを返す。
func (s *Server) handleSignup() gin.HandlerFunc {
	return s.handleCredentials("サインアップ", s.accounts.Signup)
}

// handleLogin はログインを処理するハンドラを返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return s.handleCredentials("ログイン", s.accounts.Login)
}

// handleCredentials はメールアドレスとパスワードを受け取りトークンを返す共通処理。
func (s *Server) handleCredentials(action string, authenticate func(ctx context.Context, email, password string) (user.Session, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		session, err := authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if user.IsInputError(err) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			log.Printf("%sエラー: request_id=%s error=%v", action, middleware.GetRequestID(c), err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

// handleGetCurrentUser は認証済みユーザーの情報を返すハンドラを返す。
// 認証ゲートが空のユーザー情報で通過させた場合は401を返す。
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": middleware.MessageNotAuthorized})
			return
		}

		u, err := s.users.FindByID(c.Request.Context(), userID)
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": middleware.MessageInternalError})
			log.Printf("ユーザー取得エラー: request_id=%s error=%v", middleware.GetRequestID(c), err)
			return
		}

		c.JSON(http.StatusOK, currentUserResponse{
			ID:        u.ID,
			Email:     u.Email,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
		})
	}
}

// handleHealth はヘルスチェックを処理するハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.users.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": "taskcal"})
			log.Printf("ヘルスチェックエラー: %v", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "taskcal"})
	}
}
