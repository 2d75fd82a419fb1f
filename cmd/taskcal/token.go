package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/taskcal/internal/config"
	"github.com/nao1215/taskcal/internal/user"
)

// newTokenCmd は既存ユーザーのトークンを発行するtokenコマンドを生成する。
// 開発時に保護されたエンドポイントを手動で叩くために使う。
func newTokenCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "既存ユーザーのBearerトークンを発行する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID == "" {
				return errors.New("--userでユーザーIDを指定してください")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := user.Open(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("ユーザーストアの初期化に失敗: %w", err)
			}
			defer store.Close()

			session, err := user.NewService(store, cfg.Secret, cfg.TokenTTL).IssueToken(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.Token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "トークンのサブジェクトとなるユーザーID")
	return cmd
}
