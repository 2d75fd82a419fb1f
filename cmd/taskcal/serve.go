package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/taskcal/internal/api"
	"github.com/nao1215/taskcal/internal/config"
	"github.com/nao1215/taskcal/internal/user"
)

// newServeCmd はAPIサーバーを起動するserveコマンドを生成する。
func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "APIサーバーを起動する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "リッスンポート（環境変数PORTより優先）")
	return cmd
}

// serve はユーザーストアを開き、ctxがキャンセルされるまでAPIサーバーを実行する。
func serve(ctx context.Context, cfg config.Config) error {
	store, err := user.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("ユーザーストアの初期化に失敗: %w", err)
	}
	defer store.Close()

	server, err := api.NewServer(cfg, store)
	if err != nil {
		return fmt.Errorf("APIサーバーの初期化に失敗: %w", err)
	}

	log.Printf("taskcal APIを起動します: %s", cfg.Addr())
	return server.Run(ctx)
}
