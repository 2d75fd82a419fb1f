package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd はtaskcalのルートコマンドを生成する。
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskcal",
		Short:         "タスクカレンダーのAPIサーバー",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}
