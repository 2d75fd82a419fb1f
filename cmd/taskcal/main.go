// taskcal APIサーバーのエントリポイント。
// サインアップ・ログインとBearerトークンによる認証ゲートを提供する。
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("コマンドの実行に失敗: %v", err)
		os.Exit(1)
	}
}
