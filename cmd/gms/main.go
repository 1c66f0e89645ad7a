package main

import (
	"log"
	"os"
)

// main関数はGMSアプリケーションのエントリーポイントです。
func main() {
	// 設定読み込み前のログは標準エラー出力に出します
	log.SetOutput(os.Stderr)
	Execute()
}
