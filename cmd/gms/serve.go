package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"GoMangaSource/internal/adapter"
	"GoMangaSource/internal/core"
	"GoMangaSource/internal/webui"
)

var (
	serveAddr   string
	openBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "ソースアダプタをJSON APIとして公開するHTTPサーバーを起動します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		if !strings.EqualFold(cfg.LogLevel, "debug") {
			gin.SetMode(gin.ReleaseMode)
		}

		sessions, err := openSessions()
		if err != nil {
			return err
		}
		server := webui.NewServer(sessions, newLogger("webui"))

		ready := make(chan string, 1)
		go func() {
			addr, ok := <-ready
			if !ok || !openBrowser {
				return
			}
			url := fmt.Sprintf("http://%s/api/sources", addr)
			if err := webui.OpenBrowser(url); err != nil {
				log.Printf("WARNING: ブラウザの起動に失敗しました: %v", err)
			}
		}()

		err = server.ListenAndServe(ctx, serveAddr, ready)
		close(ready)
		if err != nil {
			return err
		}
		log.Println("INFO: アプリケーションが正常にシャットダウンしました。")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "待ち受けアドレス")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "起動後にブラウザを開く")

	rootCmd.AddCommand(serveCmd)
}

// openSessions は、設定で有効なソースごとにセッションを構築します。
// 有効なソース設定が1つも無い場合は --source のソースのみを公開します。
func openSessions() (map[string]*core.Session, error) {
	sessions := make(map[string]*core.Session)
	for _, s := range cfg.Sources {
		if !s.IsEnabled() {
			continue
		}
		id := strings.ToLower(s.SourceID)
		if _, exists := sessions[id]; exists {
			continue
		}
		session, err := openSession(id)
		if err != nil {
			return nil, fmt.Errorf("ソース '%s' の初期化に失敗しました: %w", s.Name, err)
		}
		sessions[session.Source().ID()] = session
	}
	if len(sessions) == 0 {
		session, err := openSession(sourceID)
		if err != nil {
			return nil, err
		}
		sessions[session.Source().ID()] = session
	}
	log.Printf("INFO: 公開するソース: %d件 (登録済み: %s)", len(sessions), strings.Join(adapter.IDs(), ", "))
	return sessions, nil
}
