package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"GoMangaSource/internal/adapter"
	"GoMangaSource/internal/config"
	"GoMangaSource/internal/core"
	"GoMangaSource/internal/network"
)

// コマンドラインフラグ
var (
	configFile   string
	sourceID     string
	outputFormat string
	logFilePath  string
	logLevel     string
)

// 実行時に共有される状態 (PersistentPreRunE で初期化)
var (
	cfg    *config.Config
	client *network.Client
)

var rootCmd = &cobra.Command{
	Use:           "gms",
	Short:         "マンガ配信サイトのソースアダプタCLI",
	Long:          "ソースアダプタを通じて作品一覧・詳細・チャプター・ページを取得し、JSONまたは表形式で出力します。",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configFile, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.LogLevel
		if logLevel != "" {
			level = logLevel
		}
		enableFile := cfg.EnableLogFile || logFilePath != ""
		path := cfg.LogFilePath
		if logFilePath != "" {
			path = logFilePath
		}
		if err := toggleLogger(enableFile, path, level); err != nil {
			return err
		}

		client, err = network.NewClient(cfg.Network)
		if err != nil {
			return fmt.Errorf("HTTPクライアントの初期化に失敗しました: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "config.json", "設定ファイルのパス")
	flags.StringVarP(&sourceID, "source", "s", adapter.KumangaID, "使用するソースID")
	flags.StringVarP(&outputFormat, "output", "o", "json", "出力形式 (json|table)")
	flags.StringVar(&logFilePath, "log-file", "", "ログファイルのパス (指定するとファイルにも出力)")
	flags.StringVar(&logLevel, "log-level", "", "ログレベル (debug|info|warn|error)。設定ファイルの値を上書きします")
}

// loadConfig は設定ファイルを読み込みます。
// --config が明示されていない場合に限り、ファイルが無ければデフォルト設定を使います。
func loadConfig(path string, explicit bool) (*config.Config, error) {
	loaded, err := config.LoadAndResolve(path)
	if err == nil {
		return loaded, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
}

// openSession は、設定に従って指定IDのソースを構築し、セッションを返します。
func openSession(id string) (*core.Session, error) {
	deps := adapter.Dependencies{
		Transport: client,
		Logger:    newLogger(id),
	}
	if srcCfg, ok := cfg.FindSource(id); ok {
		loc, err := srcCfg.Location()
		if err != nil {
			return nil, err
		}
		deps.Preferences = srcCfg.Prefs()
		deps.Location = loc
		log.Printf("DEBUG: ソース '%s' の設定 '%s' を使用します", id, srcCfg.Name)
	}
	src, err := adapter.GetSource(id, deps)
	if err != nil {
		return nil, err
	}
	return core.NewSession(src, deps.Logger), nil
}

// signalContext は、SIGINT/SIGTERM でキャンセルされるコンテキストを返します。
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Println("INFO: 終了シグナルを受信しました。シャットダウンを開始します...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Execute はルートコマンドを実行します。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}
