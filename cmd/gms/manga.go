package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"sync"

	"github.com/spf13/cobra"

	"GoMangaSource/internal/core"
	"GoMangaSource/internal/model"
)

var (
	chaptersSnapshotDir string
	syncSnapshotDir     string
	syncConcurrency     int
	imageOutput         string
)

var detailsCmd = &cobra.Command{
	Use:   "details <manga-url>",
	Short: "作品の詳細情報を取得します",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		manga, err := session.Source().FetchDetails(ctx, model.Manga{URL: args[0]})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), manga)
	},
}

var chaptersCmd = &cobra.Command{
	Use:   "chapters <manga-url>",
	Short: "作品の全チャプター一覧を取得します",
	Long:  "--snapshot-dir を指定すると前回の一覧と比較し、新着チャプターをログに出力してスナップショットを更新します。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		manga := model.Manga{URL: args[0]}
		chapters, err := session.ChapterList(ctx, manga)
		if err != nil {
			return err
		}
		if chaptersSnapshotDir != "" {
			if _, err := updateSnapshot(chaptersSnapshotDir, manga, chapters); err != nil {
				return err
			}
		}
		return printChapters(cmd.OutOrStdout(), chapters)
	},
}

var pagesCmd = &cobra.Command{
	Use:   "pages <chapter-url>",
	Short: "チャプターのページ一覧を取得します",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		pages, err := session.PageList(ctx, model.Chapter{URL: args[0]})
		if err != nil {
			return err
		}
		return printPages(cmd.OutOrStdout(), pages)
	},
}

var imageCmd = &cobra.Command{
	Use:   "image <image-url>",
	Short: "ソースの画像リクエストで画像を1枚ダウンロードします",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		req, err := session.Source().BuildImageRequest(model.Page{ImageURL: args[0]})
		if err != nil {
			return err
		}
		resp, err := client.Do(ctx, req)
		if err != nil {
			return err
		}

		out := imageOutput
		if out == "" {
			out = core.SanitizeFilename(path.Base(resp.URL))
		}
		if err := os.WriteFile(out, resp.Body, 0644); err != nil {
			return fmt.Errorf("画像の保存に失敗しました (%s): %w", out, err)
		}
		log.Printf("INFO: 画像を保存しました: %s (%d bytes)", out, len(resp.Body))
		return nil
	},
}

// syncResult は sync コマンドの作品ごとの結果です。
type syncResult struct {
	URL         string          `json:"url"`
	Title       string          `json:"title,omitempty"`
	Chapters    int             `json:"chapters"`
	NewChapters []model.Chapter `json:"new_chapters"`
	Error       string          `json:"error,omitempty"`
}

var syncCmd = &cobra.Command{
	Use:   "sync <manga-url>...",
	Short: "複数の作品を更新し、スナップショットと比較して新着チャプターを報告します",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		results := runSync(ctx, session, args, syncSnapshotDir, syncConcurrency)
		log.Printf("INFO: %s", session.Stats().FormatSessionInfo())
		return printJSON(cmd.OutOrStdout(), results)
	},
}

func init() {
	chaptersCmd.Flags().StringVar(&chaptersSnapshotDir, "snapshot-dir", "", "チャプター一覧のスナップショットを保存するディレクトリ")
	syncCmd.Flags().StringVar(&syncSnapshotDir, "snapshot-dir", "snapshots", "チャプター一覧のスナップショットを保存するディレクトリ")
	syncCmd.Flags().IntVarP(&syncConcurrency, "concurrency", "c", 2, "同時に更新する作品数")
	imageCmd.Flags().StringVar(&imageOutput, "out", "", "保存先ファイル (省略時はURLのファイル名)")

	rootCmd.AddCommand(detailsCmd, chaptersCmd, pagesCmd, imageCmd, syncCmd)
}

// runSync は、作品ごとに Refresh とスナップショット比較を並行して実行します。
// 通信はホストごとのレートリミッターで直列化されるため、並行数は処理の重なりのみを制御します。
func runSync(ctx context.Context, session *core.Session, urls []string, dir string, maxConcurrent int) []syncResult {
	if maxConcurrent <= 0 {
		maxConcurrent = 1 // デフォルト
	}
	results := make([]syncResult, len(urls))
	semaphore := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	log.Printf("INFO: 作品数: %d, 最大並行数: %d", len(urls), maxConcurrent)

loop:
	for i, url := range urls {
		select {
		case <-ctx.Done():
			log.Println("INFO: コンテキストがキャンセルされたため、新規の更新を中断します。")
			for j := i; j < len(urls); j++ {
				results[j] = syncResult{URL: urls[j], Error: ctx.Err().Error()}
			}
			break loop
		default:
		}

		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, url string) {
			defer func() { <-semaphore }()
			defer wg.Done()
			results[i] = syncOne(ctx, session, url, dir)
		}(i, url)
	}
	wg.Wait()
	return results
}

func syncOne(ctx context.Context, session *core.Session, url, dir string) syncResult {
	result := syncResult{URL: url, NewChapters: []model.Chapter{}}
	manga, chapters, err := session.Refresh(ctx, model.Manga{URL: url})
	if err != nil {
		log.Printf("ERROR: %v", err)
		result.Error = err.Error()
		return result
	}
	result.Title = manga.Title
	result.Chapters = len(chapters)

	fresh, err := updateSnapshot(dir, manga, chapters)
	if err != nil {
		log.Printf("ERROR: %v", err)
		result.Error = err.Error()
		return result
	}
	result.NewChapters = fresh
	return result
}

// updateSnapshot は、前回のスナップショットと比較して新着チャプターを返し、
// 一覧に変化があればスナップショットを保存します。
func updateSnapshot(dir string, manga model.Manga, chapters []model.Chapter) ([]model.Chapter, error) {
	previous, err := core.LoadChapterSnapshot(dir, manga)
	if err != nil {
		log.Printf("WARNING: スナップショットが読めないため、全チャプターを新着として扱います: %v", err)
		previous = nil
	}
	fresh := core.NewChapters(previous, chapters)
	if !core.NeedsUpdate(previous, chapters) {
		log.Printf("INFO: 変更はありません (url=%s)", manga.URL)
		return fresh, nil
	}
	log.Printf("INFO: 新着チャプター %d 件 (url=%s, total=%d)", len(fresh), manga.URL, len(chapters))
	if err := core.SaveChapterSnapshot(dir, core.NewChapterSnapshot(manga, chapters)); err != nil {
		return nil, err
	}
	return fresh, nil
}
