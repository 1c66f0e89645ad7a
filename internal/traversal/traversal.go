// Package traversal は、サーバー側でページ分割されたチャプター一覧を
// 順番に取得して一つの順序付きリストにまとめるエンジンを提供します。
package traversal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/PuerkitoBio/goquery"

	"GoMangaSource/internal/model"
	"GoMangaSource/internal/network"
)

// ErrChapterCountUnavailable は、最初のページから総チャプター数を読み取れなかったことを表します。
var ErrChapterCountUnavailable = errors.New("総チャプター数を取得できません")

// PaginationInfo は、最初のページから抽出したページ分割のメタデータです。
type PaginationInfo struct {
	TotalChapters int
	MangaID       string
	Slug          string
}

// Site は、サイト固有の抽出ロジックです。
type Site interface {
	ExtractPagination(doc *goquery.Document) (PaginationInfo, error)
	ExtractChapters(doc *goquery.Document) []model.Chapter
	ChapterPageRequest(info PaginationInfo, page int) *network.Request
}

// Fetcher は、リクエスト記述子を実行してボディを返します。
type Fetcher interface {
	Execute(ctx context.Context, r *network.Request) ([]byte, error)
}

// TraversalError は、最初のページからページ分割のメタデータを読み取れなかったことを表す致命的なエラーです。
// 再試行しても結果は変わりません。通信エラーはこの型に包まれず、そのまま呼び出し元へ返されます。
type TraversalError struct {
	Page int // メタデータを読み取ろうとしたページ番号 (1始まり)
	Err  error
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("チャプター一覧の走査に失敗しました (page=%d): %v", e.Page, e.Err)
}

func (e *TraversalError) Unwrap() error {
	return e.Err
}

// PageCount は、total 件を pageSize 件ずつ表示するのに必要なページ数を返します。
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Engine は、チャプター一覧のページを逐次取得します。
type Engine struct {
	fetcher  Fetcher
	pageSize int
	logger   *log.Logger
}

// NewEngine は Engine を生成します。logger が nil の場合は標準ロガーを使います。
func NewEngine(f Fetcher, pageSize int, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{fetcher: f, pageSize: pageSize, logger: logger}
}

// Traverse は、取得済みの最初のページを起点に全ページのチャプターを集めます。
// 2ページ目以降は1ページずつ順番に取得し、どこかで失敗した場合は結果を破棄してエラーを返します。
// メタデータの抽出失敗は *TraversalError、取得の失敗は Fetcher のエラーを %w で包んで返します。
// 位置(Position)は最終的な並び順で0から振り直されます。重複除去は行いません。
func (e *Engine) Traverse(ctx context.Context, first *goquery.Document, site Site) ([]model.Chapter, error) {
	if first == nil {
		return nil, &TraversalError{Page: 1, Err: errors.New("最初のページがありません")}
	}

	info, err := site.ExtractPagination(first)
	if err != nil {
		if !errors.Is(err, ErrChapterCountUnavailable) {
			err = fmt.Errorf("%w: %w", ErrChapterCountUnavailable, err)
		}
		return nil, &TraversalError{Page: 1, Err: err}
	}

	pages := PageCount(info.TotalChapters, e.pageSize)
	chapters := site.ExtractChapters(first)
	e.logger.Printf("DEBUG: チャプター一覧 (manga=%s, total=%d, pages=%d)", info.MangaID, info.TotalChapters, pages)

	for page := 2; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("チャプター一覧の走査を中断しました (manga=%s, page=%d): %w", info.MangaID, page, err)
		}

		req := site.ChapterPageRequest(info, page)
		body, err := e.fetcher.Execute(ctx, req)
		if err != nil {
			e.logger.Printf("WARNING: チャプターページの取得に失敗しました (manga=%s, page=%d/%d): %v", info.MangaID, page, pages, err)
			return nil, fmt.Errorf("チャプターページの取得に失敗しました (manga=%s, page=%d/%d): %w", info.MangaID, page, pages, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("チャプターページのHTML解析に失敗しました (manga=%s, page=%d): %w", info.MangaID, page, err)
		}
		chapters = append(chapters, site.ExtractChapters(doc)...)
	}

	for i := range chapters {
		chapters[i].Position = i
	}
	return chapters, nil
}
