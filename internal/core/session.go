// Package core は、ソースアダプタを使うホスト側の中核ロジックを実装します。
// 作品情報の更新、カタログの走査、チャプター一覧のスナップショット管理を担当します。
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"GoMangaSource/internal/adapter"
	"GoMangaSource/internal/filter"
	"GoMangaSource/internal/model"
)

// ErrStopWalk は、WalkCatalog のコールバックが走査を正常に打ち切るために返します。
var ErrStopWalk = errors.New("カタログの走査を中止しました")

// Session は、単一のソースに対するホスト側の操作をまとめます。
type Session struct {
	source adapter.Source
	logger *log.Logger
	stats  *SessionStats
}

// NewSession は Session を生成します。logger が nil の場合はソースIDを接頭辞にしたロガーを使います。
func NewSession(source adapter.Source, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(os.Stdout, fmt.Sprintf("[%s] ", source.ID()), log.LstdFlags)
	}
	return &Session{source: source, logger: logger, stats: NewSessionStats()}
}

// Source はセッションが使うソースを返します。
func (s *Session) Source() adapter.Source {
	return s.source
}

// Stats はセッション統計情報を返します。
func (s *Session) Stats() *SessionStats {
	return s.stats
}

// Refresh は、詳細情報を取得してから全チャプター一覧を取得します。
// チャプター一覧は毎回丸ごと置き換えられます。
func (s *Session) Refresh(ctx context.Context, manga model.Manga) (model.Manga, []model.Chapter, error) {
	s.logger.Printf("INFO: 作品情報を更新します (url=%s)", manga.URL)

	details, err := s.source.FetchDetails(ctx, manga)
	if err != nil {
		return model.Manga{}, nil, fmt.Errorf("詳細情報の取得に失敗しました (source=%s, url=%s): %w", s.source.ID(), manga.URL, err)
	}

	chapters, err := s.ChapterList(ctx, details)
	if err != nil {
		return model.Manga{}, nil, err
	}

	s.logger.Printf("INFO: 作品情報を更新しました (title=%s, chapters=%d)", details.Title, len(chapters))
	return details, chapters, nil
}

// FetchCatalog は、query とフィルタの選択状態に応じて人気順または検索のカタログを1ページ取得します。
func (s *Session) FetchCatalog(ctx context.Context, page int, query string, filters filter.List) (model.CatalogPage, error) {
	var (
		result model.CatalogPage
		err    error
	)
	if query == "" && !filters.HasSelection() {
		result, err = s.source.FetchPopular(ctx, page)
	} else {
		result, err = s.source.Search(ctx, page, query, filters)
	}
	if err != nil {
		return model.CatalogPage{}, err
	}
	s.stats.AddMangas(len(result.Mangas))
	return result, nil
}

// WalkCatalog は、1ページ目から順にカタログを取得し、各ページを fn に渡します。
// HasNextPage が false になるか、maxPages に達すると終了します。maxPages が0以下の場合は上限なしです。
// fn が ErrStopWalk を返した場合はエラーなしで終了します。
func (s *Session) WalkCatalog(ctx context.Context, query string, filters filter.List, maxPages int, fn func(model.CatalogPage) error) error {
	for page := 1; maxPages <= 0 || page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := s.FetchCatalog(ctx, page, query, filters)
		if err != nil {
			return fmt.Errorf("カタログの取得に失敗しました (source=%s, page=%d): %w", s.source.ID(), page, err)
		}
		s.logger.Printf("DEBUG: カタログ page=%d, mangas=%d, has_next=%v", page, len(result.Mangas), result.HasNextPage)

		if err := fn(result); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
		if !result.HasNextPage {
			return nil
		}
	}
	return nil
}

// ChapterList は、作品の全チャプター一覧を取得し、統計に加算します。
func (s *Session) ChapterList(ctx context.Context, manga model.Manga) ([]model.Chapter, error) {
	chapters, err := s.source.FetchChapterList(ctx, manga)
	if err != nil {
		return nil, fmt.Errorf("チャプター一覧の取得に失敗しました (source=%s, url=%s): %w", s.source.ID(), manga.URL, err)
	}
	s.stats.AddChapters(len(chapters))
	return chapters, nil
}

// PageList は、チャプターのページ一覧を取得します。
// 画像URLが遅延解決のページは ResolveImageURL で解決してから返します。
func (s *Session) PageList(ctx context.Context, chapter model.Chapter) ([]model.Page, error) {
	pages, err := s.source.FetchPageList(ctx, chapter)
	if err != nil {
		return nil, fmt.Errorf("ページ一覧の取得に失敗しました (source=%s, url=%s): %w", s.source.ID(), chapter.URL, err)
	}
	for i := range pages {
		if !pages[i].NeedsResolution() {
			continue
		}
		imageURL, err := s.source.ResolveImageURL(ctx, pages[i])
		if err != nil {
			return nil, fmt.Errorf("画像URLの解決に失敗しました (page=%d): %w", pages[i].Index, err)
		}
		pages[i].ImageURL = imageURL
	}
	s.stats.AddPages(len(pages))
	return pages, nil
}
