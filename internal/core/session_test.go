package core

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoMangaSource/internal/adapter"
	"GoMangaSource/internal/filter"
	"GoMangaSource/internal/model"
	"GoMangaSource/internal/network"
)

// stubSource は、呼び出しを記録するテスト用の adapter.Source です。
type stubSource struct {
	pages        []model.CatalogPage
	popularCalls []int
	searchCalls  []int
	details      model.Manga
	detailsErr   error
	chapters     []model.Chapter
	chaptersErr  error
	chapterInput model.Manga
	pageList     []model.Page
	resolved     map[int]string
}

func (s *stubSource) ID() string { return "stub" }
func (s *stubSource) Name() string { return "Stub" }
func (s *stubSource) Lang() string { return "es" }
func (s *stubSource) BaseURL() string { return "https://stub.test" }
func (s *stubSource) SupportsLatest() bool { return false }

func (s *stubSource) page(n int) (model.CatalogPage, error) {
	if n-1 < len(s.pages) {
		return s.pages[n-1], nil
	}
	return model.CatalogPage{}, errors.New("no such page")
}

func (s *stubSource) FetchPopular(ctx context.Context, page int) (model.CatalogPage, error) {
	s.popularCalls = append(s.popularCalls, page)
	return s.page(page)
}

func (s *stubSource) FetchLatest(ctx context.Context, page int) (model.CatalogPage, error) {
	return model.CatalogPage{}, &adapter.UnsupportedOperationError{Source: "stub", Operation: "latest"}
}

func (s *stubSource) Search(ctx context.Context, page int, query string, filters filter.List) (model.CatalogPage, error) {
	s.searchCalls = append(s.searchCalls, page)
	return s.page(page)
}

func (s *stubSource) FetchDetails(ctx context.Context, manga model.Manga) (model.Manga, error) {
	if s.detailsErr != nil {
		return model.Manga{}, s.detailsErr
	}
	return manga.MergeDetails(s.details), nil
}

func (s *stubSource) FetchChapterList(ctx context.Context, manga model.Manga) ([]model.Chapter, error) {
	s.chapterInput = manga
	return s.chapters, s.chaptersErr
}

func (s *stubSource) FetchPageList(ctx context.Context, chapter model.Chapter) ([]model.Page, error) {
	return append([]model.Page(nil), s.pageList...), nil
}

func (s *stubSource) ResolveImageURL(ctx context.Context, page model.Page) (string, error) {
	if u, ok := s.resolved[page.Index]; ok {
		return u, nil
	}
	return "", &adapter.UnsupportedOperationError{Source: "stub", Operation: "imageUrl"}
}

func (s *stubSource) BuildImageRequest(page model.Page) (*network.Request, error) {
	return network.GET(page.ImageURL, nil), nil
}

func (s *stubSource) ListFilters() filter.List {
	return filter.List{filter.NewGroup("genre", "Genre", "genre[]", filter.Option{ID: "1", Name: "Acción"})}
}

func newTestSession(src adapter.Source) *Session {
	return NewSession(src, log.New(io.Discard, "", 0))
}

func catalog(hasNext bool, titles ...string) model.CatalogPage {
	var mangas []model.Manga
	for _, t := range titles {
		mangas = append(mangas, model.Manga{URL: "/" + t, Title: t})
	}
	return model.CatalogPage{Mangas: mangas, HasNextPage: hasNext}
}

func TestSession_Refresh(t *testing.T) {
	src := &stubSource{
		details:  model.Manga{Author: "Oda", Status: model.StatusOngoing},
		chapters: []model.Chapter{{URL: "/c/2", Name: "2"}, {URL: "/c/1", Name: "1", Position: 1}},
	}
	session := newTestSession(src)

	manga, chapters, err := session.Refresh(context.Background(), model.Manga{URL: "/m", Title: "M"})

	require.NoError(t, err)
	assert.Equal(t, "Oda", manga.Author)
	assert.True(t, manga.Initialized)
	assert.True(t, src.chapterInput.Initialized, "チャプター一覧は詳細取得後の作品で要求されるべきです")
	assert.Len(t, chapters, 2)
	assert.Equal(t, 2, session.Stats().Snapshot().ChaptersListed)
}

func TestSession_RefreshPropagatesErrors(t *testing.T) {
	cause := errors.New("boom")

	_, _, err := newTestSession(&stubSource{detailsErr: cause}).Refresh(context.Background(), model.Manga{URL: "/m"})
	assert.True(t, errors.Is(err, cause))

	_, chapters, err := newTestSession(&stubSource{chaptersErr: cause}).Refresh(context.Background(), model.Manga{URL: "/m"})
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, chapters)
}

func TestSession_WalkCatalogStopsAtLastPage(t *testing.T) {
	src := &stubSource{pages: []model.CatalogPage{catalog(true, "a"), catalog(true, "b"), catalog(false, "c")}}
	var seen []string

	err := newTestSession(src).WalkCatalog(context.Background(), "", nil, 0, func(p model.CatalogPage) error {
		for _, m := range p.Mangas {
			seen = append(seen, m.Title)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, []int{1, 2, 3}, src.popularCalls)
	assert.Empty(t, src.searchCalls)
}

func TestSession_WalkCatalogHonoursMaxPages(t *testing.T) {
	src := &stubSource{pages: []model.CatalogPage{catalog(true, "a"), catalog(true, "b"), catalog(true, "c")}}

	err := newTestSession(src).WalkCatalog(context.Background(), "one piece", nil, 2, func(model.CatalogPage) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, src.searchCalls)
	assert.Empty(t, src.popularCalls)
}

func TestSession_WalkCatalogUsesSearchWhenFiltersSelected(t *testing.T) {
	src := &stubSource{pages: []model.CatalogPage{catalog(false, "a")}}
	filters := src.ListFilters()
	require.NoError(t, filters.Select("genre", "1"))

	err := newTestSession(src).WalkCatalog(context.Background(), "", filters, 0, func(model.CatalogPage) error { return nil })

	require.NoError(t, err)
	assert.Equal(t, []int{1}, src.searchCalls)
}

func TestSession_WalkCatalogStopAndErrors(t *testing.T) {
	src := &stubSource{pages: []model.CatalogPage{catalog(true, "a"), catalog(true, "b")}}

	err := newTestSession(src).WalkCatalog(context.Background(), "", nil, 0, func(model.CatalogPage) error { return ErrStopWalk })
	require.NoError(t, err)
	assert.Equal(t, []int{1}, src.popularCalls)

	cause := errors.New("callback failed")
	err = newTestSession(src).WalkCatalog(context.Background(), "", nil, 0, func(model.CatalogPage) error { return cause })
	assert.True(t, errors.Is(err, cause))

	// ページ3は存在しないためエラーになります
	err = newTestSession(src).WalkCatalog(context.Background(), "", nil, 0, func(model.CatalogPage) error { return nil })
	assert.Error(t, err)
}

func TestSession_WalkCatalogCancelled(t *testing.T) {
	src := &stubSource{pages: []model.CatalogPage{catalog(true, "a")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestSession(src).WalkCatalog(ctx, "", nil, 0, func(model.CatalogPage) error { return nil })

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, src.popularCalls)
}

func TestSession_PageListResolvesDeferredPages(t *testing.T) {
	src := &stubSource{
		pageList: []model.Page{{Index: 0, ImageURL: "https://img/0.jpg"}, {Index: 1, URL: "/p/1"}},
		resolved: map[int]string{1: "https://img/1.jpg"},
	}

	pages, err := newTestSession(src).PageList(context.Background(), model.Chapter{URL: "/c/1"})

	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "https://img/1.jpg", pages[1].ImageURL)

	src.resolved = nil
	_, err = newTestSession(src).PageList(context.Background(), model.Chapter{URL: "/c/1"})
	assert.True(t, errors.Is(err, adapter.ErrUnsupportedOperation))
}

func TestSessionStats_FormatSessionInfo(t *testing.T) {
	stats := NewSessionStats()
	stats.AddMangas(10)
	stats.AddChapters(25)
	stats.AddPages(3)

	assert.Contains(t, stats.FormatSessionInfo(), "作品: 10 | チャプター: 25 | ページ: 3")
}
