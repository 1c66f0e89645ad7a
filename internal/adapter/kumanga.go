package adapter

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"GoMangaSource/internal/config"
	"GoMangaSource/internal/filter"
	"GoMangaSource/internal/model"
	"GoMangaSource/internal/network"
	"GoMangaSource/internal/normalize"
	"GoMangaSource/internal/traversal"
)

const (
	// KumangaID は Kumanga アダプタのソースIDです。
	KumangaID = "kumanga"

	kumangaName       = "Kumanga"
	kumangaBaseURL    = "https://www.kumanga.com"
	kumangaCoverURL   = "https://static.kumanga.com/manga_covers/%s.jpg?w=201"
	kumangaPageSize   = 10
	kumangaDateLayout = "02/01/2006 15:04"

	kumangaChapterSelector = "div#accordion > div.panel.panel-default.c_panel:has(table)"
)

var (
	_ Source         = (*Kumanga)(nil)
	_ RequestBuilder = (*Kumanga)(nil)
	_ traversal.Site = kumangaSite{}
	_ Transport      = (*network.Client)(nil)
)

var kumangaStatusRules = []normalize.StatusRule{
	{Substring: "Activo", Status: model.StatusOngoing},
	{Substring: "Finalizado", Status: model.StatusCompleted},
}

// Kumanga は、kumanga.com (スペイン語) のソースアダプタです。
// カタログと検索は同じ検索エンジンAPI(JSON)を使い、詳細とチャプターはHTMLから抽出します。
type Kumanga struct {
	transport Transport
	prefs     config.Preferences
	logger    *log.Logger
	location  *time.Location
	engine    *traversal.Engine
}

// NewKumanga は Kumanga アダプタを生成します。
func NewKumanga(deps Dependencies) *Kumanga {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	return &Kumanga{
		transport: deps.Transport,
		prefs:     deps.Preferences,
		logger:    logger,
		location:  loc,
		engine:    traversal.NewEngine(deps.Transport, kumangaPageSize, logger),
	}
}

func newKumangaSource(deps Dependencies) (Source, error) {
	return NewKumanga(deps), nil
}

func (k *Kumanga) ID() string { return KumangaID }

func (k *Kumanga) Name() string {
	if name := strings.TrimSpace(k.prefs.CustomSourceName); name != "" {
		return name
	}
	return kumangaName
}

func (k *Kumanga) Lang() string { return "es" }

func (k *Kumanga) BaseURL() string { return kumangaBaseURL }

func (k *Kumanga) SupportsLatest() bool { return false }

func kumangaMangaURL(id, slug string, page int) string {
	return fmt.Sprintf("/manga/%s/p/%d/%s#cl", id, page, slug)
}

// --- リクエストの組み立て ---

func (k *Kumanga) searchEngineRequest(page int, query string, filters filter.List) (*network.Request, error) {
	if err := validatePage(page); err != nil {
		return nil, err
	}
	var params filter.Params
	params.Add("page", strconv.Itoa(page))
	params.Add("perPage", strconv.Itoa(kumangaPageSize))
	params.Add("keywords", query)
	params.Add("retrieveCategories", "true")
	params.Add("retrieveAuthors", "false")
	params.Add("contentType", "manga")

	fp := filters.QueryParameters()
	for _, key := range fp.Keys {
		for _, v := range fp.Values[key] {
			params.Add(key, v)
		}
	}

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")
	return network.POST(kumangaBaseURL+"/backend/ajax/searchengine.php?"+params.Encode(), header, nil), nil
}

// PopularRequest は人気順カタログのリクエストを組み立てます。keywords は空のまま送信されます。
func (k *Kumanga) PopularRequest(page int) (*network.Request, error) {
	return k.searchEngineRequest(page, "", nil)
}

func (k *Kumanga) LatestRequest(page int) (*network.Request, error) {
	return nil, &UnsupportedOperationError{Source: KumangaID, Operation: "latest"}
}

func (k *Kumanga) SearchRequest(page int, query string, filters filter.List) (*network.Request, error) {
	return k.searchEngineRequest(page, query, filters)
}

func (k *Kumanga) DetailsRequest(manga model.Manga) (*network.Request, error) {
	if manga.URL == "" {
		return nil, errors.New("作品URLが空です")
	}
	return network.GET(kumangaBaseURL+manga.URL, nil), nil
}

// ChapterListRequest は、チャプター一覧の1ページ目 (詳細ページと同じURL) を返します。
func (k *Kumanga) ChapterListRequest(manga model.Manga) (*network.Request, error) {
	return k.DetailsRequest(manga)
}

func (k *Kumanga) PageListRequest(chapter model.Chapter) (*network.Request, error) {
	if chapter.URL == "" {
		return nil, errors.New("チャプターURLが空です")
	}
	return network.GET(kumangaBaseURL+chapter.URL, nil), nil
}

// ImageRequest は、Referer にベースURLを付けた画像取得リクエストを返します。
func (k *Kumanga) ImageRequest(page model.Page) (*network.Request, error) {
	if page.ImageURL == "" {
		return nil, fmt.Errorf("ページ %d に画像URLがありません", page.Index)
	}
	header := http.Header{}
	header.Set("Referer", kumangaBaseURL)
	return network.GET(page.ImageURL, header), nil
}

// --- 操作 ---

func (k *Kumanga) FetchPopular(ctx context.Context, page int) (model.CatalogPage, error) {
	req, err := k.PopularRequest(page)
	if err != nil {
		return model.CatalogPage{}, err
	}
	return k.fetchCatalog(ctx, req)
}

func (k *Kumanga) FetchLatest(ctx context.Context, page int) (model.CatalogPage, error) {
	_, err := k.LatestRequest(page)
	return model.CatalogPage{}, err
}

func (k *Kumanga) Search(ctx context.Context, page int, query string, filters filter.List) (model.CatalogPage, error) {
	req, err := k.SearchRequest(page, query, filters)
	if err != nil {
		return model.CatalogPage{}, err
	}
	return k.fetchCatalog(ctx, req)
}

func (k *Kumanga) fetchCatalog(ctx context.Context, req *network.Request) (model.CatalogPage, error) {
	body, err := k.transport.Execute(ctx, req)
	if err != nil {
		return model.CatalogPage{}, fmt.Errorf("カタログの取得に失敗しました: %w", err)
	}
	return k.ParseCatalog(body)
}

// ParseCatalog は、検索エンジンAPIのJSONレスポンスを解析します。
// id または name を欠くレコードは警告を出して読み飛ばします。
func (k *Kumanga) ParseCatalog(body []byte) (model.CatalogPage, error) {
	if !gjson.ValidBytes(body) {
		return model.CatalogPage{}, fmt.Errorf("%w: JSONとして解析できません", ErrMalformedResponse)
	}
	root := gjson.ParseBytes(body)
	contents := root.Get("contents")
	if !contents.IsArray() {
		return model.CatalogPage{}, fmt.Errorf("%w: contents 配列がありません", ErrMalformedResponse)
	}

	items := contents.Array()
	mangas := make([]model.Manga, 0, len(items))
	for i, item := range items {
		id := strings.TrimSpace(item.Get("id").String())
		name := strings.TrimSpace(item.Get("name").String())
		if id == "" || name == "" {
			k.logger.Printf("WARNING: 不完全なカタログレコードをスキップします (index=%d, id=%q, name=%q)", i, id, name)
			continue
		}
		var genres []string
		for _, g := range item.Get("categories.#.name").Array() {
			if s := strings.TrimSpace(g.String()); s != "" {
				genres = append(genres, s)
			}
		}
		mangas = append(mangas, model.Manga{
			URL:          kumangaMangaURL(id, item.Get("slug").String(), 1),
			Title:        name,
			Description:  normalize.CleanText(item.Get("description").String()),
			ThumbnailURL: fmt.Sprintf(kumangaCoverURL, id),
			Genres:       genres,
		})
	}

	count := len(items)
	if rc := root.Get("retrievedCount"); rc.Exists() {
		count = int(rc.Int())
	}
	return model.CatalogPage{
		Mangas:      mangas,
		HasNextPage: normalize.HasNextPage(count, kumangaPageSize),
	}, nil
}

// FetchDetails は詳細ページを取得し、manga に詳細情報をマージした結果を返します。
func (k *Kumanga) FetchDetails(ctx context.Context, manga model.Manga) (model.Manga, error) {
	req, err := k.DetailsRequest(manga)
	if err != nil {
		return model.Manga{}, err
	}
	body, err := k.transport.Execute(ctx, req)
	if err != nil {
		return model.Manga{}, fmt.Errorf("詳細ページの取得に失敗しました (url=%s): %w", manga.URL, err)
	}
	details, err := k.ParseDetails(body)
	if err != nil {
		return model.Manga{}, err
	}
	return manga.MergeDetails(details), nil
}

// ParseDetails は、詳細ページの div#tab2 から状態、作者、作画を抽出します。
func (k *Kumanga) ParseDetails(body []byte) (model.Manga, error) {
	doc, err := NewDocumentFromBytes(body)
	if err != nil {
		return model.Manga{}, fmt.Errorf("詳細ページのHTML解析に失敗しました: %w", err)
	}
	tab := doc.Find("div#tab2")
	if tab.Length() == 0 {
		k.logger.Printf("WARNING: 詳細ページに div#tab2 がありません")
	}
	return model.Manga{
		Status: normalize.ParseStatus(tab.Find("span").Text(), kumangaStatusRules),
		Author: joinTexts(tab.Find("p:nth-child(3) > a")),
		Artist: joinTexts(tab.Find("p:nth-child(4) > a")),
	}, nil
}

// FetchChapterList は、チャプター一覧の全ページを順番に走査します。
func (k *Kumanga) FetchChapterList(ctx context.Context, manga model.Manga) ([]model.Chapter, error) {
	req, err := k.ChapterListRequest(manga)
	if err != nil {
		return nil, err
	}
	body, err := k.transport.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("チャプター一覧の取得に失敗しました (url=%s): %w", manga.URL, err)
	}
	doc, err := NewDocumentFromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("チャプター一覧のHTML解析に失敗しました (url=%s): %w", manga.URL, err)
	}

	chapters, err := k.engine.Traverse(ctx, doc, kumangaSite{k: k})
	if err != nil {
		return nil, err
	}
	for i := range chapters {
		chapters[i].MangaURL = manga.URL
	}
	return chapters, nil
}

// FetchPageList は、チャプターページの <head> にある pUrl 配列から画像URLを抽出します。
func (k *Kumanga) FetchPageList(ctx context.Context, chapter model.Chapter) ([]model.Page, error) {
	req, err := k.PageListRequest(chapter)
	if err != nil {
		return nil, err
	}
	body, err := k.transport.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("チャプターページの取得に失敗しました (url=%s): %w", chapter.URL, err)
	}
	return k.ParsePageList(body)
}

// ParsePageList は、"var pUrl=[...];" を解析してページ一覧を返します。
func (k *Kumanga) ParsePageList(body []byte) ([]model.Page, error) {
	doc, err := NewDocumentFromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("チャプターページのHTML解析に失敗しました: %w", err)
	}
	head, err := goquery.OuterHtml(doc.Find("head"))
	if err != nil {
		return nil, fmt.Errorf("チャプターページのHTML解析に失敗しました: %w", err)
	}

	const marker = "var pUrl="
	start := strings.Index(head, marker)
	if start < 0 {
		return nil, fmt.Errorf("%w: pUrl が見つかりません", ErrMalformedResponse)
	}
	raw := head[start+len(marker):]
	if end := strings.Index(raw, ";"); end >= 0 {
		raw = raw[:end]
	}
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: pUrl をJSONとして解析できません", ErrMalformedResponse)
	}
	list := gjson.Parse(raw)
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: pUrl が配列ではありません", ErrMalformedResponse)
	}

	var pages []model.Page
	for _, item := range list.Array() {
		imgURL := strings.ReplaceAll(item.Get("imgURL").String(), `\`, "")
		if imgURL == "" {
			k.logger.Printf("WARNING: imgURL のないページをスキップします (index=%d)", len(pages))
			continue
		}
		pages = append(pages, model.Page{Index: len(pages), ImageURL: kumangaBaseURL + imgURL})
	}
	return pages, nil
}

// ResolveImageURL は未対応です。ページ一覧は画像URLを直接持っています。
func (k *Kumanga) ResolveImageURL(ctx context.Context, page model.Page) (string, error) {
	return "", &UnsupportedOperationError{Source: KumangaID, Operation: "imageUrl"}
}

func (k *Kumanga) BuildImageRequest(page model.Page) (*network.Request, error) {
	return k.ImageRequest(page)
}

// ListFilters は、ユーザー設定で有効なフィルタのみを含む新しい一覧を返します。
func (k *Kumanga) ListFilters() filter.List {
	all := kumangaFilters()
	return all.Visible(k.prefs.Toggled(all.Keys()))
}

// kumangaSite は、traversal.Site の Kumanga 実装です。
type kumangaSite struct {
	k *Kumanga
}

// ExtractPagination は、php_pagination(id,'slug',?,?,count,...) 呼び出しの引数を読み取ります。
func (s kumangaSite) ExtractPagination(doc *goquery.Document) (traversal.PaginationInfo, error) {
	body, err := goquery.OuterHtml(doc.Find("body"))
	if err != nil {
		return traversal.PaginationInfo{}, err
	}
	const marker = "php_pagination("
	start := strings.Index(body, marker)
	if start < 0 {
		return traversal.PaginationInfo{}, fmt.Errorf("%w: php_pagination が見つかりません", traversal.ErrChapterCountUnavailable)
	}
	args := html.UnescapeString(body[start+len(marker):])
	if end := strings.Index(args, ")"); end >= 0 {
		args = args[:end]
	}
	parts := strings.Split(args, ",")
	if len(parts) < 5 {
		return traversal.PaginationInfo{}, fmt.Errorf("%w: 引数が不足しています (%q)", traversal.ErrChapterCountUnavailable, args)
	}
	total, err := strconv.Atoi(strings.TrimSpace(parts[4]))
	if err != nil {
		return traversal.PaginationInfo{}, fmt.Errorf("%w: %w", traversal.ErrChapterCountUnavailable, err)
	}
	return traversal.PaginationInfo{
		TotalChapters: total,
		MangaID:       strings.TrimSpace(parts[0]),
		Slug:          strings.Trim(strings.TrimSpace(parts[1]), `'"`),
	}, nil
}

func (s kumangaSite) ExtractChapters(doc *goquery.Document) []model.Chapter {
	var chapters []model.Chapter
	doc.Find(kumangaChapterSelector).Each(func(i int, row *goquery.Selection) {
		h4 := row.Find("table:first-child td h4")
		link := h4.Find("a:has(i)").First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			s.k.logger.Printf("WARNING: リンクのないチャプター行をスキップします (row=%d)", i)
			return
		}

		title, _ := link.Attr("title")
		date, err := normalize.ParseDate(kumangaDateLayout, title, s.k.location)
		if err != nil {
			s.k.logger.Printf("DEBUG: %v", err)
		}

		chapters = append(chapters, model.Chapter{
			URL:        "/" + strings.TrimPrefix(strings.ReplaceAll(href, "/c/", "/leer/"), "/"),
			Name:       strings.TrimSpace(link.Text()),
			DateUpload: date,
			Scanlator:  strings.TrimSpace(h4.Find("span.pull-right.greenSpan").Text()),
		})
	})
	return chapters
}

func (s kumangaSite) ChapterPageRequest(info traversal.PaginationInfo, page int) *network.Request {
	return network.GET(kumangaBaseURL+kumangaMangaURL(info.MangaID, info.Slug, page), nil)
}

func joinTexts(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, ", ")
}
