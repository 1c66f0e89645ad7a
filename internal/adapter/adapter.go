// Package adapter は、マンガ配信サイト固有の処理を抽象化するインターフェースと、
// その具体的な実装を提供します。ホストはサイトごとの違いを意識せず、
// 同じ操作でカタログ、詳細、チャプター、ページを取得できます。
package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"GoMangaSource/internal/filter"
	"GoMangaSource/internal/model"
	"GoMangaSource/internal/network"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrUnsupportedOperation は、アダプタが提供しない操作を呼び出したことを表します。
	ErrUnsupportedOperation = errors.New("サポートされていない操作です")
	// ErrInvalidPage は、1未満のページ番号が指定されたことを表します。
	ErrInvalidPage = errors.New("ページ番号は1以上である必要があります")
	// ErrMalformedResponse は、レスポンス全体の構造が想定と異なることを表します。
	ErrMalformedResponse = errors.New("レスポンスの構造が不正です")
)

// UnsupportedOperationError は、どのソースのどの操作が未対応かを保持します。
// errors.Is(err, ErrUnsupportedOperation) で判定できます。
type UnsupportedOperationError struct {
	Source    string
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%s: 操作 '%s' はサポートされていません", e.Source, e.Operation)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrUnsupportedOperation
}

// Transport は、リクエスト記述子を実行するHTTPトランスポートです。
// network.Client がこれを満たします。
type Transport interface {
	Execute(ctx context.Context, r *network.Request) ([]byte, error)
}

// Source は、単一サイトに対するソースアダプタの契約です。
type Source interface {
	ID() string
	// Name は表示名です。ユーザー設定で上書きされている場合はその値を返します。
	Name() string
	Lang() string
	BaseURL() string
	SupportsLatest() bool

	FetchPopular(ctx context.Context, page int) (model.CatalogPage, error)
	// FetchLatest は、SupportsLatest が false の場合は通信せずに ErrUnsupportedOperation を返します。
	FetchLatest(ctx context.Context, page int) (model.CatalogPage, error)
	Search(ctx context.Context, page int, query string, filters filter.List) (model.CatalogPage, error)
	FetchDetails(ctx context.Context, manga model.Manga) (model.Manga, error)
	FetchChapterList(ctx context.Context, manga model.Manga) ([]model.Chapter, error)
	FetchPageList(ctx context.Context, chapter model.Chapter) ([]model.Page, error)
	// ResolveImageURL は、ImageURL を持たないページの画像URLを解決します。
	ResolveImageURL(ctx context.Context, page model.Page) (string, error)
	BuildImageRequest(page model.Page) (*network.Request, error)
	// ListFilters は、毎回新しい未選択状態のフィルタ一覧を返します。
	ListFilters() filter.List
}

// RequestBuilder は、各操作の送信前リクエストを組み立てます。通信は行いません。
type RequestBuilder interface {
	PopularRequest(page int) (*network.Request, error)
	LatestRequest(page int) (*network.Request, error)
	SearchRequest(page int, query string, filters filter.List) (*network.Request, error)
	DetailsRequest(manga model.Manga) (*network.Request, error)
	ChapterListRequest(manga model.Manga) (*network.Request, error)
	PageListRequest(chapter model.Chapter) (*network.Request, error)
	ImageRequest(page model.Page) (*network.Request, error)
}

// NewDocumentFromBytes は、[]byteからgoquery.Documentを生成するヘルパー関数です。
func NewDocumentFromBytes(htmlBody []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
}

func validatePage(page int) error {
	if page < 1 {
		return fmt.Errorf("%w (page=%d)", ErrInvalidPage, page)
	}
	return nil
}
