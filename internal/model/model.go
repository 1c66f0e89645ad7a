// Package model は、全てのソースアダプタが共有する正規化済みエンティティ
// (Manga, Chapter, Page, CatalogPage) を定義します。
package model

import (
	"errors"
	"strings"
)

// Manga は、カタログ応答から生成され、詳細ページ取得時に一度だけ補完される作品情報です。
type Manga struct {
	URL          string   `json:"url"` // サイト内の識別パス
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ThumbnailURL string   `json:"thumbnail_url"`
	Author       string   `json:"author"`
	Artist       string   `json:"artist"`
	Status       Status   `json:"status"`
	Genres       []string `json:"genres"`
	Initialized  bool     `json:"initialized"` // 詳細情報がマージ済みかどうか
}

// GenreString は、ジャンルを表示用の単一文字列に連結します。
func (m Manga) GenreString() string {
	return strings.Join(m.Genres, ", ")
}

// MergeDetails は、詳細ページから得た値で m を補完したコピーを返します。
// details 側で空のフィールドは m の値を維持します。
func (m Manga) MergeDetails(details Manga) Manga {
	merged := m
	if details.Status != StatusUnknown {
		merged.Status = details.Status
	}
	if details.Author != "" {
		merged.Author = details.Author
	}
	if details.Artist != "" {
		merged.Artist = details.Artist
	}
	if details.Description != "" {
		merged.Description = details.Description
	}
	if details.ThumbnailURL != "" {
		merged.ThumbnailURL = details.ThumbnailURL
	}
	if len(details.Genres) > 0 {
		merged.Genres = append([]string(nil), details.Genres...)
	}
	merged.Initialized = true
	return merged
}

// Validate は、UIが依存するフィールドが空でないことを検証します。
func (m Manga) Validate() error {
	if m.URL == "" {
		return errors.New("manga: URLが空です")
	}
	if m.Title == "" {
		return errors.New("manga: タイトルが空です")
	}
	return nil
}

// Chapter は、チャプター一覧の走査で一括生成されるチャプター情報です。
// MangaURL は親作品への参照であり、所有関係ではありません。
type Chapter struct {
	URL        string `json:"url"`
	MangaURL   string `json:"manga_url,omitempty"`
	Name       string `json:"name"`
	DateUpload int64  `json:"date_upload"` // エポックミリ秒。解析不能な場合は0
	Scanlator  string `json:"scanlator,omitempty"`
	Position   int    `json:"position"`
}

// Validate は、チャプターの必須フィールドを検証します。
func (c Chapter) Validate() error {
	if c.URL == "" {
		return errors.New("chapter: URLが空です")
	}
	if c.Name == "" {
		return errors.New("chapter: 名前が空です")
	}
	return nil
}

// Page は、チャプター内の単一ページです。
// ImageURL が空の場合、URL を使った追加の解決リクエストが必要です。
type Page struct {
	Index    int    `json:"index"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// NeedsResolution は、画像URLの解決が後続リクエストに委ねられているかを返します。
func (p Page) NeedsResolution() bool {
	return p.ImageURL == ""
}

// CatalogPage は、カタログ1ページ分の結果です。
type CatalogPage struct {
	Mangas      []Manga `json:"mangas"`
	HasNextPage bool    `json:"has_next_page"`
}
