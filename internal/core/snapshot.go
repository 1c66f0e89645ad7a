package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"GoMangaSource/internal/model"
)

// ChapterSnapshot は、作品のチャプター一覧の状態スナップショットを表します。
type ChapterSnapshot struct {
	MangaURL     string          `json:"manga_url"`
	ChapterCount int             `json:"chapter_count"`
	LastChecked  time.Time       `json:"last_checked"`
	Chapters     []model.Chapter `json:"chapters"`
}

// NewChapterSnapshot は、取得したチャプター一覧からスナップショットを生成します。
func NewChapterSnapshot(manga model.Manga, chapters []model.Chapter) *ChapterSnapshot {
	return &ChapterSnapshot{
		MangaURL:     manga.URL,
		ChapterCount: len(chapters),
		LastChecked:  time.Now(),
		Chapters:     chapters,
	}
}

func snapshotPath(dir, mangaURL string) string {
	name := SanitizeFilename(strings.Trim(mangaURL, "/"))
	return filepath.Join(dir, name+".snapshot.json")
}

// LoadChapterSnapshot は、既存のスナップショットファイルを読み込みます。
// ファイルが存在しない場合は (nil, nil) を返します。
func LoadChapterSnapshot(dir string, manga model.Manga) (*ChapterSnapshot, error) {
	path := snapshotPath(dir, manga.URL)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // 初回取得
		}
		return nil, fmt.Errorf("スナップショットファイルの読み込みに失敗しました (path=%s): %w", path, err)
	}

	var snapshot ChapterSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("スナップショットのパースに失敗しました (path=%s): %w", path, err)
	}
	return &snapshot, nil
}

// SaveChapterSnapshot は、スナップショットを一時ファイル経由で置き換え保存します。
func SaveChapterSnapshot(dir string, snapshot *ChapterSnapshot) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("スナップショット用ディレクトリの作成に失敗しました (dir=%s): %w", dir, err)
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("スナップショットのシリアライズに失敗しました: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました (dir=%s): %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("スナップショットファイルの書き込みに失敗しました (path=%s): %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("スナップショットファイルのクローズに失敗しました (path=%s): %w", tmpPath, err)
	}

	path := snapshotPath(dir, snapshot.MangaURL)
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("スナップショットファイルの置き換えに失敗しました (path=%s): %w", path, err)
	}
	return nil
}

// NeedsUpdate は、チャプター一覧が前回のスナップショットから変化しているかを判定します。
func NeedsUpdate(snapshot *ChapterSnapshot, chapters []model.Chapter) bool {
	if snapshot == nil {
		return true // 初回取得
	}
	if len(chapters) != len(snapshot.Chapters) {
		return true
	}
	for i := range chapters {
		if chapters[i].URL != snapshot.Chapters[i].URL {
			return true
		}
	}
	return false
}

// NewChapters は、スナップショットに存在しないチャプターを一覧の順序のまま返します。
func NewChapters(snapshot *ChapterSnapshot, chapters []model.Chapter) []model.Chapter {
	if snapshot == nil {
		return chapters
	}
	known := make(map[string]bool, len(snapshot.Chapters))
	for _, c := range snapshot.Chapters {
		known[c.URL] = true
	}
	var fresh []model.Chapter
	for _, c := range chapters {
		if !known[c.URL] {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

// SanitizeFilename は、ファイル名に使えない文字を全角文字に置き換えます。
func SanitizeFilename(name string) string {
	r := strings.NewReplacer(
		"/", "／",
		"\\", "＼",
		":", "：",
		"*", "＊",
		"?", "？",
		"\"", "”",
		"<", "＜",
		">", "＞",
		"|", "｜",
		"#", "＃",
	)
	return r.Replace(name)
}
