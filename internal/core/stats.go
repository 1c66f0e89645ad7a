package core

import (
	"fmt"
	"sync"
	"time"
)

// SessionStats はセッション統計情報を管理します。
type SessionStats struct {
	mu             sync.Mutex
	startTime      time.Time
	mangasListed   int
	chaptersListed int
	pagesListed    int
}

// StatsSnapshot は、SessionStats のある時点の値です。
type StatsSnapshot struct {
	StartTime      time.Time `json:"start_time"`
	MangasListed   int       `json:"mangas_listed"`
	ChaptersListed int       `json:"chapters_listed"`
	PagesListed    int       `json:"pages_listed"`
}

func NewSessionStats() *SessionStats {
	return &SessionStats{startTime: time.Now()}
}

func (s *SessionStats) AddMangas(n int) {
	s.mu.Lock()
	s.mangasListed += n
	s.mu.Unlock()
}

func (s *SessionStats) AddChapters(n int) {
	s.mu.Lock()
	s.chaptersListed += n
	s.mu.Unlock()
}

func (s *SessionStats) AddPages(n int) {
	s.mu.Lock()
	s.pagesListed += n
	s.mu.Unlock()
}

// Snapshot は現在の値のコピーを返します。
func (s *SessionStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		StartTime:      s.startTime,
		MangasListed:   s.mangasListed,
		ChaptersListed: s.chaptersListed,
		PagesListed:    s.pagesListed,
	}
}

// FormatSessionInfo はセッション統計情報を文字列にフォーマットします。
func (s *SessionStats) FormatSessionInfo() string {
	snap := s.Snapshot()
	uptime := time.Since(snap.StartTime)
	hours := int(uptime.Hours())
	minutes := int(uptime.Minutes()) % 60

	return fmt.Sprintf("起動: %dh%dm | 作品: %d | チャプター: %d | ページ: %d",
		hours, minutes, snap.MangasListed, snap.ChaptersListed, snap.PagesListed)
}
