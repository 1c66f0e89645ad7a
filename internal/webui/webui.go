// Package webui は、ソースアダプタの操作をJSON APIとして公開するHTTPサーバーを提供します。
package webui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"GoMangaSource/internal/adapter"
	"GoMangaSource/internal/core"
	"GoMangaSource/internal/filter"
	"GoMangaSource/internal/model"
	"GoMangaSource/internal/network"
	"GoMangaSource/internal/traversal"
)

// Server は、ソースIDごとのセッションをHTTP経由で公開します。
type Server struct {
	sessions map[string]*core.Session
	logger   *log.Logger
	router   *gin.Engine
}

// sourceInfo は /api/sources のレスポンス要素です。
type sourceInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Lang           string `json:"lang"`
	BaseURL        string `json:"base_url"`
	SupportsLatest bool   `json:"supports_latest"`
}

// NewServer は、ルーティングを設定した Server を生成します。
func NewServer(sessions map[string]*core.Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{sessions: sessions, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	api := router.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/sources", s.handleSources)

	src := api.Group("/sources/:id", s.resolveSession)
	src.GET("/filters", s.handleFilters)
	src.GET("/popular", s.handlePopular)
	src.GET("/latest", s.handleLatest)
	src.GET("/search", s.handleSearch)
	src.POST("/details", s.handleDetails)
	src.POST("/chapters", s.handleChapters)
	src.POST("/pages", s.handlePages)

	s.router = router
	return s
}

// Handler は http.Handler を返します。
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe は addr で待ち受け、ctx がキャンセルされるとサーバーを安全にシャットダウンします。
// ready が nil でない場合、待ち受け開始後に実際のアドレスを送信します。
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("Web UIサーバーのリッスンに失敗しました (addr=%s): %w", addr, err)
	}

	server := &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Minute, // チャプター一覧の走査は複数リクエストになります
		IdleTimeout:  10 * time.Minute,
	}
	server.RegisterOnShutdown(func() {
		s.logger.Println("INFO: Web UIサーバーがシャットダウンしました。")
	})

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("INFO: Web UIサーバーを http://%s で起動します。", listener.Addr())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if ready != nil {
		ready <- listener.Addr().String()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("Web UIサーバーが異常終了しました: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Println("INFO: Web UIサーバーのシャットダウンを開始します...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Web UIサーバーのシャットダウンに失敗しました: %w", err)
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Printf("INFO: %s %s %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func (s *Server) resolveSession(c *gin.Context) {
	id := c.Param("id")
	session, ok := s.sessions[id]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("ソース '%s' は登録されていません", id)})
		return
	}
	c.Set("session", session)
	c.Next()
}

func sessionFrom(c *gin.Context) *core.Session {
	return c.MustGet("session").(*core.Session)
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := make(map[string]core.StatsSnapshot, len(s.sessions))
	for id, session := range s.sessions {
		stats[id] = session.Stats().Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "sessions": stats})
}

func (s *Server) handleSources(c *gin.Context) {
	infos := make([]sourceInfo, 0, len(s.sessions))
	for _, session := range s.sessions {
		src := session.Source()
		infos = append(infos, sourceInfo{
			ID:             src.ID(),
			Name:           src.Name(),
			Lang:           src.Lang(),
			BaseURL:        src.BaseURL(),
			SupportsLatest: src.SupportsLatest(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	c.JSON(http.StatusOK, infos)
}

func (s *Server) handleFilters(c *gin.Context) {
	c.JSON(http.StatusOK, sessionFrom(c).Source().ListFilters())
}

func (s *Server) handlePopular(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	result, err := sessionFrom(c).Source().FetchPopular(c.Request.Context(), page)
	s.respond(c, result, err)
}

func (s *Server) handleLatest(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	result, err := sessionFrom(c).Source().FetchLatest(c.Request.Context(), page)
	s.respond(c, result, err)
}

// handleSearch は、q とフィルタのパラメータ (例: category_filter[]=1) から検索します。
func (s *Server) handleSearch(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}
	session := sessionFrom(c)
	filters, err := filtersFromQuery(c, session.Source().ListFilters())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := session.FetchCatalog(c.Request.Context(), page, c.Query("q"), filters)
	s.respond(c, result, err)
}

func (s *Server) handleDetails(c *gin.Context) {
	var manga model.Manga
	if !bindJSON(c, &manga, func() error { return manga.Validate() }) {
		return
	}
	result, err := sessionFrom(c).Source().FetchDetails(c.Request.Context(), manga)
	s.respond(c, result, err)
}

func (s *Server) handleChapters(c *gin.Context) {
	var manga model.Manga
	if !bindJSON(c, &manga, func() error {
		if manga.URL == "" {
			return errors.New("manga: URLが空です")
		}
		return nil
	}) {
		return
	}
	chapters, err := sessionFrom(c).ChapterList(c.Request.Context(), manga)
	s.respond(c, chapters, err)
}

func (s *Server) handlePages(c *gin.Context) {
	var chapter model.Chapter
	if !bindJSON(c, &chapter, func() error {
		if chapter.URL == "" {
			return errors.New("chapter: URLが空です")
		}
		return nil
	}) {
		return
	}
	pages, err := sessionFrom(c).PageList(c.Request.Context(), chapter)
	s.respond(c, pages, err)
}

func (s *Server) respond(c *gin.Context, body any, err error) {
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Printf("ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, body)
}

// StatusFor は、アダプタのエラーをHTTPステータスに対応付けます。
func StatusFor(err error) int {
	var (
		tErr    *traversal.TraversalError
		httpErr *network.HTTPError
	)
	switch {
	case errors.Is(err, adapter.ErrUnsupportedOperation):
		return http.StatusNotImplemented
	case errors.Is(err, adapter.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.As(err, &tErr), errors.As(err, &httpErr), errors.Is(err, adapter.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func pageParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("ページ番号 '%s' が不正です", raw)})
		return 0, false
	}
	return page, true
}

func bindJSON(c *gin.Context, target any, validate func() error) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("無効なJSON形式です: %v", err)})
		return false
	}
	if err := validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func filtersFromQuery(c *gin.Context, filters filter.List) (filter.List, error) {
	for _, f := range filters {
		if f.Kind != filter.KindGroup || f.Param == "" {
			continue
		}
		ids := c.QueryArray(f.Param)
		if len(ids) == 0 {
			continue
		}
		if err := filters.Select(f.Key, ids...); err != nil {
			return nil, err
		}
	}
	return filters, nil
}

// OpenBrowser はOSのデフォルトブラウザでURLを開きます。
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default: // Linux, BSDなど
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ブラウザの起動コマンドの実行に失敗しました: %w", err)
	}
	return nil
}
