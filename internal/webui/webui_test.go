package webui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoMangaSource/internal/adapter"
	"GoMangaSource/internal/config"
	"GoMangaSource/internal/core"
	"GoMangaSource/internal/model"
	"GoMangaSource/internal/network"
	"GoMangaSource/internal/traversal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingTransport は、URLの部分一致でレスポンスを返すテスト用トランスポートです。
type recordingTransport struct {
	routes map[string]string
	urls   []string
}

func (r *recordingTransport) Execute(ctx context.Context, req *network.Request) ([]byte, error) {
	r.urls = append(r.urls, req.URL)
	for fragment, body := range r.routes {
		if strings.Contains(req.URL, fragment) {
			return []byte(body), nil
		}
	}
	return nil, &network.HTTPError{StatusCode: http.StatusNotFound, URL: req.URL, Message: "Not Found"}
}

const catalogJSON = `{"contents":[{"id":123,"slug":"one-piece","name":"One Piece","description":"Piratas","categories":[{"name":"Acción"}]}],"retrievedCount":1}`

const chapterHTML = `<html><head><script>var pUrl=[{"imgURL":"\/img\/1.jpg"},{"imgURL":"\/img\/2.jpg"}];</script></head><body></body></html>`

const detailsHTML = `<html><body><div id="tab2"><p><span>Finalizado</span></p><p>x</p><p><a>Oda</a></p></div></body></html>`

const chapterListHTML = `<html><body>
<div id="accordion">
  <div class="panel panel-default c_panel"><div class="panel-heading">
    <table><tr><td><h4><a href="/manga/9/c/902/corto-2" title="05/09/2021 14:30"><i></i> Capítulo 2</a></h4></td></tr></table>
  </div></div>
  <div class="panel panel-default c_panel"><div class="panel-heading">
    <table><tr><td><h4><a href="/manga/9/c/901/corto-1" title="04/09/2021 14:30"><i></i> Capítulo 1</a></h4></td></tr></table>
  </div></div>
</div>
<script>php_pagination(9,'corto',1,10,2,'chapters');</script>
</body></html>`

func newTestServer(t *testing.T, routes map[string]string) (*Server, *recordingTransport) {
	t.Helper()
	transport := &recordingTransport{routes: routes}
	logger := log.New(io.Discard, "", 0)
	src, err := adapter.GetSource(adapter.KumangaID, adapter.Dependencies{
		Transport:   transport,
		Preferences: config.Preferences{},
		Logger:      logger,
		Location:    time.UTC,
	})
	require.NoError(t, err)
	sessions := map[string]*core.Session{src.ID(): core.NewSession(src, logger)}
	return NewServer(sessions, logger), transport
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Sources(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/sources", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var infos []sourceInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, sourceInfo{ID: "kumanga", Name: "Kumanga", Lang: "es", BaseURL: "https://www.kumanga.com"}, infos[0])
}

func TestServer_Popular(t *testing.T) {
	s, transport := newTestServer(t, map[string]string{"searchengine.php": catalogJSON})

	rec := doRequest(t, s, http.MethodGet, "/api/sources/kumanga/popular?page=2", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page model.CatalogPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Mangas, 1)
	assert.Equal(t, "/manga/123/p/1/one-piece#cl", page.Mangas[0].URL)
	assert.False(t, page.HasNextPage)
	require.Len(t, transport.urls, 1)
	assert.Contains(t, transport.urls[0], "page=2&")
}

func TestServer_SearchWithFilters(t *testing.T) {
	s, transport := newTestServer(t, map[string]string{"searchengine.php": catalogJSON})

	rec := doRequest(t, s, http.MethodGet, "/api/sources/kumanga/search?q=one&category_filter[]=1&category_filter[]=4", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, transport.urls, 1)
	assert.True(t, strings.HasSuffix(transport.urls[0], "keywords=one&retrieveCategories=true&retrieveAuthors=false&contentType=manga&category_filter%5B%5D=1&category_filter%5B%5D=4"),
		transport.urls[0])
}

func TestServer_SearchWithUnknownFilterOption(t *testing.T) {
	s, transport := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/sources/kumanga/search?status_filter[]=99", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, transport.urls)
}

func TestServer_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"latest unsupported", http.MethodGet, "/api/sources/kumanga/latest", "", http.StatusNotImplemented},
		{"unknown source", http.MethodGet, "/api/sources/nope/popular", "", http.StatusNotFound},
		{"bad page", http.MethodGet, "/api/sources/kumanga/popular?page=abc", "", http.StatusBadRequest},
		{"page zero", http.MethodGet, "/api/sources/kumanga/popular?page=0", "", http.StatusBadRequest},
		{"upstream 404", http.MethodGet, "/api/sources/kumanga/popular", "", http.StatusBadGateway},
		{"details without title", http.MethodPost, "/api/sources/kumanga/details", `{"url":"/manga/1"}`, http.StatusBadRequest},
		{"details invalid json", http.MethodPost, "/api/sources/kumanga/details", `{`, http.StatusBadRequest},
		{"chapters traversal failure", http.MethodPost, "/api/sources/kumanga/chapters", `{"url":"/manga/1/p/1/x#cl"}`, http.StatusBadGateway},
		{"pages without url", http.MethodPost, "/api/sources/kumanga/pages", `{"name":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, map[string]string{"/manga/1/p/1/x": "<html><body>sin paginación</body></html>"})
			rec := doRequest(t, s, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestServer_Details(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"/manga/123/p/1/one-piece": detailsHTML})

	rec := doRequest(t, s, http.MethodPost, "/api/sources/kumanga/details", `{"url":"/manga/123/p/1/one-piece#cl","title":"One Piece"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var manga model.Manga
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manga))
	assert.Equal(t, model.StatusCompleted, manga.Status)
	assert.Equal(t, "Oda", manga.Author)
	assert.True(t, manga.Initialized)
}

func TestServer_Pages(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{"/manga/123/leer/1001": chapterHTML})

	rec := doRequest(t, s, http.MethodPost, "/api/sources/kumanga/pages", `{"url":"/manga/123/leer/1001/one-piece-1","name":"Capítulo 1"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pages []model.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pages))
	require.Len(t, pages, 2)
	assert.Equal(t, "https://www.kumanga.com/img/2.jpg", pages[1].ImageURL)
	assert.Equal(t, 1, pages[1].Index)
}

func TestServer_FiltersAndHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/sources/kumanga/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var filters []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filters))
	assert.Len(t, filters, 5)

	rec = doRequest(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestServer_ChaptersCountedInHealth(t *testing.T) {
	s, transport := newTestServer(t, map[string]string{"/manga/9/p/1/corto": chapterListHTML})

	rec := doRequest(t, s, http.MethodPost, "/api/sources/kumanga/chapters", `{"url":"/manga/9/p/1/corto#cl"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var chapters []model.Chapter
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chapters))
	require.Len(t, chapters, 2)
	assert.Equal(t, "/manga/9/leer/902/corto-2", chapters[0].URL)
	assert.Len(t, transport.urls, 1)

	rec = doRequest(t, s, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Sessions map[string]core.StatsSnapshot `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, 2, health.Sessions["kumanga"].ChaptersListed)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotImplemented, StatusFor(&adapter.UnsupportedOperationError{Source: "x", Operation: "latest"}))
	assert.Equal(t, http.StatusBadRequest, StatusFor(fmt.Errorf("wrap: %w", adapter.ErrInvalidPage)))
	assert.Equal(t, http.StatusBadGateway, StatusFor(&traversal.TraversalError{Page: 2, Err: errors.New("x")}))
	assert.Equal(t, http.StatusBadGateway, StatusFor(fmt.Errorf("%w: x", adapter.ErrMalformedResponse)))
	assert.Equal(t, http.StatusGatewayTimeout, StatusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("x")))
}

func TestServer_ListenAndServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)

	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0", ready) }()
	addr := <-ready

	resp, err := http.Get("http://" + addr + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("サーバーがシャットダウンしませんでした")
	}
}
