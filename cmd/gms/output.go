package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"GoMangaSource/internal/filter"
	"GoMangaSource/internal/model"
)

var (
	purple = lipgloss.Color("99")

	headerStyle = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func tableOutput() bool {
	return strings.EqualFold(outputFormat, "table")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCatalog(w io.Writer, page model.CatalogPage) error {
	if !tableOutput() {
		return printJSON(w, page)
	}
	if len(page.Mangas) == 0 {
		fmt.Fprintln(w, "作品が見つかりませんでした。")
		return nil
	}
	t := newTable("#", "Title", "URL", "Genres")
	for i, m := range page.Mangas {
		t.Row(fmt.Sprintf("%d", i+1), truncateString(m.Title, 40), m.URL, truncateString(m.GenreString(), 30))
	}
	fmt.Fprintln(w, t)
	fmt.Fprintf(w, "次のページ: %v\n", page.HasNextPage)
	return nil
}

func printChapters(w io.Writer, chapters []model.Chapter) error {
	if !tableOutput() {
		return printJSON(w, chapters)
	}
	t := newTable("#", "Name", "Date", "Scanlator", "URL")
	for _, c := range chapters {
		date := "-"
		if c.DateUpload > 0 {
			date = time.UnixMilli(c.DateUpload).Format("2006-01-02 15:04")
		}
		t.Row(fmt.Sprintf("%d", c.Position), truncateString(c.Name, 40), date, c.Scanlator, c.URL)
	}
	fmt.Fprintln(w, t)
	return nil
}

func printPages(w io.Writer, pages []model.Page) error {
	if !tableOutput() {
		return printJSON(w, pages)
	}
	t := newTable("#", "Image URL")
	for _, p := range pages {
		t.Row(fmt.Sprintf("%d", p.Index), p.ImageURL)
	}
	fmt.Fprintln(w, t)
	return nil
}

func printFilters(w io.Writer, filters filter.List) error {
	if !tableOutput() {
		return printJSON(w, filters)
	}
	t := newTable("Key", "Param", "ID", "Name")
	for _, f := range filters {
		if f.Kind != filter.KindGroup {
			continue
		}
		for _, o := range f.Options {
			t.Row(f.Key, f.Param, o.ID, o.Name)
		}
	}
	fmt.Fprintln(w, t)
	return nil
}

// truncateString は、表示幅を超える文字列を "..." で切り詰めます。ルーン単位で数えます。
func truncateString(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
