package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"GoMangaSource/internal/filter"
	"GoMangaSource/internal/model"
)

var (
	catalogPage  int
	filterFlags  []string
	walkMaxPages int
)

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "人気順の作品一覧を取得します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		result, err := session.Source().FetchPopular(ctx, catalogPage)
		if err != nil {
			return err
		}
		return printCatalog(cmd.OutOrStdout(), result)
	},
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "最新更新順の作品一覧を取得します (対応ソースのみ)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		result, err := session.Source().FetchLatest(ctx, catalogPage)
		if err != nil {
			return err
		}
		return printCatalog(cmd.OutOrStdout(), result)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "キーワードとフィルタで作品を検索します",
	Long:  "キーワードは空でも構いません。--filter category_filter=1,10 のようにフィルタを指定できます。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		filters, err := parseFilterFlags(session.Source().ListFilters(), filterFlags)
		if err != nil {
			return err
		}
		result, err := session.Source().Search(ctx, catalogPage, strings.Join(args, " "), filters)
		if err != nil {
			return err
		}
		return printCatalog(cmd.OutOrStdout(), result)
	},
}

var walkCmd = &cobra.Command{
	Use:   "walk [query]",
	Short: "カタログを先頭ページから最終ページまで走査します",
	Long:  "クエリもフィルタも無い場合は人気順、それ以外は検索結果を走査します。--max-pages 0 で無制限です。",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		filters, err := parseFilterFlags(session.Source().ListFilters(), filterFlags)
		if err != nil {
			return err
		}

		var all model.CatalogPage
		err = session.WalkCatalog(ctx, strings.Join(args, " "), filters, walkMaxPages, func(page model.CatalogPage) error {
			all.Mangas = append(all.Mangas, page.Mangas...)
			all.HasNextPage = page.HasNextPage
			return nil
		})
		if err != nil {
			return err
		}
		log.Printf("INFO: %s", session.Stats().FormatSessionInfo())
		return printCatalog(cmd.OutOrStdout(), all)
	},
}

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "ソースが提供する検索フィルタを表示します",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession(sourceID)
		if err != nil {
			return err
		}
		return printFilters(cmd.OutOrStdout(), session.Source().ListFilters())
	},
}

func init() {
	for _, c := range []*cobra.Command{popularCmd, latestCmd, searchCmd} {
		c.Flags().IntVarP(&catalogPage, "page", "p", 1, "ページ番号 (1始まり)")
	}
	for _, c := range []*cobra.Command{searchCmd, walkCmd} {
		c.Flags().StringArrayVarP(&filterFlags, "filter", "f", nil, "フィルタ指定 (キー=ID[,ID...])。複数回指定できます")
	}
	walkCmd.Flags().IntVar(&walkMaxPages, "max-pages", 1, "走査する最大ページ数 (0で無制限)")

	rootCmd.AddCommand(popularCmd, latestCmd, searchCmd, walkCmd, filtersCmd)
}

// parseFilterFlags は "キー=ID[,ID...]" 形式の指定をフィルタ一覧の複製に適用します。
func parseFilterFlags(filters filter.List, values []string) (filter.List, error) {
	selected := filters.Clone()
	for _, spec := range values {
		key, rawIDs, ok := strings.Cut(spec, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("フィルタ指定 '%s' の形式が不正です (キー=ID[,ID...])", spec)
		}
		var ids []string
		for _, id := range strings.Split(rawIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("フィルタ指定 '%s' にIDがありません", spec)
		}
		if err := selected.Select(key, ids...); err != nil {
			return nil, err
		}
	}
	return selected, nil
}
