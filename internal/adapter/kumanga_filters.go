package adapter

import "GoMangaSource/internal/filter"

// Kumanga の検索エンジンが受け付けるフィルタのキーとパラメータ名です。
const (
	kumangaTypeKey   = "type_filter"
	kumangaStatusKey = "status_filter"
	kumangaGenreKey  = "category_filter"
)

// kumangaFilters は、宣言順 (種類、区切り、状態、区切り、ジャンル) のフィルタ一覧を新しく生成します。
func kumangaFilters() filter.List {
	return filter.List{
		filter.NewGroup(kumangaTypeKey, "Filtrar por tipos", kumangaTypeKey+"[]",
			filter.Option{ID: "1", Name: "Manga"},
			filter.Option{ID: "2", Name: "Manhwa"},
			filter.Option{ID: "3", Name: "Manhua"},
			filter.Option{ID: "4", Name: "One shot"},
			filter.Option{ID: "5", Name: "Doujinshi"},
		),
		filter.Separator(),
		filter.NewGroup(kumangaStatusKey, "Filtrar por estado", kumangaStatusKey+"[]",
			filter.Option{ID: "1", Name: "Activo"},
			filter.Option{ID: "2", Name: "Finalizado"},
			filter.Option{ID: "3", Name: "Inconcluso"},
		),
		filter.Separator(),
		filter.NewGroup(kumangaGenreKey, "Filtrar por géneros", kumangaGenreKey+"[]", kumangaGenres()...),
	}
}

func kumangaGenres() []filter.Option {
	return []filter.Option{
		{ID: "1", Name: "Acción"},
		{ID: "2", Name: "Artes marciales"},
		{ID: "3", Name: "Automóviles"},
		{ID: "4", Name: "Aventura"},
		{ID: "5", Name: "Ciencia Ficción"},
		{ID: "6", Name: "Comedia"},
		{ID: "7", Name: "Demonios"},
		{ID: "8", Name: "Deportes"},
		{ID: "9", Name: "Doujinshi"},
		{ID: "10", Name: "Drama"},
		{ID: "11", Name: "Ecchi"},
		{ID: "12", Name: "Espacio exterior"},
		{ID: "13", Name: "Fantasía"},
		{ID: "14", Name: "Gender bender"},
		{ID: "46", Name: "Gore"},
		{ID: "15", Name: "Harem"},
		{ID: "16", Name: "Hentai"},
		{ID: "17", Name: "Histórico"},
		{ID: "18", Name: "Horror"},
		{ID: "19", Name: "Josei"},
		{ID: "20", Name: "Juegos"},
		{ID: "21", Name: "Locura"},
		{ID: "22", Name: "Magia"},
		{ID: "23", Name: "Mecha"},
		{ID: "24", Name: "Militar"},
		{ID: "25", Name: "Misterio"},
		{ID: "26", Name: "Música"},
		{ID: "27", Name: "Niños"},
		{ID: "28", Name: "Parodia"},
		{ID: "29", Name: "Policía"},
		{ID: "30", Name: "Psicológico"},
		{ID: "31", Name: "Recuentos de la vida"},
		{ID: "32", Name: "Romance"},
		{ID: "33", Name: "Samurai"},
		{ID: "34", Name: "Seinen"},
		{ID: "35", Name: "Shoujo"},
		{ID: "36", Name: "Shoujo Ai"},
		{ID: "37", Name: "Shounen"},
		{ID: "38", Name: "Shounen Ai"},
		{ID: "39", Name: "Sobrenatural"},
		{ID: "41", Name: "Súperpoderes"},
		{ID: "40", Name: "Suspenso"},
		{ID: "47", Name: "Terror"},
		{ID: "48", Name: "Tragedia"},
		{ID: "42", Name: "Vampiros"},
		{ID: "43", Name: "Vida escolar"},
		{ID: "44", Name: "Yaoi"},
		{ID: "45", Name: "Yuri"},
	}
}
