package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleList() List {
	return List{
		NewGroup("Types", "Tipos", "type_filter[]",
			Option{ID: "1", Name: "Manga"},
			Option{ID: "2", Name: "Manhwa"},
		),
		Separator(),
		NewGroup("Status", "Estado", "status_filter[]",
			Option{ID: "1", Name: "Activo"},
			Option{ID: "2", Name: "Finalizado"},
		),
		Separator(),
		NewGroup("Genres", "Géneros", "category_filter[]",
			Option{ID: "10", Name: "Drama"},
			Option{ID: "4", Name: "Aventura"},
			Option{ID: "1", Name: "Acción"},
		),
	}
}

func TestQueryParameters_OnlySelectedInDeclarationOrder(t *testing.T) {
	l := sampleList()
	require.NoError(t, l.Select("Genres", "1", "10"))
	require.NoError(t, l.Select("Types", "2"))

	params := l.QueryParameters()

	assert.Equal(t, []string{"type_filter[]", "category_filter[]"}, params.Keys)
	assert.Equal(t, []string{"2"}, params.Get("type_filter[]"))
	// 選択順ではなく選択肢の宣言順
	assert.Equal(t, []string{"10", "1"}, params.Get("category_filter[]"))
	assert.Nil(t, params.Get("status_filter[]"), "未選択グループは何も出力しません")
	assert.Equal(t, "type_filter%5B%5D=2&category_filter%5B%5D=10&category_filter%5B%5D=1", params.Encode())
}

func TestQueryParameters_Idempotent(t *testing.T) {
	l := sampleList()
	require.NoError(t, l.Select("Status", "1", "2"))

	first := l.QueryParameters()
	second := l.QueryParameters()

	assert.Equal(t, first, second)
	assert.Equal(t, first.Encode(), second.Encode())
}

func TestQueryParameters_IgnoresNonGroupKinds(t *testing.T) {
	l := List{
		Header("Solo UI"),
		Separator(),
		{Kind: Kind(42), Param: "bogus", Options: []Option{{ID: "x", Selected: true}}},
	}
	assert.Equal(t, 0, l.QueryParameters().Len())
}

func TestQueryParameters_Empty(t *testing.T) {
	params := sampleList().QueryParameters()
	assert.Equal(t, 0, params.Len())
	assert.Equal(t, "", params.Encode())
}

func TestParams_AddTo(t *testing.T) {
	l := sampleList()
	require.NoError(t, l.Select("Genres", "4"))

	v := url.Values{}
	v.Set("keywords", "")
	l.QueryParameters().AddTo(v)

	assert.Equal(t, []string{"4"}, v["category_filter[]"])
	assert.Equal(t, []string{""}, v["keywords"])
}

func TestSelect_Errors(t *testing.T) {
	l := sampleList()
	assert.Error(t, l.Select("Missing", "1"))
	assert.Error(t, l.Select("Types", "99"))
}

func TestClone_IsDeep(t *testing.T) {
	l := sampleList()
	c := l.Clone()
	require.NoError(t, c.Select("Types", "1"))

	assert.True(t, c.HasSelection())
	assert.False(t, l.HasSelection(), "クローンの変更は元に影響してはいけません")
}

func TestVisible(t *testing.T) {
	l := sampleList()

	t.Run("all toggled", func(t *testing.T) {
		v := l.Visible(map[string]bool{"Types": true, "Status": true, "Genres": true})
		assert.Equal(t, l, v)
	})

	t.Run("middle hidden collapses separators", func(t *testing.T) {
		v := l.Visible(map[string]bool{"Types": true, "Genres": true})
		require.Len(t, v, 3)
		assert.Equal(t, "Types", v[0].Key)
		assert.Equal(t, KindSeparator, v[1].Kind)
		assert.Equal(t, "Genres", v[2].Key)
	})

	t.Run("only last", func(t *testing.T) {
		v := l.Visible(map[string]bool{"Genres": true})
		require.Len(t, v, 1)
		assert.Equal(t, "Genres", v[0].Key)
	})

	t.Run("none", func(t *testing.T) {
		assert.Empty(t, l.Visible(nil))
	})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"Types", "Status", "Genres"}, sampleList().Keys())
}
