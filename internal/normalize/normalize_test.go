package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoMangaSource/internal/model"
)

const chapterDateLayout = "02/01/2006 15:04"

func TestParseDate(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		madrid = time.FixedZone("CEST", 2*60*60)
	}

	tests := []struct {
		name string
		loc  *time.Location
		in   string
		want int64
	}{
		{"utc", time.UTC, "05/09/2021 14:30", time.Date(2021, time.September, 5, 14, 30, 0, 0, time.UTC).UnixMilli()},
		{"madrid", madrid, "05/09/2021 14:30", time.Date(2021, time.September, 5, 14, 30, 0, 0, madrid).UnixMilli()},
		{"surrounding spaces", time.UTC, "  31/12/2020 23:59 ", time.Date(2020, time.December, 31, 23, 59, 0, 0, time.UTC).UnixMilli()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(chapterDateLayout, tt.in, tt.loc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Malformed(t *testing.T) {
	got, err := ParseDate(chapterDateLayout, "not-a-date", time.UTC)
	assert.Equal(t, int64(0), got)

	var rec *MalformedRecord
	require.True(t, errors.As(err, &rec))
	assert.Equal(t, "date", rec.Field)
	assert.Equal(t, "not-a-date", rec.Value)
}

func TestDateOrZero(t *testing.T) {
	assert.Equal(t, int64(0), DateOrZero(chapterDateLayout, "not-a-date", time.UTC))
	assert.Equal(t, int64(0), DateOrZero(chapterDateLayout, "", time.UTC))
	assert.NotZero(t, DateOrZero(chapterDateLayout, "05/09/2021 14:30", time.UTC))
}

func TestParseStatus(t *testing.T) {
	rules := []StatusRule{
		{Substring: "Activo", Status: model.StatusOngoing},
		{Substring: "Finalizado", Status: model.StatusCompleted},
	}

	assert.Equal(t, model.StatusOngoing, ParseStatus("Estado: Activo", rules))
	assert.Equal(t, model.StatusCompleted, ParseStatus("Finalizado", rules))
	assert.Equal(t, model.StatusUnknown, ParseStatus("Inconcluso", rules))
	assert.Equal(t, model.StatusUnknown, ParseStatus("", rules))
	assert.Equal(t, model.StatusUnknown, ParseStatus("Activo", nil))
}

func TestHasNextPage(t *testing.T) {
	assert.True(t, HasNextPage(10, 10))
	assert.False(t, HasNextPage(9, 10))
	assert.False(t, HasNextPage(0, 10))
	assert.False(t, HasNextPage(0, 0))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Una historia", CleanText(` Una \historia\ `))
}
