// Package normalize は、生のレスポンスから正規化モデルへ変換する際に
// 共通して使う小さな変換関数群を提供します。
// フィールド単位の解析失敗は MalformedRecord として扱い、呼び出し側で既定値に置き換えます。
package normalize

import (
	"fmt"
	"strings"
	"time"

	"GoMangaSource/internal/model"
)

// MalformedRecord は、単一フィールドの解析に失敗したことを表すソフトエラーです。
// レスポンス全体の解析を失敗させてはいけません。
type MalformedRecord struct {
	Field string
	Value string
	Err   error
}

func (e *MalformedRecord) Error() string {
	return fmt.Sprintf("フィールド '%s' の解析に失敗しました (value=%q): %v", e.Field, e.Value, e.Err)
}

func (e *MalformedRecord) Unwrap() error {
	return e.Err
}

// StatusRule は、状態テキストに含まれる部分文字列と対応する Status です。
type StatusRule struct {
	Substring string
	Status    model.Status
}

// ParseStatus は、最初に一致した規則の Status を返します。一致しない場合は StatusUnknown です。
func ParseStatus(text string, rules []StatusRule) model.Status {
	for _, r := range rules {
		if r.Substring != "" && strings.Contains(text, r.Substring) {
			return r.Status
		}
	}
	return model.StatusUnknown
}

// ParseDate は、layout に従って value を解析し、エポックミリ秒を返します。
// loc が nil の場合は time.Local を使用します。
func ParseDate(layout, value string, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(layout, strings.TrimSpace(value), loc)
	if err != nil {
		return 0, &MalformedRecord{Field: "date", Value: value, Err: err}
	}
	return t.UnixMilli(), nil
}

// DateOrZero は ParseDate の寛容版で、解析に失敗した場合は0を返します。
func DateOrZero(layout, value string, loc *time.Location) int64 {
	millis, err := ParseDate(layout, value, loc)
	if err != nil {
		return 0
	}
	return millis
}

// HasNextPage は、取得件数がページサイズと一致する場合にのみ true を返します。
// 総件数を返さないAPIでは、短い最終ページだけが信頼できる終端の合図です。
func HasNextPage(count, pageSize int) bool {
	return pageSize > 0 && count == pageSize
}

// CleanText は、前後の空白と、エスケープの残骸であるバックスラッシュを取り除きます。
func CleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `\`, ""))
}
