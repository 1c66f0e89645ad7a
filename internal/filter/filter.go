// Package filter は、サイト固有のフィルタ群（種類・状態・ジャンルなど）を
// 独立して切り替え可能なグループとして表現し、選択状態をクエリパラメータへ
// 変換する機能を提供します。
package filter

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind はフィルタの種類を識別するタグです。
type Kind int

const (
	// KindGroup は、チェックボックスの集合でクエリパラメータを持ちます。
	KindGroup Kind = iota
	// KindSeparator は、UI上の区切り線です。クエリには影響しません。
	KindSeparator
	// KindHeader は、UI上の見出しです。クエリには影響しません。
	KindHeader
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindSeparator:
		return "separator"
	case KindHeader:
		return "header"
	default:
		return "unknown"
	}
}

// Option は、グループ内の選択肢です。ID はセッションをまたいで不変です。
type Option struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Selected bool   `json:"selected"`
}

// Filter は、タグ付きバリアントとしてのフィルタです。
// Key は設定（表示切替）で使う安定したキー、Param は送信時のクエリパラメータ名です。
type Filter struct {
	Kind    Kind     `json:"kind"`
	Key     string   `json:"key,omitempty"`
	Name    string   `json:"name,omitempty"`
	Param   string   `json:"param,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// NewGroup は、チェックボックスグループを生成します。
func NewGroup(key, name, param string, options ...Option) Filter {
	return Filter{
		Kind:    KindGroup,
		Key:     key,
		Name:    name,
		Param:   param,
		Options: options,
	}
}

// Separator は区切りを生成します。
func Separator() Filter {
	return Filter{Kind: KindSeparator}
}

// Header は見出しを生成します。
func Header(text string) Filter {
	return Filter{Kind: KindHeader, Name: text}
}

// List は、表示順に並んだフィルタの列です。
type List []Filter

// Clone は、選択状態を含めて List を深くコピーします。
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, f := range l {
		out[i] = f
		if f.Options != nil {
			out[i].Options = append([]Option(nil), f.Options...)
		}
	}
	return out
}

// Select は、key で指定したグループの ids を選択状態にします。
func (l List) Select(key string, ids ...string) error {
	for i := range l {
		if l[i].Kind != KindGroup || l[i].Key != key {
			continue
		}
		for _, id := range ids {
			found := false
			for j := range l[i].Options {
				if l[i].Options[j].ID == id {
					l[i].Options[j].Selected = true
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("フィルタ '%s' に選択肢 '%s' が存在しません", key, id)
			}
		}
		return nil
	}
	return fmt.Errorf("フィルタ '%s' が見つかりません", key)
}

// HasSelection は、いずれかのグループで選択肢が選ばれているかを返します。
func (l List) HasSelection() bool {
	for _, f := range l {
		if f.Kind != KindGroup {
			continue
		}
		for _, o := range f.Options {
			if o.Selected {
				return true
			}
		}
	}
	return false
}

// Keys は、グループの Key を宣言順に返します。
func (l List) Keys() []string {
	var keys []string
	for _, f := range l {
		if f.Kind == KindGroup {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Visible は、toggled で有効になっているグループのみを残した List を返します。
// 先頭・末尾・連続する区切りは取り除かれます。
func (l List) Visible(toggled map[string]bool) List {
	var out List
	for _, f := range l {
		switch f.Kind {
		case KindGroup:
			if !toggled[f.Key] {
				continue
			}
		case KindSeparator:
			if len(out) == 0 || out[len(out)-1].Kind == KindSeparator {
				continue
			}
		}
		out = append(out, f)
	}
	for len(out) > 0 && out[len(out)-1].Kind == KindSeparator {
		out = out[:len(out)-1]
	}
	return out
}

// QueryParameters は、選択中の選択肢をパラメータ名ごとの値の列に変換します。
// 同名パラメータは選択肢ごとに値が追加され、グループ宣言順、選択肢宣言順が保持されます。
// 区切りや見出しなどクエリを持たない種類は無視されます。
func (l List) QueryParameters() Params {
	params := Params{Values: make(map[string][]string)}
	for _, f := range l {
		if f.Kind != KindGroup || f.Param == "" {
			continue
		}
		for _, o := range f.Options {
			if o.Selected {
				params.Add(f.Param, o.ID)
			}
		}
	}
	return params
}

// Params は、キーの挿入順を保持する多値マップです。
type Params struct {
	Keys   []string
	Values map[string][]string
}

// Add は name に value を追加します。
func (p *Params) Add(name, value string) {
	if p.Values == nil {
		p.Values = make(map[string][]string)
	}
	if _, ok := p.Values[name]; !ok {
		p.Keys = append(p.Keys, name)
	}
	p.Values[name] = append(p.Values[name], value)
}

// Get は name の値の列を返します。
func (p Params) Get(name string) []string {
	return p.Values[name]
}

// Len はパラメータ名の数を返します。
func (p Params) Len() int {
	return len(p.Keys)
}

// AddTo は、全ての値を v に追加します。
func (p Params) AddTo(v url.Values) {
	for _, k := range p.Keys {
		for _, val := range p.Values[k] {
			v.Add(k, val)
		}
	}
}

// Encode は、挿入順を保ったままクエリ文字列にエンコードします。
func (p Params) Encode() string {
	var b strings.Builder
	for _, k := range p.Keys {
		for _, val := range p.Values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}
