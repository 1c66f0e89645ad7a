package adapter

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"GoMangaSource/internal/config"
)

// Dependencies は、アダプタの生成時に明示的に渡される依存関係です。
// アダプタはグローバルな設定ストアを参照しません。
type Dependencies struct {
	Transport   Transport
	Preferences config.Preferences
	Logger      *log.Logger
	Location    *time.Location // チャプター日時の解釈に使うタイムゾーン。nil の場合は time.Local
}

// Factory は、Dependencies から Source を生成します。
type Factory func(deps Dependencies) (Source, error)

var (
	registryMu sync.RWMutex
	// sourceRegistry は、ソースIDとSource実装のマッピングを保持します。
	sourceRegistry = map[string]Factory{
		KumangaID: newKumangaSource,
	}
)

// Register は、ソースIDに対するファクトリを登録します。同じIDは上書きされます。
func Register(id string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	sourceRegistry[strings.ToLower(id)] = factory
}

// GetSource は、指定されたソースIDに対応するSourceの新しいインスタンスを返します。
func GetSource(id string, deps Dependencies) (Source, error) {
	registryMu.RLock()
	factory, ok := sourceRegistry[strings.ToLower(id)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ソースID '%s' に対応するアダプタが見つかりません", id)
	}
	if deps.Transport == nil {
		return nil, errors.New("アダプタの生成にはTransportが必要です")
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	return factory(deps)
}

// IDs は、登録済みのソースIDを昇順で返します。
func IDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ids := make([]string, 0, len(sourceRegistry))
	for id := range sourceRegistry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
