// Package config は、アプリケーションの設定ファイル(config.json)の構造定義と、
// その読み込み、解決（テンプレートのマージなど）に関する機能を提供します。
package config

import (
	"fmt"
	"strings"
	"time"
)

// CompatibleVersion は、このビルドが読み込める設定ファイルのバージョンです。
const CompatibleVersion = "1.0"

// Config は config.json ファイル全体を表すルート構造体です。
type Config struct {
	ConfigVersion   string            `json:"config_version"`
	Network         NetworkSettings   `json:"network"`
	LogLevel        string            `json:"log_level,omitempty"`
	EnableLogFile   bool              `json:"enable_log_file"`
	LogFilePath     string            `json:"log_file_path,omitempty"`
	SourceTemplates map[string]Source `json:"source_templates,omitempty"`
	Sources         []Source          `json:"sources"`
}

// NetworkSettings は、HTTPリクエストに関するグローバルな設定を保持します。
type NetworkSettings struct {
	UserAgent               string            `json:"user_agent"`
	DefaultHeaders          map[string]string `json:"default_headers"`
	PerDomainIntervalMillis map[string]int    `json:"per_domain_interval_ms"`
	RequestTimeoutMillis    int               `json:"request_timeout_ms"`
}

// Source は、単一のソースアダプタに対する設定です。
type Source struct {
	Name        string       `json:"name,omitempty"`
	UseTemplate string       `json:"use_template,omitempty"`
	SourceID    string       `json:"source_id,omitempty"`
	Enabled     *bool        `json:"enabled,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
	Timezone    string       `json:"timezone,omitempty"`
}

// Preferences は、アダプタに明示的に渡されるユーザー設定です。
type Preferences struct {
	// ToggledFilters は表示するフィルタのキーです。nil の場合は全フィルタを表示します。
	ToggledFilters []string `json:"toggled_filters,omitempty"`
	// CustomSourceName は表示用のソース名を上書きします。
	CustomSourceName string `json:"custom_source_name,omitempty"`
}

// Default は、設定ファイルが無い場合に使う既定の設定を返します。
func Default() *Config {
	return &Config{
		ConfigVersion: CompatibleVersion,
		LogLevel:      "info",
		Network: NetworkSettings{
			UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeoutMillis: 30000,
		},
	}
}

// IsEnabled は、Enabled が未指定または true の場合に true を返します。
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Prefs は、未指定の場合にゼロ値の Preferences を返します。
func (s Source) Prefs() Preferences {
	if s.Preferences == nil {
		return Preferences{}
	}
	return *s.Preferences
}

// Location は Timezone を解決します。空の場合は time.Local です。
func (s Source) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーン '%s' の読み込みに失敗しました (source=%s): %w", s.Timezone, s.SourceID, err)
	}
	return loc, nil
}

// Toggled は表示対象のフィルタキー集合を返します。
// ToggledFilters が nil の場合は allKeys 全てが対象です。
func (p Preferences) Toggled(allKeys []string) map[string]bool {
	set := make(map[string]bool, len(allKeys))
	if p.ToggledFilters == nil {
		for _, k := range allKeys {
			set[k] = true
		}
		return set
	}
	for _, k := range p.ToggledFilters {
		set[k] = true
	}
	return set
}

// FindSource は source_id が一致する最初の有効なソース設定を返します。
func (c *Config) FindSource(id string) (Source, bool) {
	for _, s := range c.Sources {
		if strings.EqualFold(s.SourceID, id) && s.IsEnabled() {
			return s, true
		}
	}
	return Source{}, false
}
