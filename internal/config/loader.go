package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sourcePatch は、ソース設定をデコードするための中間ヘルパー構造体です。
type sourcePatch struct {
	Name        *string      `json:"name,omitempty"`
	UseTemplate string       `json:"use_template,omitempty"`
	SourceID    *string      `json:"source_id,omitempty"`
	Enabled     *bool        `json:"enabled,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
	Timezone    *string      `json:"timezone,omitempty"`
}

// rawConfig は、設定ファイルをデコードするための中間構造体です。
type rawConfig struct {
	ConfigVersion   string            `json:"config_version"`
	Network         NetworkSettings   `json:"network"`
	LogLevel        string            `json:"log_level"`
	EnableLogFile   bool              `json:"enable_log_file"`
	LogFilePath     string            `json:"log_file_path"`
	SourceTemplates map[string]Source `json:"source_templates"`
	Sources         []sourcePatch     `json:"sources"`
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// LoadAndResolve は、指定されたパスから設定ファイルを読み込み、解析と解決を行います。
func LoadAndResolve(path string) (*Config, error) {
	absPath, _ := filepath.Abs(path)
	cwd, _ := os.Getwd()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイル '%s' の読み込みに失敗しました (Abs: '%s', Cwd: '%s'): %w", path, absPath, cwd, err)
	}
	return ParseAndResolve(data)
}

// ParseAndResolve は、設定データのバイトスライスを解析し、テンプレートを解決して最終的な設定を返します。
// この関数はテストのために分離されています。
func ParseAndResolve(data []byte) (*Config, error) {
	var rawCfg rawConfig
	if err := json.Unmarshal(data, &rawCfg); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError

		if errors.As(err, &syntaxErr) {
			line, col := computeLineAndColumn(data, syntaxErr.Offset)
			return nil, fmt.Errorf("設定ファイルのJSON構文エラー (行 %d, 列 %d): %w", line, col, err)
		}
		if errors.As(err, &typeErr) {
			line, col := computeLineAndColumn(data, typeErr.Offset)
			return nil, fmt.Errorf("設定ファイルの型エラー (行 %d, 列 %d, フィールド '%s'): 期待値 %v, 実際 %v - %w",
				line, col, typeErr.Field, typeErr.Type, typeErr.Value, err)
		}
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}

	if rawCfg.ConfigVersion != CompatibleVersion {
		return nil, fmt.Errorf("サポートされていない設定バージョン '%s' です。'%s' が必要です。", rawCfg.ConfigVersion, CompatibleVersion)
	}

	logLevel := strings.ToLower(strings.TrimSpace(rawCfg.LogLevel))
	if logLevel == "" {
		logLevel = "info"
	}
	if !validLogLevels[logLevel] {
		return nil, fmt.Errorf("不正なログレベル '%s' です (debug|info|warn|error)", rawCfg.LogLevel)
	}

	resolvedConfig := &Config{
		ConfigVersion:   rawCfg.ConfigVersion,
		Network:         rawCfg.Network,
		LogLevel:        logLevel,
		EnableLogFile:   rawCfg.EnableLogFile,
		LogFilePath:     rawCfg.LogFilePath,
		SourceTemplates: rawCfg.SourceTemplates,
		Sources:         make([]Source, 0, len(rawCfg.Sources)),
	}

	for i, patch := range rawCfg.Sources {
		var resolvedSource Source
		if patch.UseTemplate != "" {
			template, ok := rawCfg.SourceTemplates[patch.UseTemplate]
			if !ok {
				name := fmt.Sprintf("#%d", i)
				if patch.Name != nil {
					name = *patch.Name
				}
				return nil, fmt.Errorf("ソース '%s' が未定義のテンプレート '%s' を使用しています", name, patch.UseTemplate)
			}
			resolvedSource = template
		}
		applyPatch(&resolvedSource, &patch)
		if resolvedSource.SourceID == "" {
			return nil, fmt.Errorf("ソース #%d に source_id が指定されていません", i)
		}
		if _, err := resolvedSource.Location(); err != nil {
			return nil, err
		}
		resolvedConfig.Sources = append(resolvedConfig.Sources, resolvedSource)
	}

	return resolvedConfig, nil
}

// applyPatch は、patchの非nilフィールドをtargetに上書きします。
func applyPatch(target *Source, patch *sourcePatch) {
	target.UseTemplate = patch.UseTemplate
	if patch.Name != nil {
		target.Name = *patch.Name
	}
	if patch.SourceID != nil {
		target.SourceID = *patch.SourceID
	}
	if patch.Enabled != nil {
		enabled := *patch.Enabled
		target.Enabled = &enabled
	}
	if patch.Preferences != nil {
		target.Preferences = patch.Preferences
	}
	if patch.Timezone != nil {
		target.Timezone = *patch.Timezone
	}
}

// computeLineAndColumn は、バイトオフセットから行番号と列番号（1始まり）を計算します。
func computeLineAndColumn(data []byte, offset int64) (int, int) {
	if offset < 0 || int(offset) > len(data) {
		return 0, 0
	}
	line := 1
	lastLineStart := 0
	for i, b := range data {
		if int64(i) == offset {
			return line, i - lastLineStart + 1
		}
		if b == '\n' {
			line++
			lastLineStart = i + 1
		}
	}
	return line, int(offset) - lastLineStart + 1
}
