package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

var logLevels = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// levelWriter は、"DEBUG:" などの接頭辞を見て閾値未満の行を捨てる io.Writer です。
// 接頭辞のない行は INFO として扱います。
type levelWriter struct {
	out       io.Writer
	threshold int
}

func newLevelWriter(out io.Writer, level string) *levelWriter {
	threshold, ok := logLevels[strings.ToLower(level)]
	if !ok {
		threshold = logLevels["info"]
	}
	return &levelWriter{out: out, threshold: threshold}
}

// logHeader は、log.Logger が付ける "[name] " 接頭辞と日付・時刻です。
var logHeader = regexp.MustCompile(`^(?:\[[^\]]*\] )?(?:\d{4}/\d{2}/\d{2} )?(?:\d{2}:\d{2}:\d{2}(?:\.\d+)? )?`)

// lineLevel は、ヘッダー直後のレベル接頭辞から行のレベルを判定します。
// メッセージ本文に含まれる "ERROR:" などは判定に使いません。
func lineLevel(p []byte) int {
	msg := p[len(logHeader.Find(p)):]
	switch {
	case bytes.HasPrefix(msg, []byte("DEBUG:")):
		return logLevels["debug"]
	case bytes.HasPrefix(msg, []byte("WARNING:")):
		return logLevels["warn"]
	case bytes.HasPrefix(msg, []byte("ERROR:")), bytes.HasPrefix(msg, []byte("FATAL:")):
		return logLevels["error"]
	default:
		return logLevels["info"]
	}
}

func (w *levelWriter) Write(p []byte) (int, error) {
	if lineLevel(p) < w.threshold {
		return len(p), nil
	}
	return w.out.Write(p)
}

var (
	logFile   *os.File
	logMu     sync.Mutex
	logOutput io.Writer = os.Stderr
)

// toggleLogger はログ出力のファイル書き込みを切り替えます。
// enable: trueならファイルにも出力、falseなら標準エラー出力のみ
// path: ログファイルのパス (空の場合は日付形式)
func toggleLogger(enable bool, path, level string) error {
	logMu.Lock()
	defer logMu.Unlock()

	// 既存のログファイルがあれば閉じる
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var out io.Writer = os.Stderr
	if enable {
		if path == "" {
			today := time.Now().Format("2006-01-02")
			path = fmt.Sprintf("gms_%s.log", today)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("ログファイルを開けませんでした: %v", err)
			return err
		}
		logFile = f
		out = io.MultiWriter(os.Stderr, f)
	}

	logOutput = newLevelWriter(out, level)
	log.SetOutput(logOutput)
	if enable {
		log.Printf("DEBUG: ログ出力をファイル '%s' に開始しました", path)
	}
	return nil
}

// newLogger は、共通の出力先を使う名前付きロガーを生成します。
func newLogger(name string) *log.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return log.New(logOutput, fmt.Sprintf("[%s] ", name), log.LstdFlags)
}

func closeLogFile() {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
