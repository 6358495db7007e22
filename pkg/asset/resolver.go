package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DefaultImageDir は取得したカット画像を格納するデフォルトのディレクトリ名です。
	DefaultImageDir = "images"
	// DefaultScenarioJSON はシナリオ本体を書き出すデフォルトの JSON ファイル名です。
	DefaultScenarioJSON = "scenario.json"
	// ScenarioMarkdownSuffix はカード Markdown のファイル名の接尾辞です（Agent_scenario.md 等）。
	ScenarioMarkdownSuffix = "_scenario.md"
	// DefaultCutFileName はカット画像の共通のベースファイル名です。拡張子は画像の中身で差し替えます。
	DefaultCutFileName = "cut.png"
	// DefaultIdeasJSON / DefaultIdeasMarkdown はアイデアカードの書き出し先なのだ。
	DefaultIdeasJSON     = "ideas.json"
	DefaultIdeasMarkdown = "ideas.md"
)

// CutFileRegex はカット画像 (cut_1.png, cut_3.jpg 等) に一致します
var CutFileRegex = regexp.MustCompile(`^cut_\d+\.[A-Za-z0-9]+$`)

// ResolvePath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
func ResolvePath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入します。
// 例: "images/cut.png", 1 -> "images/cut_1.png"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// CutFileName はカット pos（1 始まり）の画像ファイル名を返すのだ。ext は ".png" のようにドット付き。
func CutFileName(pos int, ext string) (string, error) {
	if ext == "" {
		ext = filepath.Ext(DefaultCutFileName)
	}
	base := strings.TrimSuffix(DefaultCutFileName, filepath.Ext(DefaultCutFileName)) + ext
	name, err := GenerateIndexedPath(base, pos)
	if err != nil {
		return "", fmt.Errorf("カット画像のファイル名生成に失敗しました: %w", err)
	}
	return name, nil
}

// ScenarioMarkdownName はロールごとのカード Markdown のファイル名を返すのだ。
// ロールはワーカーが返したラベルのまま使うのだ（Agent_scenario.md 等）。
func ScenarioMarkdownName(role string) string {
	name := strings.TrimSpace(role)
	if name == "" {
		name = "untitled"
	}
	return name + ScenarioMarkdownSuffix
}
