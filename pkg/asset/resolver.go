package asset

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

const (
	// DownloadFileName は結合画像をダウンロードするときのファイル名です。
	DownloadFileName = "nano-webtoon.jpg"
	// DefaultPanelDir はパネル画像を個別に保存するときのディレクトリ名です。
	DefaultPanelDir = "panels"
	// DefaultPanelFileName はパネル画像の共通のベースファイル名です。
	DefaultPanelFileName = "panel.png"
)

// PanelFileRegex はパネル画像 (panel_1.png, panel_2.jpg 等) に一致します
var PanelFileRegex = createIndexedRegex("panel")

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から最終的な出力パスを生成します。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	return urlpath.ResolvePath(baseDir, fileName)
}

// GenerateIndexedPath は、指定されたベースパスの拡張子の前に連番を挿入します。
// 例: "panels/panel.jpg", 3 -> "panels/panel_3.jpg"
func GenerateIndexedPath(basePath string, index int) (string, error) {
	return urlpath.GenerateIndexedPath(basePath, index)
}

// ExtensionFor は MIME タイプに対応する拡張子を返します。不明な場合は ".png" です。
func ExtensionFor(mimeType string) string {
	preferred := map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/webp": ".webp",
	}
	if ext, ok := preferred[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return ".png"
}

// DownloadFileNameFor は結合画像の形式に合わせたダウンロード名を返します。
// JPEG なら DownloadFileName そのものです。
func DownloadFileNameFor(mimeType string) string {
	base := strings.TrimSuffix(DownloadFileName, filepath.Ext(DownloadFileName))
	return base + ExtensionFor(mimeType)
}

// PanelPath は dir 以下に置く ID のパネル画像のパスを返します。
// 例: "out/panels", 3, "image/jpeg" -> "out/panels/panel_3.jpg"
func PanelPath(dir string, id int, mimeType string) (string, error) {
	name := strings.TrimSuffix(DefaultPanelFileName, filepath.Ext(DefaultPanelFileName)) + ExtensionFor(mimeType)
	base, err := ResolveOutputPath(dir, name)
	if err != nil {
		return "", err
	}
	return GenerateIndexedPath(base, id)
}

// createIndexedRegex は、ベース名に連番と画像拡張子が続くファイル名の正規表現を生成します。
// 例: "panel" -> ^panel_\d+\.(png|jpg|webp)$
func createIndexedRegex(baseName string) *regexp.Regexp {
	pattern := fmt.Sprintf(`^%s_\d+\.(png|jpg|webp)$`, regexp.QuoteMeta(baseName))
	return regexp.MustCompile(pattern)
}
