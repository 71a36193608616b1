package generator

import (
	"fmt"
	"strings"
)

// DefaultStyleFallback は画風の指定が空のときに使う文言です。
const DefaultStyleFallback = "Standard Webtoon Style"

// BuildPanelPrompt はパネル生成用のテキストプロンプトを組み立てます。
// パネル番号は 1 始まりで埋め込まれます。
func BuildPanelPrompt(req Request) string {
	style := strings.TrimSpace(req.StyleText)
	if style == "" {
		style = DefaultStyleFallback
	}

	var sb strings.Builder
	sb.WriteString("Create a panel for a webtoon/comic strip.\n")
	sb.WriteString(fmt.Sprintf("Panel Number: %d.\n\n", req.PanelIndex+1))
	sb.WriteString(fmt.Sprintf("Style/Atmosphere: %s.\n\n", style))
	sb.WriteString(fmt.Sprintf("Scene Description: %s\n\n", req.SceneText))
	sb.WriteString("Ensure the character consistency if reference images are provided.\n")
	sb.WriteString("The output must be a single high-quality image.")
	return sb.String()
}
