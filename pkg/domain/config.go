package domain

import "github.com/shouni/go-webtoon-kit/pkg/imagecodec"

// DefaultStyleDescription はセッション開始時の画風指定です。
const DefaultStyleDescription = "Korean Webtoon Style, High Quality, Detailed"

// GenerationConfig は全パネル共通の生成条件です。
type GenerationConfig struct {
	// ReferenceImages はキャラクターの一貫性を保つための参照画像です。順序に意味があります。
	ReferenceImages  []imagecodec.Buffer
	StyleDescription string
}

// NewGenerationConfig は既定の画風で設定を作ります。
func NewGenerationConfig() GenerationConfig {
	return GenerationConfig{StyleDescription: DefaultStyleDescription}
}

// Clone は実行開始時点の設定を値として固定するための複製を返します。
func (c GenerationConfig) Clone() GenerationConfig {
	refs := make([]imagecodec.Buffer, len(c.ReferenceImages))
	for i, r := range c.ReferenceImages {
		refs[i] = r.Clone()
	}
	return GenerationConfig{ReferenceImages: refs, StyleDescription: c.StyleDescription}
}
