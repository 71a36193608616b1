package domain

import "github.com/shouni/go-webtoon-kit/pkg/imagecodec"

// PanelPatch はパネルの一部のフィールドだけを書き換える部分更新です。
type PanelPatch func(*Panel)

// Apply は patches を順に適用したパネルを返します。ID は変更されません。
func (p Panel) Apply(patches ...PanelPatch) Panel {
	id := p.ID
	for _, patch := range patches {
		if patch != nil {
			patch(&p)
		}
	}
	p.ID = id
	return p
}

// SetPrompt はプロンプトだけを書き換えます。
func SetPrompt(prompt string) PanelPatch {
	return func(p *Panel) { p.Prompt = prompt }
}

// SetImage は画像を設定します。
func SetImage(img imagecodec.Buffer) PanelPatch {
	return func(p *Panel) {
		cp := img
		p.Image = &cp
	}
}

// BeginAttempt は生成を始めるときの状態遷移です。画像と失敗理由を消して処理中にします。
func BeginAttempt() PanelPatch {
	return func(p *Panel) {
		p.Pending = true
		p.Image = nil
		p.Failure = ""
	}
}

// Succeeded は生成に成功したときの状態遷移です。
func Succeeded(img imagecodec.Buffer) PanelPatch {
	return func(p *Panel) {
		SetImage(img)(p)
		p.Failure = ""
		p.Pending = false
	}
}

// Failed は生成に失敗したときの状態遷移です。
func Failed(msg string) PanelPatch {
	return func(p *Panel) {
		p.Image = nil
		p.Failure = msg
		p.Pending = false
	}
}
