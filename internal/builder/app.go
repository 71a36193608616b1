package builder

import (
	"github.com/shouni/go-webtoon-kit/internal/config"

	"github.com/shouni/go-webtoon-kit/pkg/publisher"
	"github.com/shouni/go-webtoon-kit/pkg/workflow"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持します。
// cmd と server はここから各コンポーネントを取り出して使います。
type AppContext struct {
	Config       *config.Config         // 環境変数とフラグから組み立てた設定
	Session      *workflow.Session      // パネルと生成設定
	Orchestrator *workflow.Orchestrator // 生成の実行
	Preview      *workflow.Preview      // 結合画像
	Publisher    *publisher.Publisher   // 成果物の保存
}
