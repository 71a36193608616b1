package config

import (
	"os"
	"testing"
	"time"

	"github.com/shouni/go-webtoon-kit/pkg/domain"
)

func TestLoadConfig(t *testing.T) {
	t.Run("環境変数がなければ既定値になること", func(t *testing.T) {
		for _, key := range []string{"IMAGE_GEMINI_MODEL", "WEBTOON_STYLE", "WEBTOON_PANEL_COUNT", "WEBTOON_REQUEST_TIMEOUT", "PORT"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
		cfg := LoadConfig()
		if cfg.ImageModel != DefaultImageModel {
			t.Errorf("モデルが違います: %s", cfg.ImageModel)
		}
		if cfg.StyleDescription != domain.DefaultStyleDescription {
			t.Errorf("画風が違います: %s", cfg.StyleDescription)
		}
		if cfg.PanelCount != domain.DefaultPanelCount {
			t.Errorf("パネル数が違います: %d", cfg.PanelCount)
		}
		if cfg.RequestTimeout != 0 {
			t.Errorf("タイムアウトは既定で無効のはずです: %s", cfg.RequestTimeout)
		}
		if cfg.ListenAddr != DefaultListenAddr {
			t.Errorf("待ち受けアドレスが違います: %s", cfg.ListenAddr)
		}
	})

	t.Run("環境変数の値が反映されること", func(t *testing.T) {
		t.Setenv("WEBTOON_PANEL_COUNT", "8")
		t.Setenv("WEBTOON_REQUEST_TIMEOUT", "90s")
		t.Setenv("WEBTOON_COMPOSITE_QUALITY", "0.8")
		t.Setenv("PORT", "9000")

		cfg := LoadConfig()
		if cfg.PanelCount != 8 || cfg.RequestTimeout != 90*time.Second || cfg.CompositeQuality != 0.8 {
			t.Errorf("値が反映されていません: %+v", cfg)
		}
		if cfg.ListenAddr != ":9000" {
			t.Errorf("待ち受けアドレスが違います: %s", cfg.ListenAddr)
		}

		wc := cfg.Workflow()
		if wc.PanelCount != 8 || wc.RequestTimeout != 90*time.Second {
			t.Errorf("workflow 設定への変換が違います: %+v", wc)
		}
	})

	t.Run("不正な値は既定値になること", func(t *testing.T) {
		t.Setenv("WEBTOON_PANEL_COUNT", "many")
		t.Setenv("WEBTOON_COMPOSITE_QUALITY", "7")
		cfg := LoadConfig()
		if cfg.PanelCount != domain.DefaultPanelCount || cfg.CompositeQuality != DefaultCompositeQuality {
			t.Errorf("既定値になっていません: %+v", cfg)
		}
	})
}
