package asset

import "testing"

func TestDownloadFileNameFor(t *testing.T) {
	tests := []struct {
		mime string
		want string
	}{
		{"image/jpeg", "nano-webtoon.jpg"},
		{"image/png", "nano-webtoon.png"},
		{"", "nano-webtoon.png"},
	}
	for _, tt := range tests {
		if got := DownloadFileNameFor(tt.mime); got != tt.want {
			t.Errorf("DownloadFileNameFor(%q) = %q, want %q", tt.mime, got, tt.want)
		}
	}
}

func TestPanelFileRegex(t *testing.T) {
	for _, name := range []string{"panel_1.png", "panel_20.jpg", "panel_3.webp"} {
		if !PanelFileRegex.MatchString(name) {
			t.Errorf("%s に一致するべきです", name)
		}
	}
	for _, name := range []string{"panel.png", "panel_x.png", "page_1.png", "panel_1.gif"} {
		if PanelFileRegex.MatchString(name) {
			t.Errorf("%s に一致してはいけません", name)
		}
	}
}
