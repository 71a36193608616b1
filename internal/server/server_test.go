package server

import (
	"context"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"

	"github.com/shouni/go-webtoon-kit/internal/builder"
	"github.com/shouni/go-webtoon-kit/internal/config"

	"github.com/shouni/go-webtoon-kit/pkg/generator"
	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
)

func newTestServer(t *testing.T) (*Server, *builder.AppContext) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{PanelCount: 3, StyleDescription: "Noir", CompositeQuality: 0.9}
	gen := generator.GeneratorFunc(func(context.Context, generator.Request) (imagecodec.Buffer, error) {
		return imagecodec.Encode(imaging.New(64, 32, color.Black), imagecodec.FormatPNG, 1)
	})
	app, err := builder.BuildAppWithGenerator(cfg, gen)
	if err != nil {
		t.Fatalf("アプリの組み立てに失敗しました: %v", err)
	}
	return New(context.Background(), app), app
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Session(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/session", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスが違います: %d", w.Code)
	}
	var got sessionView
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("JSON を読めません: %v", err)
	}
	if len(got.Panels) != 3 || got.Generating || got.CompositeReady || got.Config.StyleDescription != "Noir" {
		t.Errorf("セッションの内容が違います: %+v", got)
	}
}

func TestServer_Prompt(t *testing.T) {
	s, app := newTestServer(t)

	t.Run("プロンプトを書き換えられること", func(t *testing.T) {
		w := do(t, s, http.MethodPut, "/api/panels/2/prompt", `{"prompt":"夕焼けの教室"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスが違います: %d %s", w.Code, w.Body.String())
		}
		p, _ := app.Session.Panel(2)
		if p.Prompt != "夕焼けの教室" {
			t.Errorf("プロンプトが更新されていません: %q", p.Prompt)
		}
	})

	t.Run("存在しないパネルは 404 になること", func(t *testing.T) {
		if w := do(t, s, http.MethodPut, "/api/panels/9/prompt", `{"prompt":"x"}`); w.Code != http.StatusNotFound {
			t.Errorf("ステータスが違います: %d", w.Code)
		}
	})

	t.Run("ID が数値でなければ 400 になること", func(t *testing.T) {
		if w := do(t, s, http.MethodPut, "/api/panels/abc/prompt", `{"prompt":"x"}`); w.Code != http.StatusBadRequest {
			t.Errorf("ステータスが違います: %d", w.Code)
		}
	})
}

func TestServer_GenerateAndComposite(t *testing.T) {
	s, app := newTestServer(t)

	if w := do(t, s, http.MethodGet, "/api/composite", ""); w.Code != http.StatusNotFound {
		t.Fatalf("生成前は 404 になるべきです: %d", w.Code)
	}

	_ = app.Session.SetPrompt(1, "a")
	_ = app.Session.SetPrompt(3, "c")
	if w := do(t, s, http.MethodPost, "/api/generate", ""); w.Code != http.StatusAccepted {
		t.Fatalf("ステータスが違います: %d", w.Code)
	}
	s.Wait()
	if err := app.Preview.Refresh(context.Background()); err != nil {
		t.Fatalf("結合に失敗しました: %v", err)
	}

	w := do(t, s, http.MethodGet, "/api/composite", "")
	if w.Code != http.StatusOK {
		t.Fatalf("ステータスが違います: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != imagecodec.MIMEJPEG {
		t.Errorf("Content-Type が違います: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="nano-webtoon.jpg"`) {
		t.Errorf("Content-Disposition が違います: %s", cd)
	}

	if w := do(t, s, http.MethodGet, "/api/panels/2/image", ""); w.Code != http.StatusOK {
		t.Errorf("白紙パネルの画像が取得できません: %d", w.Code)
	}
}

func TestServer_GenerateTwice(t *testing.T) {
	gin.SetMode(gin.TestMode)
	release := make(chan struct{})
	gen := generator.GeneratorFunc(func(context.Context, generator.Request) (imagecodec.Buffer, error) {
		<-release
		return imagecodec.Encode(imaging.New(8, 8, color.Black), imagecodec.FormatPNG, 1)
	})
	app, err := builder.BuildAppWithGenerator(&config.Config{PanelCount: 2, CompositeQuality: 0.9}, gen)
	if err != nil {
		t.Fatalf("アプリの組み立てに失敗しました: %v", err)
	}
	_ = app.Session.SetPrompt(1, "a")
	s := New(context.Background(), app)

	if w := do(t, s, http.MethodPost, "/api/generate", ""); w.Code != http.StatusAccepted {
		t.Fatalf("1 件目のステータスが違います: %d", w.Code)
	}
	// 1 件目の処理がまだ始まっていなくても 2 件目は受け付けない
	if w := do(t, s, http.MethodPost, "/api/generate", ""); w.Code != http.StatusConflict {
		t.Errorf("2 件目は 409 になるべきです: %d", w.Code)
	}

	close(release)
	s.Wait()
	if app.Session.Generating() {
		t.Error("生成完了後も一括生成中のままです")
	}
}

func TestServer_Retry(t *testing.T) {
	s, app := newTestServer(t)

	if w := do(t, s, http.MethodPost, "/api/panels/7/retry", ""); w.Code != http.StatusNotFound {
		t.Errorf("存在しないパネルは 404 になるべきです: %d", w.Code)
	}

	_ = app.Session.SetPrompt(1, "a")
	if w := do(t, s, http.MethodPost, "/api/panels/1/retry", ""); w.Code != http.StatusAccepted {
		t.Fatalf("ステータスが違います: %d", w.Code)
	}
	s.Wait()
	p, _ := app.Session.Panel(1)
	if !p.HasImage() {
		t.Errorf("再試行で画像が設定されていません: %+v", p)
	}
}

func TestServer_Reset(t *testing.T) {
	s, app := newTestServer(t)
	_ = app.Session.SetPrompt(1, "a")
	app.Session.AddReferenceImages(imagecodec.Buffer{Data: []byte{1}})

	if w := do(t, s, http.MethodPost, "/api/reset", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("確認なしのリセットは 400 になるべきです: %d", w.Code)
	}
	p, _ := app.Session.Panel(1)
	if p.Prompt != "a" {
		t.Fatal("確認なしでリセットされました")
	}

	if w := do(t, s, http.MethodPost, "/api/reset", `{"confirm":true}`); w.Code != http.StatusOK {
		t.Fatalf("ステータスが違います: %d", w.Code)
	}
	p, _ = app.Session.Panel(1)
	if p.Prompt != "" || len(app.Session.Config().ReferenceImages) != 0 {
		t.Error("リセットされていません")
	}
	if app.Session.Config().StyleDescription != "Noir" {
		t.Error("画風の指定が消えています")
	}
}

func TestServer_References(t *testing.T) {
	s, app := newTestServer(t)

	body := `{"images":["data:image/jpeg;base64,AQID","BAUG"]}`
	if w := do(t, s, http.MethodPost, "/api/config/references", body); w.Code != http.StatusOK {
		t.Fatalf("ステータスが違います: %d %s", w.Code, w.Body.String())
	}
	refs := app.Session.Config().ReferenceImages
	if len(refs) != 2 || refs[0].MIMEType != imagecodec.MIMEJPEG || refs[1].MIMEType != imagecodec.MIMEPNG {
		t.Fatalf("参照画像が違います: %+v", refs)
	}

	if w := do(t, s, http.MethodPost, "/api/config/references", `{"images":["%%%"]}`); w.Code != http.StatusBadRequest {
		t.Errorf("不正な画像は 400 になるべきです: %d", w.Code)
	}
	if w := do(t, s, http.MethodDelete, "/api/config/references/5", ""); w.Code != http.StatusNotFound {
		t.Errorf("範囲外の削除は 404 になるべきです: %d", w.Code)
	}
	if w := do(t, s, http.MethodDelete, "/api/config/references/0", ""); w.Code != http.StatusOK {
		t.Errorf("削除に失敗しました: %d", w.Code)
	}
	if got := len(app.Session.Config().ReferenceImages); got != 1 {
		t.Errorf("参照画像の数が違います: %d", got)
	}

	if w := do(t, s, http.MethodPut, "/api/config", `{"style_description":"Pastel"}`); w.Code != http.StatusOK {
		t.Fatalf("ステータスが違います: %d", w.Code)
	}
	if got := app.Session.Config().StyleDescription; got != "Pastel" {
		t.Errorf("画風が更新されていません: %q", got)
	}
}
