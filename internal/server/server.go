package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-webtoon-kit/internal/builder"
)

const shutdownTimeout = 10 * time.Second

// Server はセッションを操作する JSON API を提供します。
// 生成処理はリクエストの寿命と切り離してバックグラウンドで実行されます。
type Server struct {
	app     *builder.AppContext
	baseCtx context.Context
	engine  *gin.Engine
	jobs    sync.WaitGroup
}

// New は Server を作り、ルートを登録します。ctx はバックグラウンド処理の親になります。
func New(ctx context.Context, app *builder.AppContext) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{app: app, baseCtx: ctx, engine: engine}
	s.RegisterRoutes(engine)
	return s
}

// Handler は http.Handler として使える gin のエンジンを返します。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// RegisterRoutes は /api 以下のルートを登録します。
func (s *Server) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/session", s.getSession)

		api.PUT("/panels/:id/prompt", s.putPrompt)
		api.POST("/panels/:id/retry", s.retryPanel)
		api.GET("/panels/:id/image", s.getPanelImage)

		api.POST("/generate", s.generateAll)
		api.POST("/reset", s.reset)

		api.GET("/config", s.getConfig)
		api.PUT("/config", s.putConfig)
		api.POST("/config/references", s.addReferences)
		api.DELETE("/config/references/:index", s.deleteReference)

		api.GET("/composite", s.getComposite)
	}
}

// Run は addr で待ち受け、ctx が終わるとバックグラウンド処理を待ってから停止します。
func (s *Server) Run(ctx context.Context, addr string) error {
	stopWatch := s.app.Preview.Watch(ctx)
	defer stopWatch()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("サーバーを起動します", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーの起動に失敗しました: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの停止に失敗しました: %w", err)
	}
	s.Wait()
	slog.Info("サーバーを停止しました")
	return nil
}

// Wait は実行中のバックグラウンド処理がすべて終わるまで待ちます。
func (s *Server) Wait() {
	s.jobs.Wait()
}

func (s *Server) goBackground(name string, fn func(ctx context.Context) error) {
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		if err := fn(s.baseCtx); err != nil {
			slog.Warn("バックグラウンド処理が失敗しました", "job", name, "error", err)
		}
	}()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	}
}
