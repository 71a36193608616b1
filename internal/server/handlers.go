package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shouni/go-webtoon-kit/pkg/asset"
	"github.com/shouni/go-webtoon-kit/pkg/domain"
	"github.com/shouni/go-webtoon-kit/pkg/imagecodec"
	"github.com/shouni/go-webtoon-kit/pkg/store"
	"github.com/shouni/go-webtoon-kit/pkg/workflow"
)

type panelView struct {
	ID       int                `json:"id"`
	Prompt   string             `json:"prompt"`
	Status   domain.PanelStatus `json:"status"`
	Pending  bool               `json:"pending"`
	Failure  string             `json:"failure,omitempty"`
	ImageURL string             `json:"image_url,omitempty"`
}

type configView struct {
	StyleDescription string `json:"style_description"`
	ReferenceCount   int    `json:"reference_count"`
}

type sessionView struct {
	Generating     bool        `json:"generating"`
	CompositeReady bool        `json:"composite_ready"`
	Config         configView  `json:"config"`
	Panels         []panelView `json:"panels"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.sessionView())
}

func (s *Server) sessionView() sessionView {
	session := s.app.Session
	panels := session.Panels()

	views := make([]panelView, 0, len(panels))
	for _, p := range panels {
		v := panelView{ID: p.ID, Prompt: p.Prompt, Status: p.Status(), Pending: p.Pending, Failure: p.Failure}
		if p.HasImage() {
			v.ImageURL = fmt.Sprintf("/api/panels/%d/image", p.ID)
		}
		views = append(views, v)
	}

	_, ready := s.app.Preview.Latest()
	return sessionView{
		Generating:     session.Generating(),
		CompositeReady: ready,
		Config:         s.configView(),
		Panels:         views,
	}
}

func (s *Server) configView() configView {
	cfg := s.app.Session.Config()
	return configView{StyleDescription: cfg.StyleDescription, ReferenceCount: len(cfg.ReferenceImages)}
}

func (s *Server) putPrompt(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.app.Session.SetPrompt(id, req.Prompt); err != nil {
		writeError(c, err)
		return
	}
	p, _ := s.app.Session.Panel(id)
	c.JSON(http.StatusOK, gin.H{"id": p.ID, "prompt": p.Prompt})
}

func (s *Server) retryPanel(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	if _, err := s.app.Session.Panel(id); err != nil {
		writeError(c, err)
		return
	}
	s.goBackground("retry", func(ctx context.Context) error {
		return s.app.Orchestrator.Retry(ctx, s.app.Session, id)
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": id})
}

func (s *Server) getPanelImage(c *gin.Context) {
	id, ok := pathInt(c, "id")
	if !ok {
		return
	}
	p, err := s.app.Session.Panel(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !p.HasImage() {
		c.JSON(http.StatusNotFound, gin.H{"status": string(p.Status())})
		return
	}
	c.Data(http.StatusOK, p.Image.MIMEType, p.Image.Data)
}

func (s *Server) generateAll(c *gin.Context) {
	// 受付の時点で枠を確保するので、同時に来た 2 件目は必ず 409 になる
	run, err := s.app.Orchestrator.ReserveAll(s.app.Session)
	if err != nil {
		writeError(c, err)
		return
	}
	s.goBackground("generate_all", func(ctx context.Context) error {
		run(ctx)
		return nil
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "panels": s.app.Session.PanelCount()})
}

func (s *Server) reset(c *gin.Context) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リセットには confirm: true が必要です"})
		return
	}
	s.app.Orchestrator.Reset(s.app.Session)
	c.JSON(http.StatusOK, s.sessionView())
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.configView())
}

func (s *Server) putConfig(c *gin.Context) {
	var req struct {
		StyleDescription *string `json:"style_description"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.StyleDescription != nil {
		s.app.Session.SetStyleDescription(*req.StyleDescription)
	}
	c.JSON(http.StatusOK, s.configView())
}

func (s *Server) addReferences(c *gin.Context) {
	var req struct {
		Images []string `json:"images"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images := make([]imagecodec.Buffer, 0, len(req.Images))
	for i, raw := range req.Images {
		buf, err := imagecodec.ParsePayload(raw, imagecodec.MIMEPNG)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%d 番目の画像: %v", i+1, err)})
			return
		}
		images = append(images, buf)
	}
	s.app.Session.AddReferenceImages(images...)
	c.JSON(http.StatusOK, s.configView())
}

func (s *Server) deleteReference(c *gin.Context) {
	index, ok := pathInt(c, "index")
	if !ok {
		return
	}
	if err := s.app.Session.RemoveReferenceImage(index); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.configView())
}

func (s *Server) getComposite(c *gin.Context) {
	img, ok := s.app.Preview.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_ready"})
		return
	}
	if c.Query("inline") == "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", asset.DownloadFileNameFor(img.MIMEType)))
	}
	c.Data(http.StatusOK, img.MIMEType, img.Data)
}

func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s が不正です", name)})
		return 0, false
	}
	return v, true
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrPanelNotFound), errors.Is(err, workflow.ErrReferenceIndex):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrPanelBusy), errors.Is(err, workflow.ErrGenerationInProgress):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
