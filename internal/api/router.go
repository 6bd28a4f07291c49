// Package api exposes the ranking over HTTP.
package api

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"corner-ranker/internal/pipeline"
	"corner-ranker/internal/playback"
)

// Service is what the handlers need from the simulation manager.
type Service interface {
	Query(ts float64) (pipeline.Result, error)
	Now() float64
	Reload(ctx context.Context) (*pipeline.Pipeline, error)
	Store() *pipeline.Store
}

type handler struct {
	svc Service
}

func NewRouter(svc Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	h := &handler{svc: svc}
	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ranking", h.ranking)
		v1.GET("/hotspots", h.hotspots)
		v1.GET("/corners", h.corners)
		v1.GET("/routes", h.routes)
		v1.GET("/playback", h.playback)
		v1.POST("/reload", h.reload)
	}
	return r
}

func (h *handler) health(c *gin.Context) {
	p, err := h.svc.Store().Current()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": true, "pipelineId": p.ID})
}

// current replies 503 and returns nil until the first dataset is loaded.
func (h *handler) current(c *gin.Context) *pipeline.Pipeline {
	p, err := h.svc.Store().Current()
	if err != nil {
		fail(c, http.StatusServiceUnavailable, err.Error())
		return nil
	}
	return p
}

func (h *handler) ranking(c *gin.Context) {
	ts := h.svc.Now()
	if v := c.Query("t"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			fail(c, http.StatusBadRequest, "invalid t: must be seconds")
			return
		}
		ts = f
	}
	res, err := h.svc.Query(ts)
	if err != nil {
		if errors.Is(err, pipeline.ErrNotReady) {
			fail(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	success(c, res)
}

func (h *handler) hotspots(c *gin.Context) {
	limit := -1
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	p := h.current(c)
	if p == nil {
		return
	}
	hs := p.Hotspots
	if limit >= 0 && len(hs) > limit {
		hs = hs[:limit]
	}
	success(c, gin.H{"total": len(p.Hotspots), "hotspots": hs})
}

func (h *handler) corners(c *gin.Context) {
	p := h.current(c)
	if p == nil {
		return
	}
	success(c, gin.H{"pipelineId": p.ID, "candidates": p.Pool})
}

func (h *handler) routes(c *gin.Context) {
	p := h.current(c)
	if p == nil {
		return
	}
	success(c, p.Routes)
}

func (h *handler) playback(c *gin.Context) {
	p := h.current(c)
	if p == nil {
		return
	}
	now := h.svc.Now()
	success(c, gin.H{
		"pipelineId": p.ID,
		"builtAt":    p.BuiltAt,
		"buildings":  p.Buildings,
		"trips":      p.Trips,
		"window":     p.Window,
		"now":        now,
		"clock":      playback.FormatClock(now),
		"start":      playback.FormatClock(p.Window.Min),
		"end":        playback.FormatClock(p.Window.Max),
	})
}

func (h *handler) reload(c *gin.Context) {
	start := time.Now()
	p, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		log.Printf("reload failed: %v", err)
		fail(c, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	success(c, gin.H{
		"pipelineId": p.ID,
		"hotspots":   len(p.Hotspots),
		"candidates": len(p.Pool),
		"took":       time.Since(start).String(),
	})
}
