package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Venom120/Youtube-downloader/internal/history"
	"github.com/Venom120/Youtube-downloader/internal/hub"
	"github.com/Venom120/Youtube-downloader/internal/media"
	"github.com/Venom120/Youtube-downloader/internal/task"
)

type searchRequest struct {
	Query      string `json:"query" binding:"required"`
	MaxResults int    `json:"maxResults"`
}

type videoInfoRequest struct {
	URL string `json:"url" binding:"required"`
}

type downloadRequest struct {
	URL        string `json:"url" binding:"required"`
	Format     string `json:"format" binding:"required"`
	IsPlaylist bool   `json:"isPlaylist"`
	Title      string `json:"title"`
}

type controlResponse struct {
	DownloadID string `json:"downloadId"`
	OK         bool   `json:"ok"`
}

// API wires the task manager, the metadata collaborator and the history
// archive to the HTTP surface.
type API struct {
	manager   *task.Manager
	extractor media.Extractor
	archive   *history.Archive
	events    *hub.Hub[task.Event]
	appID     string
}

func NewAPI(manager *task.Manager, extractor media.Extractor, archive *history.Archive, events *hub.Hub[task.Event], appID string) *API {
	return &API{
		manager:   manager,
		extractor: extractor,
		archive:   archive,
		events:    events,
		appID:     appID,
	}
}

// RegisterRoutes registers API routes on the provided gin engine.
func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ws", a.HandleWebSocket)

	api := router.Group("/api/v1")
	api.Use(AppAuth(a.appID))
	{
		api.POST("/search", a.Search)
		api.POST("/video-info", a.VideoInfo)
		api.POST("/downloads", a.CreateDownload)
		api.GET("/downloads", a.ListDownloads)
		api.GET("/downloads/:id", a.GetDownload)
		api.DELETE("/downloads/:id", a.RemoveDownload)
		api.GET("/downloads/:id/file", a.DownloadFile)
		api.POST("/downloads/:id/pause", a.PauseDownload)
		api.POST("/downloads/:id/resume", a.ResumeDownload)
		api.POST("/downloads/:id/cancel", a.CancelDownload)
		api.GET("/history", a.ListHistory)
		api.DELETE("/history", a.PurgeHistory)
	}
}

// Search runs a bounded video search through the extractor collaborator.
func (a *API) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	videos, err := a.extractor.Search(c.Request.Context(), req.Query, req.MaxResults)
	if err != nil {
		log.Warn().Str("query", req.Query).Err(err).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"videos":  videos,
		"query":   req.Query,
		"hasMore": req.MaxResults > 0 && len(videos) >= req.MaxResults,
	})
}

// VideoInfo resolves metadata for one URL without downloading.
func (a *API) VideoInfo(c *gin.Context) {
	var req videoInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	meta, err := a.extractor.Extract(c.Request.Context(), req.URL)
	if errors.Is(err, media.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "video not found"})
		return
	}
	if err != nil {
		log.Warn().Str("url", req.URL).Err(err).Msg("video info failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get video info"})
		return
	}
	c.JSON(http.StatusOK, meta)
}

// CreateDownload validates the request and queues a new task. The response is
// immediate; progress flows through the WebSocket subscription or polling.
func (a *API) CreateDownload(c *gin.Context) {
	var req downloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	format, err := media.ParseFormat(req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap := a.manager.Download(req.URL, req.Title, format, req.IsPlaylist)
	c.JSON(http.StatusAccepted, snap)
}

// ListDownloads returns every tracked task in creation order.
func (a *API) ListDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"downloads": a.manager.List()})
}

// GetDownload returns one task snapshot.
func (a *API) GetDownload(c *gin.Context) {
	id := c.Param("id")
	snap, ok := a.manager.Status(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// RemoveDownload drops a task from the live store. A running task is canceled
// first; its history row, if any, is untouched.
func (a *API) RemoveDownload(c *gin.Context) {
	id := c.Param("id")
	if !a.manager.Remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadFile serves the finished file as an attachment.
func (a *API) DownloadFile(c *gin.Context) {
	id := c.Param("id")
	snap, ok := a.manager.Status(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if snap.Status != task.StatusCompleted || snap.FilePath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "download not completed"})
		return
	}
	if _, err := os.Stat(snap.FilePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(snap.FilePath, filepath.Base(snap.FilePath))
}

// PauseDownload suspends a queued or running task. Invalid transitions are
// reported as ok=false, not as errors.
func (a *API) PauseDownload(c *gin.Context) {
	a.control(c, a.manager.Pause)
}

// ResumeDownload continues a paused task.
func (a *API) ResumeDownload(c *gin.Context) {
	a.control(c, a.manager.Resume)
}

// CancelDownload requests cooperative cancellation.
func (a *API) CancelDownload(c *gin.Context) {
	a.control(c, a.manager.Cancel)
}

func (a *API) control(c *gin.Context, op func(string) bool) {
	id := c.Param("id")
	if _, ok := a.manager.Status(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, controlResponse{DownloadID: id, OK: op(id)})
}

// ListHistory returns archived finished tasks, most recent first.
func (a *API) ListHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	entries, err := a.archive.List(limit)
	if err != nil {
		log.Warn().Err(err).Msg("list history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list history"})
		return
	}
	if entries == nil {
		entries = []task.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// PurgeHistory drops all archived tasks.
func (a *API) PurgeHistory(c *gin.Context) {
	if err := a.archive.Purge(); err != nil {
		log.Warn().Err(err).Msg("purge history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to purge history"})
		return
	}
	c.Status(http.StatusNoContent)
}
