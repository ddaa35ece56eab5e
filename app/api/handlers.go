package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/work-dash/app/database"
)

func NewHandler(feedRepo database.FeedRepository, itemRepo database.ItemRepository,
	targetRepo database.TargetRepository) *Handler {
	return &Handler{
		feedRepo:   feedRepo,
		itemRepo:   itemRepo,
		targetRepo: targetRepo,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.feedRepo.GetSourceCount(ctx); err == nil {
		health["feeds"] = count
	}
	if count, err := h.itemRepo.GetItemCount(ctx); err == nil {
		health["items"] = count
	}
	if count, err := h.targetRepo.GetTargetCount(ctx); err == nil {
		health["targets"] = count
	}

	c.JSON(http.StatusOK, health)
}

// GetDashboardItems returns the important undismissed items followed by the
// most recent ones. An item may appear in both halves.
func (h *Handler) GetDashboardItems(c *gin.Context) {
	items, err := h.itemRepo.GetDashboardItems(c.Request.Context(), DashboardLimit)
	if err != nil {
		slog.Error("Database error", "operation", "get_dashboard_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if items == nil {
		items = []database.FeedItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) DismissItem(c *gin.Context) {
	var req dismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	found, err := h.itemRepo.DismissItem(c.Request.Context(), *req.ID)
	if err != nil {
		slog.Error("Database error", "operation", "dismiss_item", "id", *req.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": *req.ID, "dismissed": true})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	sources, err := h.feedRepo.ListSources(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if sources == nil {
		sources = []database.FeedSource{}
	}
	c.JSON(http.StatusOK, map[string]interface{}{
		"feeds": sources,
		"total": len(sources),
	})
}

func (h *Handler) CreateFeed(c *gin.Context) {
	var req createFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	source, err := h.feedRepo.CreateSource(c.Request.Context(), strings.TrimSpace(req.Label), strings.TrimSpace(req.URL), req.Important)
	if err != nil {
		slog.Error("Database error", "operation", "create_feed", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Feed source created", "feed", source.Label, "url", source.URL)
	c.JSON(http.StatusCreated, source)
}

func (h *Handler) ListTargets(c *gin.Context) {
	targets, err := h.targetRepo.ListTargets(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_targets", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if targets == nil {
		targets = []database.ProbeTarget{}
	}
	c.JSON(http.StatusOK, targets)
}

func (h *Handler) CreateTarget(c *gin.Context) {
	var req createTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "message": err.Error()})
		return
	}

	target, err := h.targetRepo.CreateTarget(c.Request.Context(), strings.TrimSpace(req.Label), strings.TrimSpace(req.Address))
	if err != nil {
		slog.Error("Database error", "operation", "create_target", "address", req.Address, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Probe target created", "target", target.Label, "address", target.Address)
	c.JSON(http.StatusCreated, target)
}
