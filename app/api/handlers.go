package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"newsdesk/app/database"
	"newsdesk/app/moderation"
	"newsdesk/app/tasks"
)

// Handler serves the operational endpoints: liveness and pipeline statistics.
type Handler struct {
	db         *database.DB
	sourceRepo database.SourceRepository
	queueRepo  database.QueueRepository
	service    *moderation.Service
	scheduler  tasks.TaskSchedulerInterface
	version    string
}

func NewHandler(db *database.DB, sourceRepo database.SourceRepository,
	queueRepo database.QueueRepository, service *moderation.Service,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		db:         db,
		sourceRepo: sourceRepo,
		queueRepo:  queueRepo,
		service:    service,
		scheduler:  scheduler,
		version:    version,
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	sourceCount, err := h.sourceRepo.GetSourceCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	queueSize, err := h.queueRepo.Size()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	processingCount, err := h.queueRepo.ProcessingCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pendingRaw, pendingProcessed := h.service.PendingCounts()

	c.JSON(http.StatusOK, gin.H{
		"sources":           sourceCount,
		"queue_size":        queueSize,
		"processing":        processingCount,
		"pending_raw":       pendingRaw,
		"pending_processed": pendingProcessed,
		"task_queue":        h.scheduler.QueueLength(),
	})
}
