package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"propwatch/server/internal/scheduler"
	"propwatch/server/internal/store"
)

type reviewStore interface {
	PendingReview(maxTravelTime int) ([]store.ReviewCandidate, error)
}

type runControl interface {
	TriggerIngest() error
	TriggerGeofence() error
	Status() scheduler.Status
}

// Handler exposes a thin surface over the store and the scheduler: status,
// pending-review reads, and black-box run triggers.
type Handler struct {
	store         reviewStore
	runs          runControl
	logger        *logrus.Logger
	maxTravelTime int
}

// NewHandler creates an API handler.
func NewHandler(st reviewStore, runs runControl, maxTravelTime int, logger *logrus.Logger) *Handler {
	return &Handler{
		store:         st,
		runs:          runs,
		logger:        logger,
		maxTravelTime: maxTravelTime,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) GetPendingReview(c *gin.Context) {
	candidates, err := h.store.PendingReview(h.maxTravelTime)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load pending review properties")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pending review properties"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(candidates),
		"properties": candidates,
	})
}

func (h *Handler) GetRunStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.runs.Status())
}

func (h *Handler) TriggerSearch(c *gin.Context) {
	if err := h.runs.TriggerIngest(); err != nil {
		h.respondTriggerError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "job": "ingest"})
}

func (h *Handler) TriggerGeofence(c *gin.Context) {
	if err := h.runs.TriggerGeofence(); err != nil {
		h.respondTriggerError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "job": "geofence"})
}

func (h *Handler) respondTriggerError(c *gin.Context, err error) {
	if errors.Is(err, scheduler.ErrJobRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.logger.WithError(err).Error("Failed to trigger job")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger job"})
}
