package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tgo/usagedash/internal/service"
)

type UsageHandler struct {
	ingestSvc *service.IngestService
	statsSvc  *service.StatsService
}

func NewUsageHandler(ingestSvc *service.IngestService, statsSvc *service.StatsService) *UsageHandler {
	return &UsageHandler{ingestSvc: ingestSvc, statsSvc: statsSvc}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// Submit ingests one usage submission and responds with the recomputed
// profile metrics.
func (h *UsageHandler) Submit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ingestSvc.Ingest(c.Request.Context(), userID, &req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission", "violations": verr.Violations})
			return
		}
		log.Printf("Failed to ingest submission for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusOK
	if result.Mode == service.ModeCreate {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"success": true, "result": result})
}

func (h *UsageHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	profile, err := h.statsSvc.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No usage profile yet"})
			return
		}
		log.Printf("Failed to load profile for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *UsageHandler) ListDaily(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var start, end *time.Time
	if s := c.Query("start"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date, expected YYYY-MM-DD"})
			return
		}
		start = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date, expected YYYY-MM-DD"})
			return
		}
		end = &t
	}
	if (start == nil) != (end == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be provided together"})
		return
	}

	days, err := h.statsSvc.ListDaily(c.Request.Context(), userID, start, end)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No usage profile yet"})
			return
		}
		log.Printf("Failed to list daily usage for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": days, "total": len(days)})
}
