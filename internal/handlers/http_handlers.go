package handlers

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"prizewheel/internal/config"
	"prizewheel/internal/models"
	"prizewheel/internal/services"
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	prizes       *services.PrizeService
	claims       *services.ClaimService
	registration *services.RegistrationService
	cfg          *config.Config
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(prizes *services.PrizeService, claims *services.ClaimService, registration *services.RegistrationService, cfg *config.Config) *HTTPHandler {
	return &HTTPHandler{
		prizes:       prizes,
		claims:       claims,
		registration: registration,
		cfg:          cfg,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/allocate-prize", h.AllocatePrize)
	router.POST("/next-claim-id", h.NextClaimID)
	router.POST("/attendees", h.RegisterAttendee)
	router.POST("/attendees/:id/verify", h.VerifyAttendee)
	router.GET("/attendees/:id", h.GetAttendee)
	router.POST("/prizes", h.AddPrize)
	router.GET("/prizes", h.ListPrizes)
	router.GET("/export-awards-csv", h.ExportAwardsCSV)
	router.GET("/healthz", h.Health)
}

type allocateRequest struct {
	AttendeeID string `json:"attendeeId" binding:"required"`
}

// AllocatePrize handles a spin request from a station. Responses are
// single-use, so caching is disabled.
func (h *HTTPHandler) AllocatePrize(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "details": err.Error()})
		return
	}

	result, err := h.prizes.AllocatePrize(c.Request.Context(), req.AttendeeID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyClaimed):
			c.JSON(http.StatusBadRequest, gin.H{"code": "PRIZE_ALREADY_CLAIMED"})
		case errors.Is(err, services.ErrOutOfStock):
			c.JSON(http.StatusNotFound, gin.H{"code": "NO_PRIZES_AVAILABLE"})
		case errors.Is(err, services.ErrAttendeeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "ATTENDEE_NOT_FOUND"})
		case errors.Is(err, services.ErrNotVerified):
			c.JSON(http.StatusForbidden, gin.H{"code": "NOT_VERIFIED"})
		default:
			logger.Errorf("Prize allocation failed for attendee %s: %v", req.AttendeeID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"code": "STORE_UNAVAILABLE", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// NextClaimID hands out the attendee's claim identifier.
func (h *HTTPHandler) NextClaimID(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	var req allocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimID, err := h.claims.NextClaimID(c.Request.Context(), req.AttendeeID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAttendeeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "attendee not found"})
		case errors.Is(err, services.ErrAllocationContention):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ALLOCATION_CONTENTION"})
		default:
			logger.Errorf("Claim id allocation failed for attendee %s: %v", req.AttendeeID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"claimId": claimID})
}

type registerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
}

// RegisterAttendee creates an attendee and kicks off code verification.
func (h *HTTPHandler) RegisterAttendee(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attendee, err := h.registration.Register(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		logger.Errorf("Registration failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, attendee)
}

type verifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyAttendee checks a one-time code and marks the attendee verified.
func (h *HTTPHandler) VerifyAttendee(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.registration.Verify(c.Request.Context(), c.Param("id"), req.Code)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"verified": true})
	case errors.Is(err, services.ErrAttendeeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "attendee not found"})
	case errors.Is(err, services.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code"})
	default:
		logger.Errorf("Verification failed for attendee %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GetAttendee returns the attendee record.
func (h *HTTPHandler) GetAttendee(c *gin.Context) {
	attendee, err := h.registration.GetAttendee(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrAttendeeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attendee not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, attendee)
}

type addPrizeRequest struct {
	Name          string `json:"name" binding:"required"`
	DisplayText   string `json:"displayText"`
	Weight        int    `json:"weight"`
	Stock         int    `json:"stock" binding:"required"`
	Color         string `json:"color"`
	TextColor     string `json:"textColor"`
	WheelPosition *int   `json:"wheelPosition"`
}

// AddPrize creates a prize at event setup time.
func (h *HTTPHandler) AddPrize(c *gin.Context) {
	var req addPrizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Stock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stock must not be negative"})
		return
	}

	prize := &models.Prize{
		Name:        req.Name,
		DisplayText: req.DisplayText,
		Weight:      req.Weight,
		Stock:       req.Stock,
		Color:       req.Color,
		TextColor:   req.TextColor,
	}
	wheelPosition := -1
	if req.WheelPosition != nil {
		wheelPosition = *req.WheelPosition
	}

	if err := h.prizes.AddPrize(c.Request.Context(), prize, wheelPosition); err != nil {
		logger.Errorf("Failed to add prize: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, prize)
}

// ListPrizes returns every prize for the booth dashboard.
func (h *HTTPHandler) ListPrizes(c *gin.Context) {
	prizes, err := h.prizes.ListPrizes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prizes)
}

// ExportAwardsCSV handles the request to download the award log as a CSV file.
func (h *HTTPHandler) ExportAwardsCSV(c *gin.Context) {
	awards, err := h.prizes.ListAwards(c.Request.Context())
	if err != nil {
		c.String(http.StatusInternalServerError, "Error loading awards")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=awards.csv")

	// Add BOM to ensure UTF-8 compatibility in Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)

	if err := w.Write([]string{"Award ID", "Attendee ID", "Prize ID", "Prize Name", "Awarded At"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}

	for _, a := range awards {
		row := []string{a.ID, a.AttendeeID, strconv.FormatInt(a.PrizeID, 10), a.PrizeName, a.AwardedAt.Format("2006-01-02 15:04:05")}
		if err := w.Write(row); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			c.String(http.StatusInternalServerError, "Error writing CSV")
			return
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

// Health reports liveness.
func (h *HTTPHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}
