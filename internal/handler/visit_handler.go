package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Baaaki/travel-log/internal/apperror"
	"github.com/Baaaki/travel-log/internal/service"
	"github.com/gin-gonic/gin"
)

// Accepted visit date layouts, most precise first
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

type VisitHandler struct {
	visitService *service.VisitService
}

func NewVisitHandler(visitService *service.VisitService) *VisitHandler {
	return &VisitHandler{
		visitService: visitService,
	}
}

type CreateVisitRequest struct {
	CountryID uint    `json:"countryId" binding:"required"`
	Date      *string `json:"date"`
}

type UpdateVisitRequest struct {
	CountryID *uint        `json:"countryId"`
	Date      optionalDate `json:"date"`
}

// optionalDate tells an absent field (unchanged) from an explicit null (clear)
type optionalDate struct {
	Set   bool
	Value *string
}

func (d *optionalDate) UnmarshalJSON(data []byte) error {
	d.Set = true
	if string(data) == "null" {
		d.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	d.Value = &s
	return nil
}

// List handles GET /api/visits?countryId=
func (h *VisitHandler) List(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}

	var countryID *uint
	if raw := c.Query("countryId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			respondError(c, apperror.Validation("countryId must be a positive integer"))
			return
		}
		v := uint(id)
		countryID = &v
	}

	visits, err := h.visitService.List(c.Request.Context(), principalID, countryID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visits)
}

// Get handles GET /api/visits/:id
func (h *VisitHandler) Get(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	visit, err := h.visitService.Get(c.Request.Context(), id, principalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// Create handles POST /api/visits
func (h *VisitHandler) Create(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}

	var req CreateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	date, err := parseVisitDate(req.Date)
	if err != nil {
		respondError(c, err)
		return
	}

	visit, err := h.visitService.Create(c.Request.Context(), principalID, service.VisitInput{
		CountryID: req.CountryID,
		Date:      date,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, visit)
}

// Update handles PUT /api/visits/:id
func (h *VisitHandler) Update(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	patch := service.VisitPatch{CountryID: req.CountryID}
	if req.Date.Set {
		date, err := parseVisitDate(req.Date.Value)
		if err != nil {
			respondError(c, err)
			return
		}
		// null or "" removes the date
		patch.Date = date
		patch.ClearDate = date == nil
	}

	visit, err := h.visitService.Update(c.Request.Context(), id, principalID, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// Delete handles DELETE /api/visits/:id?hard=true
func (h *VisitHandler) Delete(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	hard, ok := parseHard(c)
	if !ok {
		return
	}

	visit, err := h.visitService.Delete(c.Request.Context(), id, principalID, hard)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// parseVisitDate accepts RFC 3339 timestamps or plain calendar dates.
// A nil or empty value means no date.
func parseVisitDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperror.Validation(fmt.Sprintf("date %q is not a valid date", *raw))
}
