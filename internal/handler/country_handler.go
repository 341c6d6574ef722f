package handler

import (
	"net/http"

	"github.com/Baaaki/travel-log/internal/service"
	"github.com/gin-gonic/gin"
)

type CountryHandler struct {
	countryService *service.CountryService
}

func NewCountryHandler(countryService *service.CountryService) *CountryHandler {
	return &CountryHandler{
		countryService: countryService,
	}
}

type CreateCountryRequest struct {
	Abbreviation string  `json:"abbreviation" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Capital      *string `json:"capital"`
}

type UpdateCountryRequest struct {
	Abbreviation *string `json:"abbreviation"`
	Name         *string `json:"name"`
	Capital      *string `json:"capital"`
}

// List handles GET /api/countries
func (h *CountryHandler) List(c *gin.Context) {
	countries, err := h.countryService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, countries)
}

// Get handles GET /api/countries/:id
func (h *CountryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	country, err := h.countryService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, country)
}

// Create handles POST /api/countries
func (h *CountryHandler) Create(c *gin.Context) {
	var req CreateCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	country, err := h.countryService.Create(c.Request.Context(), service.CountryInput{
		Abbreviation: req.Abbreviation,
		Name:         req.Name,
		Capital:      req.Capital,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, country)
}

// Update handles PUT /api/countries/:id
func (h *CountryHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req UpdateCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	country, err := h.countryService.Update(c.Request.Context(), id, service.CountryPatch{
		Abbreviation: req.Abbreviation,
		Name:         req.Name,
		Capital:      req.Capital,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, country)
}

// Delete handles DELETE /api/countries/:id?hard=true
func (h *CountryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	hard, ok := parseHard(c)
	if !ok {
		return
	}

	country, err := h.countryService.Delete(c.Request.Context(), id, hard)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, country)
}

// Sync handles POST /api/countries/sync
func (h *CountryHandler) Sync(c *gin.Context) {
	result, err := h.countryService.SyncFromSource(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
