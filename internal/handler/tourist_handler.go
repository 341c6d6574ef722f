package handler

import (
	"net/http"

	"github.com/Baaaki/travel-log/internal/service"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TouristHandler struct {
	touristService *service.TouristService
}

func NewTouristHandler(touristService *service.TouristService) *TouristHandler {
	return &TouristHandler{
		touristService: touristService,
	}
}

type RegisterRequest struct {
	Name     *string `json:"name"`
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateTouristRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// Register handles POST /api/tourists/auth/register
func (h *TouristHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.touristService.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Log.Info("Tourist registered",
		zap.Uint("tourist_id", result.Tourist.ID),
		zap.String("ip", c.ClientIP()),
	)
	c.JSON(http.StatusCreated, result)
}

// Login handles POST /api/tourists/auth/login
func (h *TouristHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	token, err := h.touristService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// List handles GET /api/tourists
func (h *TouristHandler) List(c *gin.Context) {
	tourists, err := h.touristService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourists)
}

// Get handles GET /api/tourists/:id
func (h *TouristHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	tourist, err := h.touristService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourist)
}

// Me handles GET /api/tourists/me
func (h *TouristHandler) Me(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}

	tourist, err := h.touristService.Get(c.Request.Context(), principalID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourist)
}

// UpdateMe handles PUT /api/tourists/me. The target is always the principal.
func (h *TouristHandler) UpdateMe(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}

	var req UpdateTouristRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	tourist, err := h.touristService.Update(c.Request.Context(), principalID, service.TouristPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourist)
}

// DeleteMe handles DELETE /api/tourists/me?hard=true
func (h *TouristHandler) DeleteMe(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}
	hard, ok := parseHard(c)
	if !ok {
		return
	}

	tourist, err := h.touristService.Delete(c.Request.Context(), principalID, hard)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tourist)
}
