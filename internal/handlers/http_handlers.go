package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"summitpass/internal/cache"
	"summitpass/internal/models"
	"summitpass/internal/services"
)

// maxLogoBytes is the upstream ceiling for uploaded image blobs.
const maxLogoBytes = 2 << 20

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	events  *services.EventService
	lottery *services.LotteryService
	auth    *services.AuthService
	cache   *cache.Cache
	stream  *services.Broadcaster
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(events *services.EventService, lottery *services.LotteryService,
	auth *services.AuthService, c *cache.Cache, stream *services.Broadcaster) *HTTPHandler {
	return &HTTPHandler{events: events, lottery: lottery, auth: auth, cache: c, stream: stream}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/register", h.Register)
	api.GET("/users/:id", h.GetUser)
	api.POST("/users/:id/visit/:standId", h.VisitStand)
	api.GET("/stands", h.ListStands)
	api.GET("/state", h.GetState)
	api.POST("/auth/login", h.Login)
	router.GET("/events", h.StreamEvents)

	admin := api.Group("/admin")
	admin.Use(h.AdminOnly())
	admin.GET("/users", h.ListUsers)
	admin.POST("/users/:id/approve", h.ApproveUser)
	admin.POST("/users/:id/checkin", h.CheckInUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.POST("/users/import", h.ImportRoster)
	admin.GET("/users/export", h.ExportRoster)
	admin.POST("/appstate", h.SetAppState)
	admin.POST("/password", h.SetAdminPassword)
	admin.POST("/lottery/draw/:n", h.StartDraw)
	admin.POST("/lottery/reset/:n", h.ResetDraw)
	admin.POST("/lottery/close", h.CloseLottery)
	admin.POST("/sponsors", h.AddSponsor)
	admin.DELETE("/sponsors/:id", h.RemoveSponsor)
	admin.POST("/event-image", h.SetEventImage)
	admin.DELETE("/event-image", h.RemoveEventImage)
	admin.POST("/logout", h.Logout)
}

// AdminOnly guards admin routes behind the session bearer token.
func (h *HTTPHandler) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !h.auth.Validate(token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// Login checks the admin credential and returns a bearer token.
func (h *HTTPHandler) Login(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	token, err := h.auth.Login(payload.Username, payload.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout discards the admin session token.
func (h *HTTPHandler) Logout(c *gin.Context) {
	h.auth.Logout()
	c.Status(http.StatusNoContent)
}

// Register creates an attendee and returns the digital pass payload.
func (h *HTTPHandler) Register(c *gin.Context) {
	var payload struct {
		Name    string `json:"name" binding:"required"`
		Email   string `json:"email" binding:"required"`
		Phone   string `json:"phone"`
		Company string `json:"company"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	user, err := h.events.RegisterUser(c.Request.Context(), payload.Name, payload.Email, payload.Phone, payload.Company)
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrTicketPoolExhausted):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
	default:
		c.JSON(http.StatusCreated, user)
	}
}

// GetUser returns the cached user, used by the pass view.
func (h *HTTPHandler) GetUser(c *gin.Context) {
	user, ok := h.cache.UserByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// VisitStand records a stand achievement. Revisiting is a success no-op.
func (h *HTTPHandler) VisitStand(c *gin.Context) {
	err := h.events.VisitStand(c.Request.Context(), c.Param("id"), c.Param("standId"))
	switch {
	case errors.Is(err, services.ErrUnknownUser):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "visit not recorded"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// ListStands returns the static stand catalog.
func (h *HTTPHandler) ListStands(c *gin.Context) {
	c.JSON(http.StatusOK, h.events.Stands())
}

// GetState returns the public shared state: display mode, lottery
// progress, sponsors and the event banner.
func (h *HTTPHandler) GetState(c *gin.Context) {
	g := h.cache.Global()
	c.JSON(http.StatusOK, gin.H{
		"appState":   g.AppState,
		"lottery":    g.Lottery,
		"sponsors":   h.cache.Sponsors(),
		"eventImage": g.EventImageBase64,
	})
}

// StreamEvents pushes applied store changes to the client over SSE.
func (h *HTTPHandler) StreamEvents(c *gin.Context) {
	client := h.stream.RegisterClient()
	defer h.stream.UnregisterClient(client)

	g := h.cache.Global()
	c.SSEvent("state", gin.H{
		"appState": g.AppState,
		"lottery":  g.Lottery,
		"sponsors": h.cache.Sponsors(),
	})

	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-client.Chan():
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// ListUsers returns the full cached registration list.
func (h *HTTPHandler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Users())
}

// ApproveUser marks a registration approved.
func (h *HTTPHandler) ApproveUser(c *gin.Context) {
	if err := h.events.ApproveUser(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "approval failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CheckInUser accredits an attendee scanned at the entrance.
func (h *HTTPHandler) CheckInUser(c *gin.Context) {
	err := h.events.CheckInUser(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, services.ErrUnknownUser):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check-in failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// DeleteUser removes a registration.
func (h *HTTPHandler) DeleteUser(c *gin.Context) {
	if err := h.events.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetAppState flips the NORMAL/ATTACK display mode for all clients.
func (h *HTTPHandler) SetAppState(c *gin.Context) {
	var payload struct {
		State models.AppState `json:"state"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil ||
		(payload.State != models.AppStateNormal && payload.State != models.AppStateAttack) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be NORMAL or ATTACK"})
		return
	}
	if err := h.events.SetAppState(c.Request.Context(), payload.State); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "state change failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// SetAdminPassword replaces the stored admin password.
func (h *HTTPHandler) SetAdminPassword(c *gin.Context) {
	var payload struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}
	if err := h.events.SetAdminPassword(c.Request.Context(), payload.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password change failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// StartDraw begins the lottery draw for one slot.
func (h *HTTPHandler) StartDraw(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidSlot.Error()})
		return
	}
	h.lotteryResult(c, h.lottery.StartDraw(c.Request.Context(), n))
}

// ResetDraw clears one slot's recorded winner.
func (h *HTTPHandler) ResetDraw(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidSlot.Error()})
		return
	}
	h.lotteryResult(c, h.lottery.ResetDraw(c.Request.Context(), n))
}

// CloseLottery returns the lottery to idle, keeping recorded results.
func (h *HTTPHandler) CloseLottery(c *gin.Context) {
	h.lotteryResult(c, h.lottery.CloseLottery(c.Request.Context()))
}

func (h *HTTPHandler) lotteryResult(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidSlot):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDrawActive),
		errors.Is(err, services.ErrSlotAlreadyWon),
		errors.Is(err, services.ErrNoUsers),
		errors.Is(err, services.ErrNoEligibleTickets):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lottery update failed"})
	default:
		c.JSON(http.StatusOK, h.lottery.State())
	}
}

// AddSponsor stores an uploaded logo as a sponsor entry.
func (h *HTTPHandler) AddSponsor(c *gin.Context) {
	fileName, blob, ok := h.readImageUpload(c, "logo")
	if !ok {
		return
	}
	sponsor, err := h.events.AddSponsor(c.Request.Context(), fileName, blob)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sponsor not stored"})
		return
	}
	c.JSON(http.StatusCreated, sponsor)
}

// RemoveSponsor deletes a sponsor entry.
func (h *HTTPHandler) RemoveSponsor(c *gin.Context) {
	if err := h.events.RemoveSponsor(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetEventImage stores the uploaded event banner.
func (h *HTTPHandler) SetEventImage(c *gin.Context) {
	_, blob, ok := h.readImageUpload(c, "image")
	if !ok {
		return
	}
	if err := h.events.SetEventImage(c.Request.Context(), blob); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image not stored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RemoveEventImage clears the event banner.
func (h *HTTPHandler) RemoveEventImage(c *gin.Context) {
	if err := h.events.RemoveEventImage(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image not removed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// readImageUpload reads a multipart image field and returns its file name
// and an encoded data blob, enforcing the 2 MiB ceiling.
func (h *HTTPHandler) readImageUpload(c *gin.Context, field string) (string, string, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing %s file", field)})
		return "", "", false
	}
	defer file.Close()

	if header.Size > maxLogoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 2 MB limit"})
		return "", "", false
	}
	data, err := io.ReadAll(io.LimitReader(file, maxLogoBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return "", "", false
	}
	if len(data) > maxLogoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds the 2 MB limit"})
		return "", "", false
	}
	return header.Filename, encodeImage(header, data), true
}

// encodeImage builds the stored data-URL blob. The blob passes through the
// system unchanged from here on.
func encodeImage(header *multipart.FileHeader, data []byte) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ImportRoster bulk-registers users from an uploaded CSV file.
func (h *HTTPHandler) ImportRoster(c *gin.Context) {
	file, _, err := c.Request.FormFile("roster")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing roster file"})
		return
	}
	defer file.Close()

	count, err := h.events.ImportRoster(c.Request.Context(), file)
	if errors.Is(err, services.ErrEmptyRoster) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Errorf("roster import: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable roster file", "imported": count})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": count})
}

// ExportRoster downloads the registration list as a CSV file.
func (h *HTTPHandler) ExportRoster(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=summit_participantes.csv")
	if err := h.events.ExportRoster(c.Writer); err != nil {
		logger.Errorf("roster export: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}
