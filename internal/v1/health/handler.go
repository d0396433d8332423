package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/L0C8/gooser/internal/v1/logging"
	"github.com/L0C8/gooser/internal/v1/state"
	"github.com/L0C8/gooser/internal/v1/types"
	"go.uber.org/zap"
)

// ChatState is the part of the chat client the status server reads.
type ChatState interface {
	ConnectionStatus() types.ConnectionStatus
	Snapshot() state.Snapshot
}

// Pinger checks an optional dependency. *bus.Service satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler manages health check endpoints
type Handler struct {
	chat  ChatState
	redis Pinger
}

// NewHandler creates a new health check handler. redis may be nil when the
// mirror is disabled.
func NewHandler(chat ChatState, redis Pinger) *Handler {
	return &Handler{
		chat:  chat,
		redis: redis,
	}
}

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Liveness handles the liveness probe endpoint
// GET /health/live
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	response := LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, response)
}

// Readiness handles the readiness probe endpoint
// GET /health/ready
// Returns 200 only while the chat session is connected and Redis, if
// enabled, answers PING. Returns 503 otherwise.
func (h *Handler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	chatStatus := h.checkChatServer()
	checks["chat_server"] = chatStatus
	if chatStatus != "healthy" {
		allHealthy = false
	}

	redisStatus := h.checkRedis(ctx)
	checks["redis"] = redisStatus
	if redisStatus != "healthy" {
		allHealthy = false
	}

	status := "ready"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(statusCode, response)
}

// State serves the durable slices as JSON.
// GET /state
func (h *Handler) State(c *gin.Context) {
	if h.chat == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat client not initialised"})
		return
	}
	c.JSON(http.StatusOK, h.chat.Snapshot())
}

func (h *Handler) checkChatServer() string {
	if h.chat == nil {
		return "unhealthy"
	}
	if s := h.chat.ConnectionStatus(); s != types.StatusConnected {
		return string(s)
	}
	return "healthy"
}

// checkRedis verifies Redis connectivity using PING command
func (h *Handler) checkRedis(ctx context.Context) string {
	// Mirror disabled, nothing to check
	if h.redis == nil {
		return "healthy"
	}

	if err := h.redis.Ping(ctx); err != nil {
		logging.Error(ctx, "Redis health check failed", zap.Error(err))
		return "unhealthy"
	}

	return "healthy"
}
