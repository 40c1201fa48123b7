package handlers

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"storefront/internal/caching"
	"storefront/internal/services"

	"github.com/labstack/echo/v4"
)

var errBucketMissing = errors.New("image bucket does not exist")

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db      Pinger
	cache   caching.CacheService
	images  services.ImageService
	started time.Time
	timeout time.Duration
}

// NewHealthHandlers accepts a nil images service when object storage is not
// configured.
func NewHealthHandlers(db Pinger, cache caching.CacheService, images services.ImageService) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		cache:   cache,
		images:  images,
		started: time.Now(),
		timeout: 2 * time.Second,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
}

type componentCheck struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

func (h *HealthHandlers) checks(ctx context.Context) map[string]componentCheck {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	out := map[string]componentCheck{
		"database": h.run(ctx, h.db.Ping),
		"cache":    h.run(ctx, h.cache.Ping),
	}
	if h.images != nil {
		out["storage"] = h.run(ctx, h.checkStorage)
	}
	return out
}

func (h *HealthHandlers) run(ctx context.Context, check func(context.Context) error) componentCheck {
	start := time.Now()
	err := check(ctx)
	result := componentCheck{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = "unhealthy"
		result.Message = err.Error()
	}
	return result
}

func (h *HealthHandlers) checkStorage(ctx context.Context) error {
	exists, err := h.images.BucketExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return errBucketMissing
	}
	return nil
}

// HealthCheck answers 206 when any dependency is unhealthy.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	for name, check := range h.checks(c.Request().Context()) {
		health.Services[name] = check.Status
		if check.Status != "healthy" {
			health.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

// ReadinessCheck only requires the database; the catalog degrades to
// uncached reads and image-less grids without the others.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck reports per-dependency latency and runtime stats.
func (h *HealthHandlers) DetailedHealthCheck(c echo.Context) error {
	checks := h.checks(c.Request().Context())
	overall := "healthy"
	for _, check := range checks {
		if check.Status != "healthy" {
			overall = "degraded"
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"overall_status": overall,
		"checks":         checks,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime":         time.Since(h.started).Round(time.Second).String(),
		"goroutines":     runtime.NumGoroutine(),
		"memory": map[string]uint64{
			"alloc_bytes": mem.Alloc,
			"sys_bytes":   mem.Sys,
			"num_gc":      uint64(mem.NumGC),
		},
	})
}
