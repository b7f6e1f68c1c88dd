package handler

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"pazzo-admin/internal/cache"
	"pazzo-admin/internal/middleware"
	"pazzo-admin/internal/repository"
	"pazzo-admin/internal/service"
	"pazzo-admin/pkg/apierror"
	"pazzo-admin/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	admins    *service.AdminService
	records   *service.RecordService
	repo      repository.RecordRepository
	tokens    cache.Cache
	dbType    string
	cacheType string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	admins *service.AdminService,
	records *service.RecordService,
	repo repository.RecordRepository,
	tokens cache.Cache,
	dbType, cacheType string,
) *AdminHandler {
	return &AdminHandler{
		admins:    admins,
		records:   records,
		repo:      repo,
		tokens:    tokens,
		dbType:    dbType,
		cacheType: cacheType,
		startTime: time.Now(),
	}
}

// ResetPasswordRequest is the body of POST /api/admin/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword handles POST /api/admin/reset-password. Without an email
// the token's admin is used.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("Invalid request body"))
		return
	}
	if req.Email == "" {
		if td := middleware.GetTokenDataFromContext(r.Context()); td != nil {
			req.Email = td.Email
		}
	}
	if err := h.admins.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		response.Error(w, err)
		return
	}
	response.Message(w, http.StatusOK, "Password updated successfully")
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType
	stats["cache_type"] = h.cacheType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	if collections, err := h.records.Stats(ctx); err == nil {
		stats["collections"] = collections
	} else {
		stats["collections"] = map[string]interface{}{"status": "error", "error": err.Error()}
	}

	if storage, err := h.repo.GetStats(ctx); err == nil {
		storage["status"] = "connected"
		stats["storage"] = storage
	} else {
		stats["storage"] = map[string]interface{}{"status": "error", "error": err.Error()}
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// Reset handles POST /api/v1/admin/reset: drops every record and session.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Reset(r.Context()); err != nil {
		response.Error(w, apierror.InternalError("Failed to reset records"))
		return
	}
	if h.tokens != nil {
		if err := h.tokens.Clear(r.Context()); err != nil {
			response.Error(w, apierror.InternalError("Failed to clear sessions"))
			return
		}
	}
	response.Message(w, http.StatusOK, "Twin state reset")
}
