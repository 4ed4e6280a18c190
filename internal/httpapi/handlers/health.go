// Package handlers provides HTTP API handlers for vidwall.
package handlers

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jmylchreest/vidwall/internal/display"
	"github.com/jmylchreest/vidwall/internal/registry"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version   string
	startTime time.Time
	wall      *display.Wall
	reg       *registry.Registry
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithWall sets the wall for readiness and health reporting.
func (h *HealthHandler) WithWall(w *display.Wall) *HealthHandler {
	h.wall = w
	return h
}

// WithRegistry sets the source registry for readiness checks.
func (h *HealthHandler) WithRegistry(reg *registry.Registry) *HealthHandler {
	h.reg = reg
	return h
}

// LivezInput is the input for the liveness endpoint.
type LivezInput struct{}

// LivezOutput is the output for the liveness endpoint.
type LivezOutput struct {
	Body LivezResponse
}

// LivezResponse is the liveness response body.
type LivezResponse struct {
	Status string `json:"status"`
}

// ReadyzInput is the input for the readiness endpoint.
type ReadyzInput struct{}

// ReadyzOutput is the output for the readiness endpoint.
type ReadyzOutput struct {
	Body ReadyzResponse
}

// ReadyzResponse is the readiness response body.
type ReadyzResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// HealthResponse is the full health response body.
type HealthResponse struct {
	Status        string     `json:"status"`
	Timestamp     string     `json:"timestamp"`
	Version       string     `json:"version"`
	Uptime        string     `json:"uptime"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	CPU           CPUInfo    `json:"cpu"`
	Memory        MemoryInfo `json:"memory"`
	Wall          WallHealth `json:"wall"`
}

// CPUInfo holds CPU load information.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo holds system and process memory information.
type MemoryInfo struct {
	TotalMemoryMB     float64 `json:"total_memory_mb"`
	UsedMemoryMB      float64 `json:"used_memory_mb"`
	AvailableMemoryMB float64 `json:"available_memory_mb"`
	ProcessMemoryMB   float64 `json:"process_memory_mb"`
}

// WallHealth summarises wall state for the health endpoint.
type WallHealth struct {
	Displays     int `json:"displays"`
	SlotsPlaying int `json:"slots_playing"`
	Streams      int `json:"streams"`
	LocalFiles   int `json:"local_files"`
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getLivez",
		Method:      "GET",
		Path:        "/livez",
		Summary:     "Liveness check",
		Tags:        []string{"System"},
	}, h.GetLivez)

	huma.Register(api, huma.Operation{
		OperationID: "getReadyz",
		Method:      "GET",
		Path:        "/readyz",
		Summary:     "Readiness check",
		Tags:        []string{"System"},
	}, h.GetReadyz)

	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)
}

// GetLivez reports process liveness.
func (h *HealthHandler) GetLivez(_ context.Context, _ *LivezInput) (*LivezOutput, error) {
	return &LivezOutput{Body: LivezResponse{Status: "ok"}}, nil
}

// GetReadyz reports whether the wall is running with content available.
func (h *HealthHandler) GetReadyz(_ context.Context, _ *ReadyzInput) (*ReadyzOutput, error) {
	components := map[string]string{
		"wall":    "not_configured",
		"content": "not_configured",
	}

	ready := true
	if h.wall == nil {
		ready = false
	} else {
		components["wall"] = "ok"
	}

	if h.reg == nil {
		ready = false
	} else if h.reg.StreamCount()+h.reg.LibraryCount() == 0 {
		components["content"] = "empty"
		ready = false
	} else {
		components["content"] = "ok"
	}

	status := "ready"
	if !ready {
		status = "not_ready"
	}
	return &ReadyzOutput{Body: ReadyzResponse{Status: status, Components: components}}, nil
}

// GetHealth returns the health status of the service.
func (h *HealthHandler) GetHealth(_ context.Context, _ *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	return &HealthOutput{
		Body: HealthResponse{
			Status:        "healthy",
			Timestamp:     now.UTC().Format(time.RFC3339),
			Version:       h.version,
			Uptime:        uptime.Round(time.Second).String(),
			UptimeSeconds: uptime.Seconds(),
			CPU:           h.getCPUInfo(),
			Memory:        h.getMemoryInfo(),
			Wall:          h.getWallHealth(),
		},
	}, nil
}

// getCPUInfo returns CPU load information.
func (h *HealthHandler) getCPUInfo() CPUInfo {
	cores := runtime.NumCPU()
	info := CPUInfo{Cores: cores}

	loadAvg, err := load.Avg()
	if err == nil && loadAvg != nil {
		info.Load1Min = loadAvg.Load1
		info.Load5Min = loadAvg.Load5
		info.Load15Min = loadAvg.Load15
		if cores > 0 {
			info.LoadPercentage1Min = (loadAvg.Load1 / float64(cores)) * 100
		}
	}

	return info
}

// getMemoryInfo returns memory usage information.
func (h *HealthHandler) getMemoryInfo() MemoryInfo {
	info := MemoryInfo{}

	vmStat, err := mem.VirtualMemory()
	if err == nil && vmStat != nil {
		info.TotalMemoryMB = float64(vmStat.Total) / 1024 / 1024
		info.UsedMemoryMB = float64(vmStat.Used) / 1024 / 1024
		info.AvailableMemoryMB = float64(vmStat.Available) / 1024 / 1024
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil && memInfo != nil {
			info.ProcessMemoryMB = float64(memInfo.RSS) / 1024 / 1024
		}
	}

	return info
}

// getWallHealth summarises the wall for health reporting.
func (h *HealthHandler) getWallHealth() WallHealth {
	info := WallHealth{}
	if h.reg != nil {
		info.Streams = h.reg.StreamCount()
		info.LocalFiles = h.reg.LibraryCount()
	}
	if h.wall == nil {
		return info
	}

	statuses := h.wall.Status()
	info.Displays = len(statuses)
	for _, st := range statuses {
		for _, s := range st.Slots {
			if s.State.IsPlaying() {
				info.SlotsPlaying++
			}
		}
	}
	return info
}
