package v1

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
)

// MetricsOverviewResponse represents the overview response of system metrics.
// Counters cover the lifetime of the process.
type MetricsOverviewResponse struct {
	TotalRequests int64           `json:"total_requests"`
	SuccessRate   float64         `json:"success_rate"`
	AvgLatencyMs  int64           `json:"avg_latency_ms"`
	P50LatencyMs  int64           `json:"p50_latency_ms"`
	P95LatencyMs  int64           `json:"p95_latency_ms"`
	ErrorCount    int64           `json:"error_count"`
	Routes        []RouteOverview `json:"routes"`
}

// RouteOverview is the per-route slice of the overview.
type RouteOverview struct {
	Route        string           `json:"route"`
	Requests     int64            `json:"requests"`
	Errors       int64            `json:"errors"`
	AvgLatencyMs int64            `json:"avg_latency_ms"`
	ErrorCodes   map[string]int64 `json:"error_codes,omitempty"`
}

// GetMetricsOverview returns the system metrics overview.
// GET /api/system/metrics
func (s *APIV1Service) GetMetricsOverview(c echo.Context) error {
	snap := s.Metrics.Snapshot()

	resp := MetricsOverviewResponse{
		TotalRequests: snap.RequestTotal,
		SuccessRate:   snap.SuccessRate(),
		P50LatencyMs:  snap.P50.Milliseconds(),
		P95LatencyMs:  snap.P95.Milliseconds(),
		ErrorCount:    snap.RequestFailed,
		Routes:        make([]RouteOverview, 0, len(snap.Routes)),
	}

	var totalMs, count int64
	for route, rm := range snap.Routes {
		totalMs += rm.TotalDuration
		count += rm.RequestCount
		ro := RouteOverview{
			Route:        route,
			Requests:     rm.RequestCount,
			Errors:       rm.ErrorCount,
			AvgLatencyMs: rm.AverageDuration,
		}
		if len(rm.ErrorCodes) > 0 {
			ro.ErrorCodes = rm.ErrorCodes
		}
		resp.Routes = append(resp.Routes, ro)
	}
	if count > 0 {
		resp.AvgLatencyMs = totalMs / count
	}
	sort.Slice(resp.Routes, func(i, j int) bool { return resp.Routes[i].Route < resp.Routes[j].Route })

	return c.JSON(http.StatusOK, resp)
}
