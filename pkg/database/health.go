package database

import (
	"context"
	"time"
)

// PoolStats summarizes connection-pool pressure for the health endpoint.
type PoolStats struct {
	Open      int   `json:"open"`
	InUse     int   `json:"in_use"`
	Idle      int   `json:"idle"`
	MaxOpen   int   `json:"max_open"`
	WaitCount int64 `json:"wait_count"`
}

// HealthStatus reports database reachability, round-trip latency and pool
// pressure.
type HealthStatus struct {
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`
	Pool    PoolStats     `json:"pool"`
}

// Health pings the database and reports pool statistics. It never returns
// an error: unreachability is itself the health signal.
func (c *Client) Health(ctx context.Context) HealthStatus {
	start := time.Now()
	status := HealthStatus{}

	if err := c.db.PingContext(ctx); err != nil {
		status.Error = err.Error()
		status.Latency = time.Since(start)
		return status
	}
	status.OK = true
	status.Latency = time.Since(start)

	stats := c.db.Stats()
	status.Pool = PoolStats{
		Open:      stats.OpenConnections,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
		MaxOpen:   stats.MaxOpenConnections,
		WaitCount: stats.WaitCount,
	}
	return status
}
