package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/segyhp/loanbook/pkg/response"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

const (
	checkOK       = "ok"
	checkDisabled = "disabled"
	checkFailed   = "error"
)

type dependency struct {
	name string
	ping func(ctx context.Context) error
}

type HealthHandler struct {
	deps    []dependency
	timeout time.Duration
	started time.Time
}

// NewHealthHandler builds the probes. db and redis may be nil when the
// server runs without them; they are then reported as "disabled".
func NewHealthHandler(db Pinger, rdb redis.UniversalClient, timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	h := &HealthHandler{timeout: timeout, started: time.Now()}
	h.deps = append(h.deps, dependency{name: "database"}, dependency{name: "redis"})
	if db != nil {
		h.deps[0].ping = db.PingContext
	}
	if rdb != nil {
		h.deps[1].ping = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return h
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) status() HealthStatus {
	return HealthStatus{
		Status:    checkOK,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Truncate(time.Second).String(),
	}
}

// Health is the liveness probe; it never touches dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.status())
}

// Ready pings every configured dependency within the health timeout and
// answers 503 if any of them fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.status()
	status.Checks = make(map[string]string, len(h.deps))
	for _, dep := range h.deps {
		if dep.ping == nil {
			status.Checks[dep.name] = checkDisabled
			continue
		}
		if err := dep.ping(ctx); err != nil {
			status.Status = checkFailed
			status.Checks[dep.name] = "failed: " + err.Error()
			continue
		}
		status.Checks[dep.name] = checkOK
	}

	if status.Status != checkOK {
		response.JSON(w, http.StatusServiceUnavailable, status)
		return
	}
	response.Success(w, status)
}
