package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct {
	client redis.UniversalClient
}

func (r redisPinger) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type health struct {
	checks  map[string]pinger
	timeout time.Duration
}

func newHealth(checks map[string]pinger) *health {
	return &health{checks: checks, timeout: 2 * time.Second}
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`

	code int
}

func (h healthResponse) Message() string { return "health check" }

func (h healthResponse) StatusCode() int { return h.code }

// Check pings every dependency. Any failure turns the response into a 503.
func (h *health) Check(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Components: make(map[string]string, len(names)), code: http.StatusOK}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "component", name, "error", err)
			resp.Components[name] = "down"
			resp.Status = "degraded"
			resp.code = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "up"
	}

	return resp, nil
}
