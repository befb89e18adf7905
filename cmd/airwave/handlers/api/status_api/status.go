package status_api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/starfederation/datastar-go/datastar"
	"thirdcoast.systems/airwave/cmd/airwave/handlers/common"
	"thirdcoast.systems/airwave/cmd/airwave/internal/status"
	"thirdcoast.systems/airwave/cmd/airwave/templates"
	"thirdcoast.systems/airwave/internal/channel"
)

// StatsSource reports live relay occupancy.
type StatsSource interface {
	Stats() channel.Stats
}

// HandleStatus returns the current relay occupancy as JSON.
func HandleStatus(src StatsSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, status.FromStats(src.Stats(), time.Now().UTC()))
	}
}

// HandleStatusStream patches the relay-status element over SSE whenever
// occupancy changes. Membership changes arrive through the hub; frame and
// byte counters are picked up every refresh interval. Streams end when the
// client leaves or ctx, the server lifetime, is cancelled.
func HandleStatusStream(ctx context.Context, src StatsSource, hub *status.Hub, refresh time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !hub.AcquireStream() {
			return common.ErrTooManyRequests("too many open status streams")
		}
		defer hub.ReleaseStream()

		updates, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		common.SetSSEHeaders(c)
		sse := datastar.NewSSE(c.Response(), c.Request())

		last := status.FromStats(src.Stats(), time.Now().UTC())
		if err := patchStatus(sse, last); err != nil {
			return nil
		}

		ticker := time.NewTicker(refresh)
		defer ticker.Stop()

		for {
			var next status.Snapshot
			select {
			case <-ctx.Done():
				return nil
			case <-c.Request().Context().Done():
				return nil
			case s, ok := <-updates:
				if !ok {
					return nil
				}
				next = s
			case <-ticker.C:
				next = status.FromStats(src.Stats(), time.Now().UTC())
			}

			if sameOccupancy(last, next) {
				continue
			}
			last = next
			if err := patchStatus(sse, next); err != nil {
				return nil
			}
		}
	}
}

func patchStatus(sse *datastar.ServerSentEventGenerator, s status.Snapshot) error {
	return sse.PatchElementTempl(
		templates.RelayStatus(templates.Known(s)),
		datastar.WithSelectorID("relay-status"),
		datastar.WithModeReplace(),
	)
}

func sameOccupancy(a, b status.Snapshot) bool {
	a.UpdatedAt = b.UpdatedAt
	return a == b
}
