// # internal/core/app/health.go
package app

import (
	"context"
	"fmt"
	"time"

	"nekoscript/internal/shared/util"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health reports the state of the wired components. The status is
// "degraded" when the database is enabled but unreachable.
func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	switch {
	case s.store != nil:
		if err := s.store.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Components["store"] = "unreachable: " + err.Error()
		} else {
			status.Components["store"] = "ok"
		}
	case s.Config.DB.Enabled:
		status.Status = "degraded"
		status.Components["store"] = "missing but enabled in config"
	default:
		status.Components["store"] = "disabled"
	}

	if s.recorder != nil {
		status.Components["run_queue"] = fmt.Sprintf("ok (%d pending)", s.recorder.queue.Len())
	}
	status.Components["verifier"] = fmt.Sprintf("ok (%d grammars)", len(s.verifier.Languages()))
	status.Components["runtime"] = fmt.Sprintf("heap %dMB, %d goroutines", util.GetHeapAllocMB(), util.GoroutineCount())
	return status
}
