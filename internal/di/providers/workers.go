package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"
)

const cleanupInterval = time.Hour

// SessionCleanupJob periodically removes expired sessions and compacts
// session state.
type SessionCleanupJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *SessionCleanupJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideSessionCleanupJob provides the periodic session cleanup job.
func ProvideSessionCleanupJob(i do.Injector) (*SessionCleanupJob, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	stateHandle := do.MustInvoke[*SessionStateHandle](i)
	log := do.MustInvoke[*LoggerHandle](i)

	ctx, cancel := context.WithCancel(context.Background())

	run := func() {
		if count, err := storeHandle.DeleteExpiredSessions(ctx); err != nil {
			log.Warn("Session cleanup failed", "error", err)
		} else if count > 0 {
			log.Info("Session cleanup completed", "deleted", count)
		}
		if n := stateHandle.CollectGarbage(); n > 0 {
			log.Debug("Session state compacted", "files", n)
		}
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		run()
		for {
			select {
			case <-ticker.C:
				run()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Session cleanup job started", "interval", cleanupInterval)

	return &SessionCleanupJob{cancel: cancel}, nil
}
