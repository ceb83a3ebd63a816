package audiocore

import (
	"log/slog"
	"sync"
	"time"
)

// waitWithDeadline waits for wg with a bounded deadline; if the deadline
// passes first it logs the worker as leaked rather than blocking stop()
// indefinitely (spec.md §5: "must exit within a bounded join window
// (default 1 s) or are reported as leaked (resources still released)").
func waitWithDeadline(wg *sync.WaitGroup, deadline time.Duration, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(deadline):
		if logger != nil {
			logger.Warn("worker did not exit within join deadline, detaching", "deadline", deadline)
		}
	}
}
