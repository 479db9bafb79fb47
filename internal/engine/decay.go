package engine

import (
	"time"
)

// StartDayTimer advances the simulated day every interval until Stop.
// Each day decays every memory and every third day consolidates them.
func (e *Engine) StartDayTimer(interval time.Duration) {
	if interval <= 0 {
		return
	}
	e.Log.Info("day timer started", "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := e.AdvanceDay(); err != nil {
					e.Log.Error("day advance save failed", "err", err)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}
