package timer

import (
	"sync"
	"time"
)

// Driver runs fn on a fixed period until stopped. The countdown itself is
// computed from timestamps by the callee, so the driver makes no promise
// about tick spacing beyond "roughly interval".
type Driver struct {
	stop chan struct{}
	once sync.Once
	done chan struct{}
}

func Start(interval time.Duration, fn func(now time.Time)) *Driver {
	d := &Driver{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-d.stop:
				return
			case now := <-ticker.C:
				fn(now)
			}
		}
	}()
	return d
}

// Stop halts the driver and waits for the loop to exit. Safe to call more
// than once.
func (d *Driver) Stop() {
	d.once.Do(func() { close(d.stop) })
	<-d.done
}
