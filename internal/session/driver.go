package session

import (
	"sync"
	"time"
)

// Driver pumps real-clock ticks into a machine. Tests bypass it and call
// HandleTick directly, which keeps all timer logic clock-free.
type Driver struct {
	machine  *Machine
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// StartDriver begins ticking the machine at its own interval in a goroutine.
// The driver exits on its own once the session reaches a terminal state;
// Stop tears it down early (navigation away, cancel) so no callback can fire
// after the owning session is gone.
func StartDriver(m *Machine) *Driver {
	d := &Driver{
		machine: m,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(m.TickInterval())
		defer ticker.Stop()

		for {
			select {
			case <-d.stop:
				return
			case now := <-ticker.C:
				m.HandleTick(now)
				if m.Terminal() {
					return
				}
			}
		}
	}()

	return d
}

// Stop halts the driver and waits for its goroutine to exit. Idempotent.
func (d *Driver) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}

// Wait blocks until the driver goroutine exits.
func (d *Driver) Wait() {
	<-d.done
}
