package syncqueue

import (
	"context"
	"time"
)

// Watcher polls a Connectivity provider and forwards online/offline
// transitions to the queue service.
type Watcher struct {
	service  *Service
	net      Connectivity
	clock    Clock
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a connectivity watcher. A zero interval defaults to 30s.
func NewWatcher(service *Service, net Connectivity, clock Clock, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Watcher{
		service:  service,
		net:      net,
		clock:    clock,
		interval: interval,
	}
}

// Start begins polling in the background.
func (w *Watcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		for {
			w.clock.Sleep(ctx, w.interval)
			if ctx.Err() != nil {
				return
			}
			w.service.SetOnline(w.net.Online())
		}
	}()
}

// Stop halts polling and waits for the poll loop to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}
