package server

import (
	"log"
	"time"
)

const defaultSweepInterval = 30 * time.Second

// Sweeper periodically closes sessions that are dead or no longer
// authorized, such as members banned while connected but idle.
type Sweeper struct {
	registry *ConnectionRegistry
	log      *log.Logger
	interval time.Duration
	stop     chan struct{}
}

func NewSweeper(registry *ConnectionRegistry, logger *log.Logger) *Sweeper {
	return &Sweeper{
		registry: registry,
		log:      logger,
		interval: defaultSweepInterval,
		stop:     make(chan struct{}),
	}
}

func (sw *Sweeper) Run() {
	go func() {
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sw.sweep()
			case <-sw.stop:
				return
			}
		}
	}()
}

func (sw *Sweeper) Stop() {
	close(sw.stop)
}

func (sw *Sweeper) sweep() {
	for _, roomId := range sw.registry.RoomIds() {
		for _, s := range sw.registry.Sessions(roomId) {
			if !s.Alive() {
				sw.log.Printf("sweeping session for user %d in room %s", s.user.Id, roomId)
				s.Close(ClosePolicyViolation, "session no longer authorized")
			}
		}
	}
}
