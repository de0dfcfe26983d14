package racecontrol

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"justapengu.in/racegame/internal/race"
	"justapengu.in/racegame/internal/scheduler"
)

// RaceControl mirrors the race controller for readers outside the game loop.
// The controller itself is only touched on the loop; HTTP handlers read the
// latest snapshot and post any changes back to the loop through the scheduler.
type RaceControl struct {
	controller *race.Controller
	scheduler  *scheduler.Scheduler
	logger     logrus.FieldLogger
	metrics    *metrics

	mutex sync.RWMutex
	info  race.RaceInfo

	hub *hub

	subscription race.Subscription
}

func NewRaceControl(controller *race.Controller, sched *scheduler.Scheduler, registry *prometheus.Registry, logger logrus.FieldLogger) (*RaceControl, error) {
	m, err := newMetrics(registry)

	if err != nil {
		return nil, err
	}

	return &RaceControl{
		controller: controller,
		scheduler:  sched,
		logger:     logger,
		metrics:    m,
		hub:        newHub(logger),
	}, nil
}

// Attach subscribes to controller state changes. Must be called on the game loop.
func (rc *RaceControl) Attach() {
	if rc.subscription != nil {
		return
	}

	rc.subscription = rc.controller.Subscribe(rc.OnStateChange)
	rc.Refresh()
	rc.metrics.state.Set(float64(rc.controller.State()))
}

func (rc *RaceControl) Detach() {
	if rc.subscription != nil {
		rc.subscription.Unsubscribe()
		rc.subscription = nil
	}

	rc.hub.closeAll()
}

func (rc *RaceControl) OnStateChange(c *race.Controller) {
	info := rc.Refresh()

	rc.metrics.state.Set(float64(info.State))
	rc.metrics.transitions.WithLabelValues(info.State.String()).Inc()

	if info.State == race.StateOver {
		rc.metrics.raceDuration.Observe(info.ElapsedTime.Seconds())
	}

	rc.hub.broadcast(info)
}

// Refresh takes a new snapshot of the controller. Must be called on the game loop.
func (rc *RaceControl) Refresh() race.RaceInfo {
	info := rc.controller.RaceInfo()

	rc.mutex.Lock()
	rc.info = info
	rc.mutex.Unlock()

	return info
}

func (rc *RaceControl) RaceInfo() race.RaceInfo {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	return rc.info
}

const commandTimeout = 5 * time.Second

// do runs fn on the game loop and waits for its result.
func (rc *RaceControl) do(ctx context.Context, fn func(c *race.Controller) error) error {
	ctx, cfn := context.WithTimeout(ctx, commandTimeout)
	defer cfn()

	errCh := make(chan error, 1)

	rc.scheduler.Post(func() {
		err := fn(rc.controller)
		rc.Refresh()
		errCh <- err
	})

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
