package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultFrameRate = 60

// Loop drives a frame function and the scheduler from a ticker, the way the
// server's session loop polls its state every tick.
type Loop struct {
	scheduler *Scheduler
	frameRate int
	logger    logrus.FieldLogger
}

func NewLoop(scheduler *Scheduler, frameRate int, logger logrus.FieldLogger) *Loop {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}

	return &Loop{
		scheduler: scheduler,
		frameRate: frameRate,
		logger:    logger,
	}
}

func (l *Loop) FrameInterval() time.Duration {
	return time.Second / time.Duration(l.frameRate)
}

func (l *Loop) Run(ctx context.Context, frameFn func()) error {
	tick := time.NewTicker(l.FrameInterval())
	defer tick.Stop()

	l.logger.Debugf("Starting frame loop at %d frames per second", l.frameRate)

	for {
		select {
		case <-ctx.Done():
			l.logger.Debugf("Stopping frame loop")
			return nil
		case <-tick.C:
			if frameFn != nil {
				frameFn()
			}

			l.scheduler.Update()
		}
	}
}
