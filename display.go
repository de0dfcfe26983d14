package racegame

import (
	"github.com/sirupsen/logrus"

	"justapengu.in/racegame/internal/carselect"
	"justapengu.in/racegame/internal/catalog"
)

// LogSpawner shows cars by logging what a renderer would animate.
type LogSpawner struct {
	logger logrus.FieldLogger
}

func NewLogSpawner(logger logrus.FieldLogger) *LogSpawner {
	return &LogSpawner{logger: logger}
}

func (s *LogSpawner) Spawn(car catalog.Car) (carselect.Display, error) {
	return &logDisplay{logger: s.logger.WithField("model", car.Model)}, nil
}

type logDisplay struct {
	logger logrus.FieldLogger
	car    catalog.Car
}

func (d *logDisplay) Setup(car catalog.Car) {
	d.car = car
	d.logger = d.logger.WithField("car", car.Name)
}

func side(right bool) string {
	if right {
		return "right"
	}

	return "left"
}

func (d *logDisplay) PlayEntryAnimation(fromRightSide bool) {
	d.logger.Infof("%s drives in from the %s", d.car, side(fromRightSide))
}

func (d *logDisplay) PlayExitAnimation(towardLeftSide bool) {
	d.logger.Infof("%s drives out to the %s", d.car, side(!towardLeftSide))
}
