package carselect

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"justapengu.in/racegame/internal/catalog"
	"justapengu.in/racegame/internal/input"
	"justapengu.in/racegame/internal/scheduler"
	"justapengu.in/racegame/internal/settings"
)

const (
	DefaultSettleDelay = 400 * time.Millisecond
	DefaultNextScene   = "Course1"
)

var (
	ErrEmptyCatalog    = catalog.ErrEmptyCatalog
	ErrIndexOutOfRange = errors.New("carselect: selected index out of range")
)

// Display is a spawned car model shown on the selection screen.
type Display interface {
	Setup(car catalog.Car)
	PlayEntryAnimation(fromRightSide bool)
	PlayExitAnimation(towardLeftSide bool)
}

type Spawner interface {
	Spawn(car catalog.Car) (Display, error)
}

type Settings interface {
	SetInt(key string, value int)
	Save() error
}

type SceneLoader interface {
	LoadScene(name string)
}

type Config struct {
	SettleDelay time.Duration
	NextScene   string
	// SettingKeys are the settings written with the chosen car id, one per participant.
	SettingKeys []string
}

// Flow lets the player cycle through the catalog and commit a choice. Each
// change of selection plays an exit animation for the old car and an entry
// animation for the new one, during which further selection input is dropped.
type Flow struct {
	config    Config
	cars      []catalog.Car
	scheduler *scheduler.Scheduler
	spawner   Spawner
	settings  Settings
	scenes    SceneLoader
	logger    logrus.FieldLogger

	index   int
	busy    bool
	current Display
	settle  *scheduler.Task
}

func NewFlow(config Config, cars []catalog.Car, sched *scheduler.Scheduler, spawner Spawner, store Settings, scenes SceneLoader, logger logrus.FieldLogger) (*Flow, error) {
	if len(cars) == 0 {
		return nil, ErrEmptyCatalog
	}

	if config.SettleDelay <= 0 {
		config.SettleDelay = DefaultSettleDelay
	}

	if config.NextScene == "" {
		config.NextScene = DefaultNextScene
	}

	if config.SettingKeys == nil {
		config.SettingKeys = []string{settings.P1SelectedCarID, settings.P2SelectedCarID}
	}

	c := make([]catalog.Car, len(cars))
	copy(c, cars)

	return &Flow{
		config:    config,
		cars:      c,
		scheduler: sched,
		spawner:   spawner,
		settings:  store,
		scenes:    scenes,
		logger:    logger,
	}, nil
}

// Start shows the initially selected car.
func (f *Flow) Start() error {
	return f.show(f.index, true)
}

// Stop cancels any pending settle and forgets the displayed car.
func (f *Flow) Stop() {
	f.settle.Cancel()
	f.settle = nil
	f.busy = false
	f.current = nil
}

func (f *Flow) Index() int {
	return f.index
}

func (f *Flow) Busy() bool {
	return f.busy
}

func (f *Flow) Cars() []catalog.Car {
	cars := make([]catalog.Car, len(f.cars))
	copy(cars, f.cars)

	return cars
}

func (f *Flow) Selected() (catalog.Car, error) {
	if f.index < 0 || f.index >= len(f.cars) {
		return catalog.Car{}, fmt.Errorf("%w: %d (catalog has %d cars)", ErrIndexOutOfRange, f.index, len(f.cars))
	}

	return f.cars[f.index], nil
}

// SelectPrevious moves the selection back one car, wrapping to the last. It
// reports false if the request was dropped because a change is in progress.
func (f *Flow) SelectPrevious() (bool, error) {
	if f.busy {
		return false, nil
	}

	index := f.index - 1

	if index < 0 {
		index = len(f.cars) - 1
	}

	return true, f.show(index, false)
}

// SelectNext moves the selection forward one car, wrapping to the first.
func (f *Flow) SelectNext() (bool, error) {
	if f.busy {
		return false, nil
	}

	index := f.index + 1

	if index >= len(f.cars) {
		index = 0
	}

	return true, f.show(index, true)
}

// ConfirmSelection stores the selected car for every participant and moves
// on to the next scene. It may be called while a change is still animating.
func (f *Flow) ConfirmSelection() error {
	car, err := f.Selected()

	if err != nil {
		return err
	}

	for _, key := range f.config.SettingKeys {
		f.settings.SetInt(key, car.ID)
	}

	if err := f.settings.Save(); err != nil {
		return err
	}

	f.logger.Infof("Selected %s, loading scene %s", car, f.config.NextScene)

	f.scenes.LoadScene(f.config.NextScene)

	return nil
}

func (f *Flow) HandleEvent(event input.Event) error {
	var err error

	switch event {
	case input.EventPrevious:
		_, err = f.SelectPrevious()
	case input.EventNext:
		_, err = f.SelectNext()
	case input.EventConfirm:
		err = f.ConfirmSelection()
	}

	return err
}

// show displays the car at index. The selection only moves once the new car
// has spawned, so a failed spawn leaves the current car selected and on screen.
func (f *Flow) show(index int, fromRightSide bool) error {
	if index < 0 || index >= len(f.cars) {
		return fmt.Errorf("%w: %d (catalog has %d cars)", ErrIndexOutOfRange, index, len(f.cars))
	}

	car := f.cars[index]

	display, err := f.spawner.Spawn(car)

	if err != nil {
		return fmt.Errorf("could not spawn %s: %w", car, err)
	}

	f.busy = true
	f.index = index

	// the old car leaves on the side opposite to where the new one enters
	if f.current != nil {
		f.current.PlayExitAnimation(fromRightSide)
	}

	display.Setup(car)
	display.PlayEntryAnimation(fromRightSide)
	f.current = display

	f.logger.Debugf("Showing %s", car)

	f.settle.Cancel()
	f.settle = f.scheduler.After("car select settle", f.config.SettleDelay, func() {
		f.busy = false
	})

	return nil
}
