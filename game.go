package racegame

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"justapengu.in/racegame/internal/carselect"
	"justapengu.in/racegame/internal/catalog"
	"justapengu.in/racegame/internal/input"
	"justapengu.in/racegame/internal/race"
	"justapengu.in/racegame/internal/racecontrol"
	"justapengu.in/racegame/internal/scene"
	"justapengu.in/racegame/internal/scheduler"
)

type Logger = logrus.FieldLogger

// Settings is the persisted key/value store the game writes car selections to.
type Settings interface {
	carselect.Settings
	Int(key string) (int, bool, error)
}

// KeySource supplies the key state for each frame.
type KeySource interface {
	Next() input.KeyState
}

// Game owns every long-lived component and runs them on a single frame loop.
type Game struct {
	config    *Config
	logger    Logger
	scheduler *scheduler.Scheduler
	scenes    *scene.Manager
	settings  Settings
	spawner   carselect.Spawner
	keys      KeySource
	cars      []catalog.Car

	controller  *race.Controller
	raceControl *racecontrol.RaceControl
	registry    *prometheus.Registry

	flow   *carselect.Flow
	poller input.Poller

	subscriptions []interface{ Unsubscribe() }
	initialized   bool
}

func NewGame(config *Config, sched *scheduler.Scheduler, cars []catalog.Car, store Settings, spawner carselect.Spawner, keys KeySource, logger Logger) (*Game, error) {
	if err := catalog.Validate(cars); err != nil {
		return nil, err
	}

	scenes := scene.NewManager(logger.WithField("component", "scene"))
	controller := race.NewController(config.Race.ToControllerConfig(), sched, scenes, logger.WithField("component", "race"))
	registry := prometheus.NewRegistry()

	raceControl, err := racecontrol.NewRaceControl(controller, sched, registry, logger.WithField("component", "race-control"))

	if err != nil {
		return nil, err
	}

	return &Game{
		config:      config,
		logger:      logger,
		scheduler:   sched,
		scenes:      scenes,
		settings:    store,
		spawner:     spawner,
		keys:        keys,
		cars:        cars,
		controller:  controller,
		raceControl: raceControl,
		registry:    registry,
	}, nil
}

func (g *Game) Controller() *race.Controller {
	return g.controller
}

func (g *Game) Scenes() *scene.Manager {
	return g.scenes
}

// Flow is the car selection flow, or nil when the car selection scene is not loaded.
func (g *Game) Flow() *carselect.Flow {
	return g.flow
}

func (g *Game) Initialize() {
	if g.initialized {
		return
	}

	g.initialized = true

	g.subscriptions = append(g.subscriptions, g.scenes.Subscribe(g.onSceneLoaded))

	if g.config.Game.SaveRaceResults {
		resultsDirectory := filepath.Join(g.config.Game.DataDirectory, g.config.Game.ResultsBaseFolder)
		writer := race.NewResultsWriter(resultsDirectory, g.logger.WithField("component", "results"))

		g.subscriptions = append(g.subscriptions, g.controller.Subscribe(writer.OnStateChange))
	}

	g.controller.Initialize()
	g.raceControl.Attach()

	g.scenes.LoadScene(g.config.Game.FirstScene)
}

func (g *Game) Shutdown() {
	if !g.initialized {
		return
	}

	g.initialized = false

	if g.flow != nil {
		g.flow.Stop()
		g.flow = nil
	}

	for _, sub := range g.subscriptions {
		sub.Unsubscribe()
	}

	g.subscriptions = nil

	g.raceControl.Detach()
	g.controller.Shutdown()

	g.logger.Infof("Game shut down")
}

// Frame handles one frame of input and applies pending scene loads. Deferred
// tasks are run separately by the scheduler.
func (g *Game) Frame() {
	for _, event := range g.poller.Poll(g.keys.Next()) {
		g.handleEvent(event)
	}

	g.scenes.Update()
	g.raceControl.Refresh()
}

func (g *Game) handleEvent(event input.Event) {
	switch g.scenes.Current().Name {
	case g.config.Game.SelectCarScene:
		if g.flow == nil {
			return
		}

		if err := g.flow.HandleEvent(event); err != nil {
			g.logger.WithError(err).Errorf("Could not handle %s on car selection", event)
		}
	case g.config.Game.CourseScene:
		if event != input.EventConfirm {
			return
		}

		switch g.controller.State() {
		case race.StateRunning:
			if err := g.controller.CompleteRace(); err != nil {
				g.logger.WithError(err).Error("Could not complete race")
			}
		case race.StateOver:
			g.scenes.LoadScene(g.config.Game.SelectCarScene)
		}
	}
}

func (g *Game) onSceneLoaded(loaded scene.Scene) {
	if g.flow != nil {
		g.flow.Stop()
		g.flow = nil
	}

	switch loaded.Name {
	case g.config.Game.SelectCarScene:
		flow, err := carselect.NewFlow(
			g.config.CarSelect.ToFlowConfig(g.config.Game.CourseScene),
			g.cars,
			g.scheduler,
			g.spawner,
			g.settings,
			g.scenes,
			g.logger.WithField("component", "car-select"),
		)

		if err != nil {
			g.logger.WithError(err).Error("Could not create car selection")
			return
		}

		if err := flow.Start(); err != nil {
			g.logger.WithError(err).Error("Could not start car selection")
			return
		}

		g.flow = flow
	case g.config.Game.CourseScene:
		g.logSelectedCars()
	}
}

func (g *Game) logSelectedCars() {
	for _, key := range g.config.CarSelect.SettingKeys {
		carID, ok, err := g.settings.Int(key)

		if err != nil {
			g.logger.WithError(err).Warnf("Could not read %s", key)
			continue
		}

		if !ok {
			continue
		}

		for _, car := range g.cars {
			if car.ID == carID {
				g.logger.Infof("%s: %s", key, car)
			}
		}
	}
}

// Run drives the game loop, and the race control HTTP server if enabled, until ctx is cancelled.
func (g *Game) Run(ctx context.Context) error {
	g.Initialize()
	defer g.Shutdown()

	eg, ctx := errgroup.WithContext(ctx)

	loop := scheduler.NewLoop(g.scheduler, g.config.Game.FrameRate, g.logger)

	eg.Go(func() error {
		return loop.Run(ctx, g.Frame)
	})

	if g.config.HTTP.Enabled {
		eg.Go(func() error {
			return racecontrol.Serve(ctx, g.config.HTTP.Address, g.raceControl.Router(g.registry), g.logger)
		})
	}

	return eg.Wait()
}
