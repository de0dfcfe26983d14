package race

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/hako/durafmt"

	"justapengu.in/racegame/internal/scene"
	"justapengu.in/racegame/internal/scheduler"
)

const DefaultCountdownDuration = 3 * time.Second

type Config struct {
	CountdownDuration time.Duration
	DefaultDrivers    []Driver
}

// SceneNotifier delivers scene-loaded notifications.
type SceneNotifier interface {
	Subscribe(listener scene.Listener) scene.Subscription
}

// Listener is called synchronously after every state change. The controller
// is passed so that the listener can query the new state.
type Listener func(c *Controller)

type Subscription interface {
	Unsubscribe()
}

// Controller is the single source of race progress and driver standings. It
// outlives scene transitions and is reset on every scene load. It is not safe
// for concurrent use: all calls must be made from the game loop.
type Controller struct {
	logger    Logger
	scheduler *scheduler.Scheduler
	scenes    SceneNotifier
	config    Config

	sessionID   uuid.UUID
	state       State
	startedAt   time.Time
	completedAt time.Time
	roster      Roster

	countdown         *scheduler.Task
	listeners         []*listenerSubscription
	sceneSubscription scene.Subscription
	initialized       bool
}

func NewController(config Config, sched *scheduler.Scheduler, scenes SceneNotifier, logger Logger) *Controller {
	if config.CountdownDuration <= 0 {
		config.CountdownDuration = DefaultCountdownDuration
	}

	if config.DefaultDrivers == nil {
		config.DefaultDrivers = DefaultDrivers
	}

	return &Controller{
		logger:    logger,
		scheduler: sched,
		scenes:    scenes,
		config:    config,
		state:     StateCountingDown,
	}
}

// Initialize binds the controller to scene loads and starts the first session.
func (c *Controller) Initialize() {
	if c.initialized {
		return
	}

	c.initialized = true

	if c.scenes != nil {
		c.sceneSubscription = c.scenes.Subscribe(c.onSceneLoaded)
	}

	c.ResetSession()
}

func (c *Controller) Shutdown() {
	if !c.initialized {
		return
	}

	c.initialized = false
	c.countdown.Cancel()
	c.countdown = nil

	if c.sceneSubscription != nil {
		c.sceneSubscription.Unsubscribe()
		c.sceneSubscription = nil
	}

	c.listeners = nil

	c.logger.Debugf("Race controller shut down")
}

func (c *Controller) onSceneLoaded(loaded scene.Scene) {
	c.logger.Debugf("Scene %s loaded, resetting race session", loaded.Name)

	c.ResetSession()
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) SessionID() uuid.UUID {
	return c.sessionID
}

func (c *Controller) StartedAt() time.Time {
	return c.startedAt
}

func (c *Controller) CompletedAt() time.Time {
	return c.completedAt
}

// CountdownPending reports whether the countdown to the race start is still armed.
func (c *Controller) CountdownPending() bool {
	return c.countdown.Pending()
}

func (c *Controller) ElapsedRaceTime() time.Duration {
	var elapsed time.Duration

	switch c.state {
	case StateCountingDown:
		return 0
	case StateOver:
		elapsed = c.completedAt.Sub(c.startedAt)
	default:
		elapsed = c.scheduler.Now().Sub(c.startedAt)
	}

	if elapsed < 0 {
		return 0
	}

	return elapsed
}

func (c *Controller) ResetRoster() {
	c.roster = nil
}

func (c *Controller) AddDriver(playerNumber int, name string, carID int, isAI bool) {
	c.roster = append(c.roster, &Driver{
		PlayerNumber: playerNumber,
		Name:         name,
		CarID:        carID,
		IsAI:         isAI,
	})
}

func (c *Controller) SetLastPosition(playerNumber, position int) error {
	driver, err := c.roster.find(playerNumber)

	if err != nil {
		c.logger.WithError(err).Errorf("Could not set last race position")
		return err
	}

	driver.LastRacePosition = position

	c.logger.Debugf("%s finished %s", driver.Name, humanize.Ordinal(position))

	return nil
}

func (c *Controller) AddChampionshipPoints(playerNumber, points int) error {
	if points < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativePoints, points)
	}

	driver, err := c.roster.find(playerNumber)

	if err != nil {
		c.logger.WithError(err).Errorf("Could not add championship points")
		return err
	}

	driver.ChampionshipPoints += points

	return nil
}

func (c *Controller) Driver(playerNumber int) (Driver, error) {
	driver, err := c.roster.find(playerNumber)

	if err != nil {
		return Driver{}, err
	}

	return *driver, nil
}

// Roster returns a copy of the drivers in roster order.
func (c *Controller) Roster() []Driver {
	return c.roster.Snapshot()
}

func (c *Controller) Standings() []Driver {
	drivers := c.roster.Snapshot()

	SortStandings(drivers)

	return drivers
}

func (c *Controller) StartRace() error {
	switch c.state {
	case StateRunning:
		return nil
	case StateOver:
		return fmt.Errorf("%w: cannot start a race which is already over", ErrInvalidTransition)
	}

	c.countdown.Cancel()
	c.startedAt = c.scheduler.Now()

	c.logger.Infof("Race started")
	c.changeState(StateRunning)

	return nil
}

// CompleteRace ends a running race. Completing a race that has not started is
// rejected and leaves timing untouched.
func (c *Controller) CompleteRace() error {
	switch c.state {
	case StateCountingDown:
		return ErrRaceNotRunning
	case StateOver:
		return nil
	}

	c.completedAt = c.scheduler.Now()

	c.logger.Infof("Race completed in %s", durafmt.Parse(c.ElapsedRaceTimeAt(c.completedAt)).String())
	c.changeState(StateOver)

	return nil
}

// ElapsedRaceTimeAt is the race time between the start and t, never negative.
func (c *Controller) ElapsedRaceTimeAt(t time.Time) time.Duration {
	if c.startedAt.IsZero() || t.Before(c.startedAt) {
		return 0
	}

	return t.Sub(c.startedAt)
}

// ResetSession restores the default roster, clears timing and re-arms the
// countdown. A countdown armed by an earlier session is cancelled.
func (c *Controller) ResetSession() {
	c.countdown.Cancel()

	c.startedAt = time.Time{}
	c.completedAt = time.Time{}
	c.sessionID = uuid.New()

	c.ResetRoster()

	for _, driver := range c.config.DefaultDrivers {
		c.AddDriver(driver.PlayerNumber, driver.Name, driver.CarID, driver.IsAI)
	}

	c.changeState(StateCountingDown)
	c.startCountdown()

	c.logger.Infof("Race session %s reset, counting down from %s", c.sessionID, c.config.CountdownDuration)
}

func (c *Controller) startCountdown() {
	c.logger.Debugf("Starting countdown")

	c.countdown = c.scheduler.After("race countdown", c.config.CountdownDuration, func() {
		if err := c.StartRace(); err != nil {
			c.logger.WithError(err).Error("Countdown could not start the race")
		}
	})
}

func (c *Controller) changeState(newState State) {
	if c.state == newState {
		return
	}

	c.state = newState
	c.logger.Infof("Race state changed to: %s", c.state)

	c.notify()
}

type listenerSubscription struct {
	controller *Controller
	listener   Listener
}

func (s *listenerSubscription) Unsubscribe() {
	c := s.controller

	for i, sub := range c.listeners {
		if sub == s {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

func (c *Controller) Subscribe(listener Listener) Subscription {
	sub := &listenerSubscription{controller: c, listener: listener}
	c.listeners = append(c.listeners, sub)

	return sub
}

func (c *Controller) notify() {
	listeners := make([]*listenerSubscription, len(c.listeners))
	copy(listeners, c.listeners)

	for _, sub := range listeners {
		sub.listener(c)
	}
}
