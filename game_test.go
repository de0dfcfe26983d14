package racegame

import (
	"io/ioutil"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"justapengu.in/racegame/internal/catalog"
	"justapengu.in/racegame/internal/input"
	"justapengu.in/racegame/internal/race"
	"justapengu.in/racegame/internal/scheduler"
	"justapengu.in/racegame/internal/settings"
)

type queuedKeys struct {
	frames []input.KeyState
}

func (q *queuedKeys) push(frames ...input.KeyState) {
	q.frames = append(q.frames, frames...)
}

func (q *queuedKeys) Next() input.KeyState {
	if len(q.frames) == 0 {
		return input.KeyState{}
	}

	next := q.frames[0]
	q.frames = q.frames[1:]

	return next
}

type memorySettings struct {
	pending map[string]int
	saved   map[string]int
}

func (s *memorySettings) SetInt(key string, value int) {
	if s.pending == nil {
		s.pending = make(map[string]int)
	}

	s.pending[key] = value
}

func (s *memorySettings) Save() error {
	if s.saved == nil {
		s.saved = make(map[string]int)
	}

	for k, v := range s.pending {
		s.saved[k] = v
	}

	s.pending = nil

	return nil
}

func (s *memorySettings) Int(key string) (int, bool, error) {
	v, ok := s.saved[key]

	return v, ok, nil
}

type gameRig struct {
	game     *Game
	clock    *scheduler.ManualClock
	sched    *scheduler.Scheduler
	keys     *queuedKeys
	settings *memorySettings
}

func newGameRig(t *testing.T) *gameRig {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	config := ConfigDefault()
	config.HTTP.Enabled = false
	config.Game.SaveRaceResults = false

	cars := []catalog.Car{
		{ID: 0, Name: "Red", Model: "red"},
		{ID: 1, Name: "Blue", Model: "blue"},
		{ID: 2, Name: "Green", Model: "green"},
	}

	clock := scheduler.NewManualClock(time.Date(2020, 9, 6, 14, 0, 0, 0, time.UTC))
	sched := scheduler.New(clock)
	keys := &queuedKeys{}
	store := &memorySettings{}

	game, err := NewGame(config, sched, cars, store, NewLogSpawner(logger), keys, logger)

	if err != nil {
		t.Fatal(err)
	}

	return &gameRig{
		game:     game,
		clock:    clock,
		sched:    sched,
		keys:     keys,
		settings: store,
	}
}

func (r *gameRig) frame(keys ...input.KeyState) {
	r.keys.push(keys...)

	for i := 0; i < len(keys) || i == 0; i++ {
		r.game.Frame()
		r.sched.Update()
	}
}

func (r *gameRig) advance(d time.Duration) {
	r.clock.Advance(d)
	r.sched.Update()
}

func TestNewGameRequiresCars(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	sched := scheduler.New(scheduler.NewManualClock(time.Now()))

	_, err := NewGame(ConfigDefault(), sched, nil, &memorySettings{}, NewLogSpawner(logger), &queuedKeys{}, logger)

	if err == nil {
		t.Error("expected an error for an empty catalog")
	}
}

func TestGameSelectAndRace(t *testing.T) {
	rig := newGameRig(t)
	rig.game.Initialize()
	defer rig.game.Shutdown()

	rig.frame()

	if rig.game.Scenes().Current().Name != SelectCarScene {
		t.Fatalf("expected scene %s, got %s", SelectCarScene, rig.game.Scenes().Current().Name)
	}

	flow := rig.game.Flow()

	if flow == nil {
		t.Fatal("expected car selection to be running")
	}

	// the first car is still driving in
	rig.advance(time.Second)
	rig.frame(input.KeyState{Right: true}, input.KeyState{})

	if flow.Index() != 1 {
		t.Errorf("expected index 1, got %d", flow.Index())
	}

	rig.advance(time.Second)

	if flow.Busy() {
		t.Error("expected car selection to have settled")
	}

	rig.frame(input.KeyState{Confirm: true}, input.KeyState{})

	if rig.game.Scenes().Current().Name != CourseScene {
		t.Fatalf("expected scene %s, got %s", CourseScene, rig.game.Scenes().Current().Name)
	}

	if rig.game.Flow() != nil {
		t.Error("expected car selection to be stopped")
	}

	for _, key := range []string{settings.P1SelectedCarID, settings.P2SelectedCarID} {
		if id, ok, _ := rig.settings.Int(key); !ok || id != 1 {
			t.Errorf("expected %s to be 1, got %d (set: %t)", key, id, ok)
		}
	}

	controller := rig.game.Controller()

	if controller.State() != race.StateCountingDown {
		t.Fatalf("expected CountingDown, got %s", controller.State())
	}

	rig.advance(race.DefaultCountdownDuration)

	if controller.State() != race.StateRunning {
		t.Fatalf("expected Running, got %s", controller.State())
	}

	rig.advance(42 * time.Second)
	rig.frame(input.KeyState{Confirm: true}, input.KeyState{})

	if controller.State() != race.StateOver {
		t.Fatalf("expected Over, got %s", controller.State())
	}

	if controller.ElapsedRaceTime() != 42*time.Second {
		t.Errorf("expected elapsed time 42s, got %s", controller.ElapsedRaceTime())
	}

	rig.frame(input.KeyState{Confirm: true}, input.KeyState{})

	if rig.game.Scenes().Current().Name != SelectCarScene {
		t.Errorf("expected scene %s, got %s", SelectCarScene, rig.game.Scenes().Current().Name)
	}

	if rig.game.Flow() == nil {
		t.Error("expected car selection to be running again")
	}
}

func TestConfirmIgnoredDuringCountdown(t *testing.T) {
	rig := newGameRig(t)
	rig.game.Initialize()
	defer rig.game.Shutdown()

	rig.frame()
	rig.frame(input.KeyState{Confirm: true}, input.KeyState{})
	rig.frame(input.KeyState{Confirm: true}, input.KeyState{})

	controller := rig.game.Controller()

	if controller.State() != race.StateCountingDown {
		t.Errorf("expected CountingDown, got %s", controller.State())
	}

	if rig.game.Scenes().Current().Name != CourseScene {
		t.Errorf("expected scene %s, got %s", CourseScene, rig.game.Scenes().Current().Name)
	}
}

func TestHeldConfirmFiresOnce(t *testing.T) {
	rig := newGameRig(t)
	rig.game.Initialize()
	defer rig.game.Shutdown()

	rig.frame()
	rig.frame(input.KeyState{Confirm: true})
	rig.advance(race.DefaultCountdownDuration)

	// still held: must not complete the race
	rig.frame(input.KeyState{Confirm: true})

	if state := rig.game.Controller().State(); state != race.StateRunning {
		t.Errorf("expected Running, got %s", state)
	}
}
