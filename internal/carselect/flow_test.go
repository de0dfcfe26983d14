package carselect

import (
	"errors"
	"io/ioutil"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"justapengu.in/racegame/internal/catalog"
	"justapengu.in/racegame/internal/input"
	"justapengu.in/racegame/internal/scheduler"
	"justapengu.in/racegame/internal/settings"
)

var testCars = []catalog.Car{
	{ID: 10, Name: "Red"},
	{ID: 20, Name: "Blue"},
	{ID: 30, Name: "Green"},
}

type MockDisplay struct {
	mock.Mock
}

func (m *MockDisplay) Setup(car catalog.Car) {
	m.Called(car)
}

func (m *MockDisplay) PlayEntryAnimation(fromRightSide bool) {
	m.Called(fromRightSide)
}

func (m *MockDisplay) PlayExitAnimation(towardLeftSide bool) {
	m.Called(towardLeftSide)
}

type MockSpawner struct {
	mock.Mock
}

func (m *MockSpawner) Spawn(car catalog.Car) (Display, error) {
	args := m.Called(car)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(Display), args.Error(1)
}

type fakeSettings struct {
	values  map[string]int
	saved   bool
	saveErr error
}

func (s *fakeSettings) SetInt(key string, value int) {
	if s.values == nil {
		s.values = make(map[string]int)
	}

	s.values[key] = value
}

func (s *fakeSettings) Save() error {
	if s.saveErr != nil {
		return s.saveErr
	}

	s.saved = true

	return nil
}

type fakeScenes struct {
	loaded []string
}

func (s *fakeScenes) LoadScene(name string) {
	s.loaded = append(s.loaded, name)
}

type flowRig struct {
	clock     *scheduler.ManualClock
	scheduler *scheduler.Scheduler
	spawner   *MockSpawner
	settings  *fakeSettings
	scenes    *fakeScenes
	flow      *Flow
	displays  map[int]*MockDisplay
}

func newFlowRig(t *testing.T) *flowRig {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	rig := &flowRig{
		clock:    scheduler.NewManualClock(time.Date(2020, 9, 6, 14, 0, 0, 0, time.UTC)),
		spawner:  &MockSpawner{},
		settings: &fakeSettings{},
		scenes:   &fakeScenes{},
		displays: make(map[int]*MockDisplay),
	}

	rig.scheduler = scheduler.New(rig.clock)

	for _, car := range testCars {
		display := &MockDisplay{}
		display.On("Setup", car).Return()
		display.On("PlayEntryAnimation", mock.Anything).Return()
		display.On("PlayExitAnimation", mock.Anything).Return()

		rig.displays[car.ID] = display
		rig.spawner.On("Spawn", car).Return(display, nil)
	}

	flow, err := NewFlow(Config{}, testCars, rig.scheduler, rig.spawner, rig.settings, rig.scenes, logger)
	require.NoError(t, err)

	rig.flow = flow

	return rig
}

func (r *flowRig) settle() {
	r.clock.Advance(DefaultSettleDelay)
	r.scheduler.Update()
}

func TestNewFlowRequiresCars(t *testing.T) {
	_, err := NewFlow(Config{}, nil, scheduler.New(nil), &MockSpawner{}, &fakeSettings{}, &fakeScenes{}, logrus.New())

	assert.True(t, errors.Is(err, ErrEmptyCatalog))
}

func TestStartShowsFirstCar(t *testing.T) {
	rig := newFlowRig(t)

	require.NoError(t, rig.flow.Start())

	assert.True(t, rig.flow.Busy())
	rig.displays[10].AssertCalled(t, "Setup", testCars[0])
	rig.displays[10].AssertCalled(t, "PlayEntryAnimation", true)
	rig.displays[10].AssertNotCalled(t, "PlayExitAnimation", mock.Anything)

	rig.settle()

	assert.False(t, rig.flow.Busy())
}

func TestSelectionWraps(t *testing.T) {
	rig := newFlowRig(t)
	require.NoError(t, rig.flow.Start())
	rig.settle()

	accepted, err := rig.flow.SelectPrevious()
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 2, rig.flow.Index())

	rig.settle()

	accepted, err = rig.flow.SelectNext()
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 0, rig.flow.Index())

	rig.settle()

	selected, err := rig.flow.Selected()
	require.NoError(t, err)
	assert.Equal(t, testCars[0], selected)
}

func TestAnimationOrientation(t *testing.T) {
	rig := newFlowRig(t)
	require.NoError(t, rig.flow.Start())
	rig.settle()

	_, err := rig.flow.SelectPrevious()
	require.NoError(t, err)

	// the previous car enters from the left, so the old one leaves to the right
	rig.displays[10].AssertCalled(t, "PlayExitAnimation", false)
	rig.displays[30].AssertCalled(t, "PlayEntryAnimation", false)

	rig.settle()

	_, err = rig.flow.SelectNext()
	require.NoError(t, err)

	rig.displays[30].AssertCalled(t, "PlayExitAnimation", true)
	rig.displays[10].AssertNumberOfCalls(t, "PlayEntryAnimation", 2)
}

func TestSelectionDroppedWhileBusy(t *testing.T) {
	rig := newFlowRig(t)
	require.NoError(t, rig.flow.Start())
	rig.settle()

	accepted, err := rig.flow.SelectNext()
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = rig.flow.SelectNext()
	require.NoError(t, err)
	assert.False(t, accepted, "second request inside the settle delay should be dropped")

	accepted, _ = rig.flow.SelectPrevious()
	assert.False(t, accepted)

	assert.Equal(t, 1, rig.flow.Index())
	rig.spawner.AssertNumberOfCalls(t, "Spawn", 2)

	rig.clock.Advance(DefaultSettleDelay - time.Millisecond)
	rig.scheduler.Update()
	assert.True(t, rig.flow.Busy(), "busy should hold until the settle delay has passed")

	rig.clock.Advance(time.Millisecond)
	rig.scheduler.Update()
	assert.False(t, rig.flow.Busy())

	accepted, err = rig.flow.SelectNext()
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, 2, rig.flow.Index())
}

func TestConfirmSelection(t *testing.T) {
	rig := newFlowRig(t)
	require.NoError(t, rig.flow.Start())
	rig.settle()

	_, err := rig.flow.SelectNext()
	require.NoError(t, err)

	// confirming mid-animation is allowed
	require.NoError(t, rig.flow.ConfirmSelection())

	assert.Equal(t, 20, rig.settings.values[settings.P1SelectedCarID])
	assert.Equal(t, 20, rig.settings.values[settings.P2SelectedCarID])
	assert.True(t, rig.settings.saved)
	assert.Equal(t, []string{DefaultNextScene}, rig.scenes.loaded)
}

func TestConfirmSelectionSaveError(t *testing.T) {
	rig := newFlowRig(t)
	rig.settings.saveErr = errors.New("disk full")

	err := rig.flow.ConfirmSelection()

	assert.Error(t, err)
	assert.Empty(t, rig.scenes.loaded)
}

func TestHandleEvent(t *testing.T) {
	rig := newFlowRig(t)
	require.NoError(t, rig.flow.Start())
	rig.settle()

	require.NoError(t, rig.flow.HandleEvent(input.EventNext))
	rig.settle()
	require.NoError(t, rig.flow.HandleEvent(input.EventNext))
	rig.settle()
	require.NoError(t, rig.flow.HandleEvent(input.EventPrevious))
	rig.settle()
	require.NoError(t, rig.flow.HandleEvent(input.EventConfirm))

	assert.Equal(t, 1, rig.flow.Index())
	assert.Equal(t, 20, rig.settings.values[settings.P1SelectedCarID])
}

func TestSpawnError(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	t.Run("start", func(t *testing.T) {
		spawner := &MockSpawner{}
		spawner.On("Spawn", mock.Anything).Return(nil, errors.New("no model"))

		flow, err := NewFlow(Config{}, testCars, scheduler.New(nil), spawner, &fakeSettings{}, &fakeScenes{}, logger)
		require.NoError(t, err)

		assert.Error(t, flow.Start())
		assert.False(t, flow.Busy(), "a failed spawn should not leave the flow busy")
	})

	t.Run("select next keeps the displayed car", func(t *testing.T) {
		clock := scheduler.NewManualClock(time.Date(2020, 9, 6, 14, 0, 0, 0, time.UTC))
		sched := scheduler.New(clock)

		red := &MockDisplay{}
		red.On("Setup", testCars[0]).Return()
		red.On("PlayEntryAnimation", mock.Anything).Return()
		red.On("PlayExitAnimation", mock.Anything).Return()

		spawner := &MockSpawner{}
		spawner.On("Spawn", testCars[0]).Return(red, nil)
		spawner.On("Spawn", testCars[1]).Return(nil, errors.New("no model"))

		store := &fakeSettings{}

		flow, err := NewFlow(Config{}, testCars, sched, spawner, store, &fakeScenes{}, logger)
		require.NoError(t, err)
		require.NoError(t, flow.Start())

		clock.Advance(DefaultSettleDelay)
		sched.Update()

		accepted, err := flow.SelectNext()
		assert.True(t, accepted)
		assert.Error(t, err)

		assert.Equal(t, 0, flow.Index())
		assert.False(t, flow.Busy())
		red.AssertNotCalled(t, "PlayExitAnimation", mock.Anything)

		require.NoError(t, flow.ConfirmSelection())
		assert.Equal(t, 10, store.values[settings.P1SelectedCarID])
		assert.Equal(t, 10, store.values[settings.P2SelectedCarID])
	})
}

func TestRestartHoldsBusyUntilLatestSettle(t *testing.T) {
	rig := newFlowRig(t)
	require.NoError(t, rig.flow.Start())

	rig.clock.Advance(DefaultSettleDelay / 2)
	rig.scheduler.Update()

	require.NoError(t, rig.flow.Start())

	// the first settle would have been due here
	rig.clock.Advance(DefaultSettleDelay / 2)
	rig.scheduler.Update()
	assert.True(t, rig.flow.Busy())

	rig.clock.Advance(DefaultSettleDelay / 2)
	rig.scheduler.Update()
	assert.False(t, rig.flow.Busy())
	assert.Equal(t, 0, rig.scheduler.NumPending())
}

func TestStopCancelsSettle(t *testing.T) {
	rig := newFlowRig(t)
	require.NoError(t, rig.flow.Start())

	rig.flow.Stop()

	assert.False(t, rig.flow.Busy())
	assert.Equal(t, 0, rig.scheduler.NumPending())
}
