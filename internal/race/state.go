package race

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.FieldLogger

type State uint8

const (
	StateCountingDown State = iota
	StateRunning
	StateOver
)

func (s State) String() string {
	switch s {
	case StateCountingDown:
		return "CountingDown"
	case StateRunning:
		return "Running"
	case StateOver:
		return "Over"
	default:
		return "Unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, state := range []State{StateCountingDown, StateRunning, StateOver} {
		if state.String() == string(text) {
			*s = state
			return nil
		}
	}

	return fmt.Errorf("race: unknown state %q", text)
}

var (
	ErrDriverNotFound    = errors.New("race: driver not found")
	ErrRaceNotRunning    = errors.New("race: race is not running")
	ErrInvalidTransition = errors.New("race: invalid state transition")
	ErrNegativePoints    = errors.New("race: championship points can only be added")
)
