package input

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var commandKeys = map[string]KeyState{
	"left":     {Left: true},
	"l":        {Left: true},
	"a":        {Left: true},
	"prev":     {Left: true},
	"right":    {Right: true},
	"r":        {Right: true},
	"d":        {Right: true},
	"next":     {Right: true},
	"confirm":  {Confirm: true},
	"c":        {Confirm: true},
	"space":    {Confirm: true},
	"enter":    {Confirm: true},
	"select":   {Confirm: true},
	"continue": {Confirm: true},
}

// ParseCommand maps a text command to the key state it presses.
func ParseCommand(command string) (KeyState, bool) {
	keys, ok := commandKeys[strings.ToLower(strings.TrimSpace(command))]

	return keys, ok
}

// Reader converts text commands into key frames. Each command becomes a
// press frame followed by a release frame, so repeated confirms are seen as
// separate edges by a Poller.
type Reader struct {
	r      io.Reader
	frames chan KeyState
	logger logrus.FieldLogger
}

func NewReader(r io.Reader, logger logrus.FieldLogger) *Reader {
	return &Reader{
		r:      r,
		frames: make(chan KeyState, 16),
		logger: logger,
	}
}

func (r *Reader) Frames() <-chan KeyState {
	return r.frames
}

// Next returns the next pending key frame, or a frame with nothing pressed.
func (r *Reader) Next() KeyState {
	select {
	case keys := <-r.frames:
		return keys
	default:
		return KeyState{}
	}
}

func (r *Reader) Run(ctx context.Context) error {
	defer close(r.frames)

	scanner := bufio.NewScanner(r.r)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			continue
		}

		keys, ok := ParseCommand(line)

		if !ok {
			r.logger.Warnf("Unknown input command: %q", line)
			continue
		}

		for _, frame := range []KeyState{keys, {}} {
			select {
			case <-ctx.Done():
				return nil
			case r.frames <- frame:
			}
		}
	}

	return scanner.Err()
}
