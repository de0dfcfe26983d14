package input

type Event int

const (
	EventPrevious Event = iota
	EventNext
	EventConfirm
)

func (e Event) String() string {
	switch e {
	case EventPrevious:
		return "Previous"
	case EventNext:
		return "Next"
	case EventConfirm:
		return "Confirm"
	default:
		return "Unknown"
	}
}

// KeyState is the state of the relevant keys for a single frame.
type KeyState struct {
	Left    bool
	Right   bool
	Confirm bool
}

// Poller turns per-frame key state into discrete events. Directions are
// level-triggered, confirm only fires on the frame it goes down.
type Poller struct {
	confirmWasDown bool
}

func (p *Poller) Poll(keys KeyState) []Event {
	var events []Event

	if keys.Left {
		events = append(events, EventPrevious)
	} else if keys.Right {
		events = append(events, EventNext)
	}

	if keys.Confirm && !p.confirmWasDown {
		events = append(events, EventConfirm)
	}

	p.confirmWasDown = keys.Confirm

	return events
}
