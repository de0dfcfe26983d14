package scene

import (
	"github.com/sirupsen/logrus"
)

type Scene struct {
	Name string `json:"name"`
	// Index counts loads since the manager was created, starting at 1.
	Index int `json:"index"`
}

type Listener func(loaded Scene)

// Manager applies scene load requests on the next Update and notifies
// listeners synchronously once the new scene is current.
type Manager struct {
	logger logrus.FieldLogger

	current   Scene
	pending   string
	loads     int
	listeners []*subscription
}

func NewManager(logger logrus.FieldLogger) *Manager {
	return &Manager{logger: logger}
}

type subscription struct {
	manager  *Manager
	listener Listener
}

type Subscription interface {
	Unsubscribe()
}

func (m *Manager) Subscribe(listener Listener) Subscription {
	sub := &subscription{manager: m, listener: listener}
	m.listeners = append(m.listeners, sub)

	return sub
}

func (s *subscription) Unsubscribe() {
	m := s.manager

	for i, sub := range m.listeners {
		if sub == s {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// LoadScene requests a transition. Multiple requests before the next Update collapse into the last one.
func (m *Manager) LoadScene(name string) {
	m.logger.Debugf("Scene load requested: %s", name)
	m.pending = name
}

func (m *Manager) Current() Scene {
	return m.current
}

func (m *Manager) Update() {
	if m.pending == "" {
		return
	}

	m.loads++
	m.current = Scene{Name: m.pending, Index: m.loads}
	m.pending = ""

	m.logger.Infof("Loaded scene: %s", m.current.Name)

	listeners := make([]*subscription, len(m.listeners))
	copy(listeners, m.listeners)

	for _, sub := range listeners {
		sub.listener(m.current)
	}
}
