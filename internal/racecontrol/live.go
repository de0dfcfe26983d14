package racecontrol

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"justapengu.in/racegame/internal/race"
)

const (
	liveWriteTimeout = 10 * time.Second
	liveBufferSize   = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type liveClient struct {
	conn    *websocket.Conn
	receive chan race.RaceInfo
	once    sync.Once
}

func (c *liveClient) close() {
	c.once.Do(func() {
		close(c.receive)
	})
}

type hub struct {
	logger logrus.FieldLogger

	mutex   sync.Mutex
	clients map[*liveClient]bool
}

func newHub(logger logrus.FieldLogger) *hub {
	return &hub{
		logger:  logger,
		clients: make(map[*liveClient]bool),
	}
}

// join registers client and queues snapshot for it under the same lock as
// broadcast, so no update published after the snapshot is missed.
func (h *hub) join(client *liveClient, snapshot func() race.RaceInfo) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	client.receive <- snapshot()
}

func (h *hub) remove(client *liveClient) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.clients[client] {
		delete(h.clients, client)
		client.close()
	}
}

func (h *hub) numClients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.clients)
}

// broadcast never blocks the game loop. Clients which cannot keep up are dropped.
func (h *hub) broadcast(info race.RaceInfo) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.receive <- info:
		default:
			h.logger.Warnf("Live client is not keeping up, disconnecting")
			delete(h.clients, client)
			client.close()
		}
	}
}

func (h *hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		delete(h.clients, client)
		client.close()
	}
}

func (rc *RaceControl) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		rc.logger.WithError(err).Error("Could not upgrade live connection")
		return
	}

	client := &liveClient{
		conn:    conn,
		receive: make(chan race.RaceInfo, liveBufferSize),
	}

	rc.hub.join(client, rc.RaceInfo)

	go func() {
		// the read loop only exists to notice the client going away
		defer rc.hub.remove(client)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer conn.Close()

	for info := range client.receive {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))

		if err := conn.WriteJSON(info); err != nil {
			rc.logger.WithError(err).Debug("Could not write to live client")
			rc.hub.remove(client)
			return
		}
	}
}
