package racecontrol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"justapengu.in/racegame/internal/race"
)

func (rc *RaceControl) Router(registry *prometheus.Registry) http.Handler {
	router := chi.NewRouter()

	router.Get("/api/race", rc.Race)
	router.Get("/api/standings", rc.Standings)
	router.Get("/api/live", rc.Live)
	router.Post("/api/race/complete", rc.CompleteRace)
	router.Post("/api/drivers/{playerNumber}/position", rc.SetPosition)
	router.Post("/api/drivers/{playerNumber}/points", rc.AddPoints)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rc.logger.Debugf("Could not find HTTP response for URL: %s", r.URL.String())

		http.NotFound(w, r)
	})

	return router
}

// Serve listens on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger logrus.FieldLogger) error {
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Infof("HTTP server listening on: %s", addr)

		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}

		return err
	case <-ctx.Done():
		shutdownCtx, cfn := context.WithTimeout(context.Background(), 5*time.Second)
		defer cfn()

		return server.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type httpError struct {
	Error string `json:"error"`
}

func (rc *RaceControl) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, race.ErrDriverNotFound):
		status = http.StatusNotFound
	case errors.Is(err, race.ErrRaceNotRunning), errors.Is(err, race.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, race.ErrNegativePoints), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	default:
		rc.logger.WithError(err).Error("Race control request failed")
	}

	writeJSON(w, status, httpError{Error: err.Error()})
}

var errBadRequest = errors.New("racecontrol: bad request")

func (rc *RaceControl) Race(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rc.RaceInfo())
}

func (rc *RaceControl) Standings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rc.RaceInfo().Standings)
}

func (rc *RaceControl) CompleteRace(w http.ResponseWriter, r *http.Request) {
	err := rc.do(r.Context(), func(c *race.Controller) error {
		return c.CompleteRace()
	})

	if err != nil {
		rc.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rc.RaceInfo())
}

type positionRequest struct {
	Position int `json:"position"`
}

type pointsRequest struct {
	Points int `json:"points"`
}

func playerNumber(r *http.Request) (int, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "playerNumber"))

	if err != nil {
		return 0, fmt.Errorf("%w: invalid player number", errBadRequest)
	}

	return n, nil
}

func decodeRequest(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, err)
	}

	return nil
}

func (rc *RaceControl) SetPosition(w http.ResponseWriter, r *http.Request) {
	player, err := playerNumber(r)

	if err != nil {
		rc.writeError(w, err)
		return
	}

	var req positionRequest

	if err := decodeRequest(r, &req); err != nil {
		rc.writeError(w, err)
		return
	}

	err = rc.do(r.Context(), func(c *race.Controller) error {
		return c.SetLastPosition(player, req.Position)
	})

	if err != nil {
		rc.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rc.RaceInfo().Standings)
}

func (rc *RaceControl) AddPoints(w http.ResponseWriter, r *http.Request) {
	player, err := playerNumber(r)

	if err != nil {
		rc.writeError(w, err)
		return
	}

	var req pointsRequest

	if err := decodeRequest(r, &req); err != nil {
		rc.writeError(w, err)
		return
	}

	err = rc.do(r.Context(), func(c *race.Controller) error {
		return c.AddChampionshipPoints(player, req.Points)
	})

	if err != nil {
		rc.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rc.RaceInfo().Standings)
}
