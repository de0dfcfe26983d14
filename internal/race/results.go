package race

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const CurrentResultsVersion = 1

// RaceInfo is a point-in-time copy of the controller's state.
type RaceInfo struct {
	Version     int           `json:"version"`
	SessionID   uuid.UUID     `json:"session_id"`
	State       State         `json:"state"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	ElapsedTime time.Duration `json:"elapsed_time_ns"`
	Drivers     []Driver      `json:"drivers"`
	Standings   []Driver      `json:"standings"`
}

func (c *Controller) RaceInfo() RaceInfo {
	return RaceInfo{
		Version:     CurrentResultsVersion,
		SessionID:   c.sessionID,
		State:       c.state,
		StartedAt:   c.startedAt,
		CompletedAt: c.completedAt,
		ElapsedTime: c.ElapsedRaceTime(),
		Drivers:     c.Roster(),
		Standings:   c.Standings(),
	}
}

// ResultsWriter saves a results file for every race that finishes.
type ResultsWriter struct {
	baseDirectory string
	logger        Logger
}

func NewResultsWriter(baseDirectory string, logger Logger) *ResultsWriter {
	return &ResultsWriter{
		baseDirectory: baseDirectory,
		logger:        logger,
	}
}

func (rw *ResultsWriter) OnStateChange(c *Controller) {
	if c.State() != StateOver {
		return
	}

	path, err := rw.Save(c.RaceInfo())

	if err != nil {
		rw.logger.WithError(err).Error("Could not save results file!")
		return
	}

	rw.logger.Infof("Saved race results to %s", path)
}

func (rw *ResultsWriter) Save(info RaceInfo) (string, error) {
	dir := filepath.Join(rw.baseDirectory, "results")

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "could not create results directory")
	}

	completed := info.CompletedAt

	if completed.IsZero() {
		completed = time.Now()
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", completed.Format("2006_1_2_15_4"), info.SessionID))

	f, err := os.Create(path)

	if err != nil {
		return "", errors.Wrapf(err, "could not create results file %s", path)
	}

	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(info); err != nil {
		return "", errors.Wrapf(err, "could not write results file %s", path)
	}

	return path, nil
}
