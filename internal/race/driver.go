package race

import (
	"fmt"
	"sort"
)

type Driver struct {
	PlayerNumber       int    `json:"player_number" yaml:"player_number"`
	Name               string `json:"name" yaml:"name"`
	CarID              int    `json:"car_id" yaml:"car_id"`
	IsAI               bool   `json:"is_ai" yaml:"is_ai"`
	LastRacePosition   int    `json:"last_race_position" yaml:"-"`
	ChampionshipPoints int    `json:"championship_points" yaml:"-"`
}

func (d Driver) String() string {
	return fmt.Sprintf("%s (player %d, car %d)", d.Name, d.PlayerNumber, d.CarID)
}

// Roster is the ordered set of drivers in a session. Player numbers are
// expected to be unique but this is not enforced; lookups return the first match.
type Roster []*Driver

func (r Roster) find(playerNumber int) (*Driver, error) {
	for _, driver := range r {
		if driver.PlayerNumber == playerNumber {
			return driver, nil
		}
	}

	return nil, fmt.Errorf("%w: player number %d", ErrDriverNotFound, playerNumber)
}

func (r Roster) Snapshot() []Driver {
	drivers := make([]Driver, len(r))

	for i, driver := range r {
		drivers[i] = *driver
	}

	return drivers
}

// SortStandings orders drivers by championship points, then by last race
// position (unplaced drivers last), then by player number.
func SortStandings(drivers []Driver) {
	sort.SliceStable(drivers, func(i, j int) bool {
		a, b := drivers[i], drivers[j]

		if a.ChampionshipPoints != b.ChampionshipPoints {
			return a.ChampionshipPoints > b.ChampionshipPoints
		}

		if a.LastRacePosition != b.LastRacePosition {
			if a.LastRacePosition == 0 {
				return false
			}

			if b.LastRacePosition == 0 {
				return true
			}

			return a.LastRacePosition < b.LastRacePosition
		}

		return a.PlayerNumber < b.PlayerNumber
	})
}

var DefaultDrivers = []Driver{
	{PlayerNumber: 1, Name: "P1", CarID: 0},
	{PlayerNumber: 2, Name: "P2", CarID: 1},
}
