package racegame

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"justapengu.in/racegame/internal/carselect"
	"justapengu.in/racegame/internal/race"
	"justapengu.in/racegame/internal/scheduler"
	"justapengu.in/racegame/internal/settings"
)

const (
	SelectCarScene = "SelectCar"
	CourseScene    = "Course1"
)

type Config struct {
	Game      GameConfig      `json:"game" yaml:"game"`
	Race      RaceConfig      `json:"race" yaml:"race"`
	CarSelect CarSelectConfig `json:"car_select" yaml:"car_select"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
}

type GameConfig struct {
	FrameRate         int    `json:"frame_rate" yaml:"frame_rate"`
	DataDirectory     string `json:"data_directory" yaml:"data_directory"`
	SettingsFile      string `json:"settings_file" yaml:"settings_file"`
	FirstScene        string `json:"first_scene" yaml:"first_scene"`
	SelectCarScene    string `json:"select_car_scene" yaml:"select_car_scene"`
	CourseScene       string `json:"course_scene" yaml:"course_scene"`
	SaveRaceResults   bool   `json:"save_race_results" yaml:"save_race_results"`
	ResultsBaseFolder string `json:"results_base_folder" yaml:"results_base_folder"`
}

type RaceConfig struct {
	CountdownMilliseconds int           `json:"countdown_ms" yaml:"countdown_ms"`
	DefaultDrivers        []race.Driver `json:"default_drivers" yaml:"default_drivers"`
}

func (rc RaceConfig) ToControllerConfig() race.Config {
	return race.Config{
		CountdownDuration: time.Duration(rc.CountdownMilliseconds) * time.Millisecond,
		DefaultDrivers:    rc.DefaultDrivers,
	}
}

type CarSelectConfig struct {
	CatalogDirectory   string   `json:"catalog_directory" yaml:"catalog_directory"`
	SettleMilliseconds int      `json:"settle_ms" yaml:"settle_ms"`
	SettingKeys        []string `json:"setting_keys" yaml:"setting_keys"`
}

func (cc CarSelectConfig) ToFlowConfig(nextScene string) carselect.Config {
	return carselect.Config{
		SettleDelay: time.Duration(cc.SettleMilliseconds) * time.Millisecond,
		NextScene:   nextScene,
		SettingKeys: cc.SettingKeys,
	}
}

type HTTPConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
}

func ConfigDefault() *Config {
	return &Config{
		Game: GameConfig{
			FrameRate:         scheduler.DefaultFrameRate,
			DataDirectory:     ".",
			SettingsFile:      "settings.db",
			FirstScene:        SelectCarScene,
			SelectCarScene:    SelectCarScene,
			CourseScene:       CourseScene,
			SaveRaceResults:   true,
			ResultsBaseFolder: ".",
		},
		Race: RaceConfig{
			CountdownMilliseconds: int(race.DefaultCountdownDuration / time.Millisecond),
			DefaultDrivers:        race.DefaultDrivers,
		},
		CarSelect: CarSelectConfig{
			CatalogDirectory:   "CarData",
			SettleMilliseconds: int(carselect.DefaultSettleDelay / time.Millisecond),
			SettingKeys:        []string{settings.P1SelectedCarID, settings.P2SelectedCarID},
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1:8772",
		},
	}
}

// ReadConfig loads the config at path over the defaults. A missing file is not an error.
func ReadConfig(path string) (*Config, error) {
	config := ConfigDefault()

	f, err := os.Open(path)

	if os.IsNotExist(err) {
		return config, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not open config %s", path)
	}

	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(config); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "could not parse config %s", path)
	}

	return config, nil
}
