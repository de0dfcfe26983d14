package catalog

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cj123/ini"
	"github.com/dimchansky/utfbom"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var (
	ErrEmptyCatalog   = errors.New("catalog: no car configurations found")
	ErrDuplicateCarID = errors.New("catalog: duplicate car id")
)

// Car is a selectable car configuration. Cars are immutable once loaded.
type Car struct {
	ID          int    `json:"id" yaml:"id" ini:"ID"`
	Name        string `json:"name" yaml:"name" ini:"NAME"`
	Model       string `json:"model" yaml:"model" ini:"MODEL"`
	Description string `json:"description" yaml:"description" ini:"DESCRIPTION"`
}

func (c Car) String() string {
	if c.Name == "" {
		return fmt.Sprintf("car %d", c.ID)
	}

	return fmt.Sprintf("%s (id: %d)", c.Name, c.ID)
}

const carSection = "CAR"

// LoadDir reads every car configuration in dir. Files are read in name order,
// which is the order cars are offered in.
func LoadDir(dir string) ([]Car, error) {
	files, err := ioutil.ReadDir(dir)

	if err != nil {
		return nil, pkgerrors.Wrapf(err, "could not read car data directory %s", dir)
	}

	var names []string

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		names = append(names, file.Name())
	}

	sort.Strings(names)

	var cars []Car

	for _, name := range names {
		var car Car
		path := filepath.Join(dir, name)

		switch strings.ToLower(filepath.Ext(name)) {
		case ".yml", ".yaml":
			car, err = loadYAML(path)
		case ".ini":
			car, err = loadINI(path)
		default:
			continue
		}

		if err != nil {
			return nil, err
		}

		cars = append(cars, car)
	}

	if err := Validate(cars); err != nil {
		return nil, err
	}

	return cars, nil
}

func Validate(cars []Car) error {
	if len(cars) == 0 {
		return ErrEmptyCatalog
	}

	seen := make(map[int]bool)

	for _, car := range cars {
		if seen[car.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateCarID, car.ID)
		}

		seen[car.ID] = true
	}

	return nil
}

func loadYAML(path string) (Car, error) {
	var car Car

	b, err := readCarData(path)

	if err != nil {
		return Car{}, err
	}

	if err := yaml.Unmarshal(b, &car); err != nil {
		return Car{}, pkgerrors.Wrapf(err, "could not parse car data %s", path)
	}

	return car, nil
}

func loadINI(path string) (Car, error) {
	var car Car

	b, err := readCarData(path)

	if err != nil {
		return Car{}, err
	}

	i, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
	}, b)

	if err != nil {
		return Car{}, pkgerrors.Wrapf(err, "could not parse car data %s", path)
	}

	section, err := i.GetSection(carSection)

	if err != nil {
		return Car{}, pkgerrors.Wrapf(err, "car data %s has no [%s] section", path, carSection)
	}

	if err := section.MapTo(&car); err != nil {
		return Car{}, pkgerrors.Wrapf(err, "could not map car data %s", path)
	}

	return car, nil
}

// readCarData reads a car data file, dropping any byte order mark left by
// editors on Windows.
func readCarData(path string) ([]byte, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, pkgerrors.Wrapf(err, "could not read car data %s", path)
	}

	defer f.Close()

	b, err := ioutil.ReadAll(utfbom.SkipOnly(f))

	if err != nil {
		return nil, pkgerrors.Wrapf(err, "could not read car data %s", path)
	}

	return b, nil
}
