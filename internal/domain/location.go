package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLocation is returned for units missing from the location table.
var DefaultLocation = Location{Lat: 19.0760, Lon: 72.8777}

// Locator resolves a unit id to coordinates. Implementations never fail;
// unknown units get a default.
type Locator interface {
	Locate(unitID string) Location
}

// builtinLocations are the installed units known at deploy time.
var builtinLocations = map[string]Location{
	"DRAIN_A01": {Lat: 19.0760, Lon: 72.8777},
	"DRAIN_B02": {Lat: 19.2183, Lon: 72.9781},
	"DRAIN_C03": {Lat: 19.0760, Lon: 72.9080},
	"DELHI_01":  {Lat: 28.6139, Lon: 77.2090},
	"DELHI_02":  {Lat: 28.7041, Lon: 77.1025},
	"BLR_01":    {Lat: 12.9716, Lon: 77.5946},
	"BLR_02":    {Lat: 12.9352, Lon: 77.6245},
	"KOL_01":    {Lat: 22.5726, Lon: 88.3639},
	"KOL_02":    {Lat: 22.5600, Lon: 88.4000},
	"CHN_01":    {Lat: 13.0827, Lon: 80.2707},
	"CHN_02":    {Lat: 13.0674, Lon: 80.2376},
}

// StaticLocator is a fixed unit -> coordinate table with a fallback.
type StaticLocator struct {
	locations map[string]Location
	fallback  Location
}

// NewStaticLocator copies the given table. Pass nil to start empty.
func NewStaticLocator(locations map[string]Location, fallback Location) *StaticLocator {
	m := make(map[string]Location, len(locations))
	for id, loc := range locations {
		m[id] = loc
	}
	return &StaticLocator{locations: m, fallback: fallback}
}

// DefaultLocator returns the built-in unit table with DefaultLocation as fallback.
func DefaultLocator() *StaticLocator {
	return NewStaticLocator(builtinLocations, DefaultLocation)
}

// Locate returns the unit's coordinates or the fallback.
func (l *StaticLocator) Locate(unitID string) Location {
	if loc, ok := l.locations[unitID]; ok {
		return loc
	}
	return l.fallback
}

// Known reports whether the unit has an explicit entry.
func (l *StaticLocator) Known(unitID string) bool {
	_, ok := l.locations[unitID]
	return ok
}

// locationFile is the YAML layout of UNIT_LOCATIONS_FILE:
//
//	default: {lat: 19.0760, lon: 72.8777}
//	units:
//	  DRAIN_D04: {lat: 19.1, lon: 72.9}
type locationFile struct {
	Default *Location           `yaml:"default"`
	Units   map[string]Location `yaml:"units"`
}

// LoadLocatorFile merges a YAML override file over the built-in table.
// Entries in the file replace built-in units; a default entry replaces DefaultLocation.
func LoadLocatorFile(path string) (*StaticLocator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}

	var f locationFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse locations file: %w", err)
	}

	l := DefaultLocator()
	if f.Default != nil {
		l.fallback = *f.Default
	}
	for id, loc := range f.Units {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := validateLocation(loc); err != nil {
			return nil, fmt.Errorf("unit %s: %w", id, err)
		}
		l.locations[id] = loc
	}
	return l, nil
}

func validateLocation(loc Location) error {
	if loc.Lat < -90 || loc.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", loc.Lat)
	}
	if loc.Lon < -180 || loc.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", loc.Lon)
	}
	return nil
}
