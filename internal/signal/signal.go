// SPDX-License-Identifier: MIT

// Package signal turns a scoring assessment into a Signal: the county-day
// condition shown on a signal card.
package signal

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daymark-app/daymark/internal/scoring"
)

// Level is the coarse status shown to readers.
type Level string

const (
	LevelGreen Level = "GREEN"
	LevelAmber Level = "AMBER"
	LevelRed   Level = "RED"
)

// Rank orders levels so thresholds can be compared. Unknown levels rank 0.
func (l Level) Rank() int {
	switch l {
	case LevelGreen:
		return 1
	case LevelAmber:
		return 2
	case LevelRed:
		return 3
	default:
		return 0
	}
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool { return l.Rank() > 0 }

// Hazard names the weather component driving a signal.
type Hazard string

const (
	HazardHeat Hazard = "heat"
	HazardRain Hazard = "rain"
	HazardWind Hazard = "wind"
)

// Valid reports whether h is a known hazard.
func (h Hazard) Valid() bool {
	switch h {
	case HazardHeat, HazardRain, HazardWind:
		return true
	}
	return false
}

// DateLayout is the canonical day format used for signals and history.
const DateLayout = "2006-01-02"

// Signal is one county's assessed condition for one day.
type Signal struct {
	ID         string             `json:"id"`
	County     string             `json:"county"`
	Date       string             `json:"date"`
	Level      Level              `json:"level"`
	Driver     Hazard             `json:"driver"`
	Assessment scoring.Assessment `json:"assessment"`
	ComputedAt time.Time          `json:"computed_at"`
}

// LevelForState maps a model state label onto a display level.
func LevelForState(state string) Level {
	switch state {
	case scoring.StateStable:
		return LevelGreen
	case scoring.StateBuilding:
		return LevelAmber
	default:
		return LevelRed
	}
}

// DriverOf returns the hazard with the highest component score.
// Ties resolve heat, then rain, then wind.
func DriverOf(a scoring.Assessment) Hazard {
	driver, best := HazardHeat, a.Heat
	if a.Rain > best {
		driver, best = HazardRain, a.Rain
	}
	if a.Wind > best {
		driver = HazardWind
	}
	return driver
}

// idNamespace scopes signal IDs derived with uuid.NewSHA1.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://daymark.app/signals"))

// ID derives the stable identifier of a county-day signal at a level. A
// re-assessment that lands on the same level is the same signal; a level
// change is a new one.
func ID(county, date string, level Level) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.ToLower(county)+"|"+date+"|"+string(level))).String()
}

// New builds a signal for county on date from an assessment.
func New(county string, date time.Time, a scoring.Assessment, now time.Time) Signal {
	day := date.Format(DateLayout)
	level := LevelForState(a.State)
	return Signal{
		ID:         ID(county, day, level),
		County:     county,
		Date:       day,
		Level:      level,
		Driver:     DriverOf(a),
		Assessment: a,
		ComputedAt: now.UTC(),
	}
}

// Elevated reports whether the signal threshold is met, i.e. conditions are
// not normal.
func (s Signal) Elevated() bool {
	return s.Level.Rank() > LevelGreen.Rank()
}
