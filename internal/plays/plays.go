// Package plays defines the play-by-play domain model and its PostgreSQL
// backed store.
package plays

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
	"github.com/maxpolokov/nflwin/internal/dataset"
)

// Play is the state of a single NFL play at the moment the ball is snapped,
// together with the eventual outcome of the game for the offense.
type Play struct {
	SeasonYear int    `json:"season_year,omitempty"`
	SeasonType string `json:"season_type,omitempty"`
	GameID     string `json:"game_id,omitempty"`

	// PlayID orders plays within a game. Together with GameID it uniquely
	// identifies a play in the plays database.
	PlayID int `json:"play_id,omitempty"`

	// Quarter is 1 through 4 during regulation, 5 and up in overtime.
	Quarter int `json:"quarter"`

	// SecondsElapsed counts up from the start of the quarter.
	SecondsElapsed float64 `json:"seconds_elapsed"`

	// Down is 1 through 4, or 0 for plays without a down such as kickoffs
	// and extra points.
	Down int `json:"down"`

	YardsToGo int `json:"yards_to_go"`

	// Yardline is the distance from the offense's own end zone, 1 to 99.
	Yardline float64 `json:"yardline"`

	OffenseTeam string `json:"offense_team"`
	HomeTeam    string `json:"home_team"`

	HomeScore int `json:"curr_home_score"`
	AwayScore int `json:"curr_away_score"`

	// OffenseWon is whether the offense went on to win the game. Only
	// meaningful for historical plays.
	OffenseWon bool `json:"offense_won,omitempty"`
}

// Columns names the dataset columns the win probability model reads. It is
// the Go rendition of the original model's column name parameters, so data
// from sources with different headers can be used without renaming.
type Columns struct {
	HomeScore      string `toml:"home_score" json:"home_score"`
	AwayScore      string `toml:"away_score" json:"away_score"`
	Quarter        string `toml:"quarter" json:"quarter"`
	SecondsElapsed string `toml:"seconds_elapsed" json:"seconds_elapsed"`
	Down           string `toml:"down" json:"down"`
	YardsToGo      string `toml:"yards_to_go" json:"yards_to_go"`
	Yardline       string `toml:"yardline" json:"yardline"`
	OffenseTeam    string `toml:"offense_team" json:"offense_team"`
	HomeTeam       string `toml:"home_team" json:"home_team"`
	OffenseWon     string `toml:"offense_won" json:"offense_won"`
}

// DefaultColumns returns the column names used by the plays database and the
// default model.
func DefaultColumns() Columns {
	return Columns{
		HomeScore:      "curr_home_score",
		AwayScore:      "curr_away_score",
		Quarter:        "quarter",
		SecondsElapsed: "seconds_elapsed",
		Down:           "down",
		YardsToGo:      "yards_to_go",
		Yardline:       "yardline",
		OffenseTeam:    "offense_team",
		HomeTeam:       "home_team",
		OffenseWon:     "offense_won",
	}
}

// LoadColumns reads column name overrides from a TOML file. Fields left
// empty keep their defaults.
func LoadColumns(path string) (Columns, error) {
	cols := DefaultColumns()
	if _, err := toml.DecodeFile(path, &cols); err != nil {
		return Columns{}, fmt.Errorf("could not read column schema file: %w", err)
	}
	if err := cols.validate(); err != nil {
		return Columns{}, err
	}
	return cols, nil
}

func (c Columns) validate() error {
	names := []string{
		c.HomeScore, c.AwayScore, c.Quarter, c.SecondsElapsed, c.Down,
		c.YardsToGo, c.Yardline, c.OffenseTeam, c.HomeTeam, c.OffenseWon,
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return fmt.Errorf("column schema has an empty column name")
		}
		if seen[n] {
			return fmt.Errorf("column schema reuses column name %q", n)
		}
		seen[n] = true
	}
	return nil
}

// ToDataset converts plays into a dataset with the given column names.
// Downs of 0 become NaN, matching how CSV and database sources represent
// plays without a down.
func ToDataset(ps []Play, cols Columns) (*dataset.Dataset, error) {
	n := len(ps)
	homeScores := make([]float64, n)
	awayScores := make([]float64, n)
	quarters := make([]float64, n)
	elapsed := make([]float64, n)
	downs := make([]float64, n)
	toGo := make([]float64, n)
	yardlines := make([]float64, n)
	offense := make([]string, n)
	home := make([]string, n)
	won := make([]float64, n)

	for i, p := range ps {
		homeScores[i] = float64(p.HomeScore)
		awayScores[i] = float64(p.AwayScore)
		quarters[i] = float64(p.Quarter)
		elapsed[i] = p.SecondsElapsed
		if p.Down == 0 {
			downs[i] = math.NaN()
		} else {
			downs[i] = float64(p.Down)
		}
		toGo[i] = float64(p.YardsToGo)
		yardlines[i] = p.Yardline
		offense[i] = p.OffenseTeam
		home[i] = p.HomeTeam
		if p.OffenseWon {
			won[i] = 1
		}
	}

	ds := dataset.New()
	for _, col := range []struct {
		name string
		vals []float64
	}{
		{cols.HomeScore, homeScores},
		{cols.AwayScore, awayScores},
		{cols.Quarter, quarters},
		{cols.SecondsElapsed, elapsed},
		{cols.Down, downs},
		{cols.YardsToGo, toGo},
		{cols.Yardline, yardlines},
	} {
		if err := ds.AddFloats(col.name, col.vals); err != nil {
			return nil, err
		}
	}
	if err := ds.AddStrings(cols.OffenseTeam, offense); err != nil {
		return nil, err
	}
	if err := ds.AddStrings(cols.HomeTeam, home); err != nil {
		return nil, err
	}
	if err := ds.AddFloats(cols.OffenseWon, won); err != nil {
		return nil, err
	}
	return ds, nil
}
