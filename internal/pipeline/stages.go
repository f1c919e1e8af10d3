package pipeline

import (
	"fmt"
	"math"

	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/model"
)

const secondsPerQuarter = 15 * 60

// OffenseHome adds a 0/1 column flagging plays where the team on offense is
// the home team. Stateless.
type OffenseHome struct {
	OffenseTeamColumn string
	HomeTeamColumn    string
	OutColumn         string
}

// Name implements Stage.
func (s OffenseHome) Name() string { return "compute_offense_home" }

// Fit implements Stage. OffenseHome has no state to learn.
func (s OffenseHome) Fit(*dataset.Dataset) error { return nil }

// Transform adds the offense-is-home column.
func (s OffenseHome) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	offense, err := ds.Strings(s.OffenseTeamColumn)
	if err != nil {
		return nil, err
	}
	home, err := ds.Strings(s.HomeTeamColumn)
	if err != nil {
		return nil, err
	}

	flags := make([]float64, len(offense))
	for i := range offense {
		if offense[i] == home[i] {
			flags[i] = 1
		}
	}

	out := ds.Drop() // shallow copy of the column list
	if err := out.AddFloats(s.OutColumn, flags); err != nil {
		return nil, err
	}
	return out, nil
}

// ScoreDifferential adds the score margin from the offense's point of view:
// home minus away when the offense is home, away minus home otherwise.
// Stateless.
type ScoreDifferential struct {
	HomeScoreColumn   string
	AwayScoreColumn   string
	OffenseHomeColumn string
	OutColumn         string
}

// Name implements Stage.
func (s ScoreDifferential) Name() string { return "create_score_differential" }

// Fit implements Stage. ScoreDifferential has no state to learn.
func (s ScoreDifferential) Fit(*dataset.Dataset) error { return nil }

// Transform adds the offense-relative score differential column.
func (s ScoreDifferential) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if ds.Has(s.OutColumn) {
		return nil, fmt.Errorf("column %s already exists and cannot be used for the score differential", s.OutColumn)
	}

	home, err := ds.Floats(s.HomeScoreColumn)
	if err != nil {
		return nil, err
	}
	away, err := ds.Floats(s.AwayScoreColumn)
	if err != nil {
		return nil, err
	}
	offenseHome, err := ds.Floats(s.OffenseHomeColumn)
	if err != nil {
		return nil, err
	}

	diff := make([]float64, len(home))
	for i := range home {
		if offenseHome[i] >= 0.5 {
			diff[i] = home[i] - away[i]
		} else {
			diff[i] = away[i] - home[i]
		}
	}

	out := ds.Drop()
	if err := out.AddFloats(s.OutColumn, diff); err != nil {
		return nil, err
	}
	return out, nil
}

// ElapsedTime adds the total number of game seconds elapsed at the start of
// the play. Quarters 1-4 are 15 minutes; overtime periods (quarter 5 and up)
// count from the end of regulation. Stateless.
type ElapsedTime struct {
	QuarterColumn string
	TimeColumn    string
	OutColumn     string
}

// Name implements Stage.
func (s ElapsedTime) Name() string { return "compute_total_time_elapsed" }

// Fit implements Stage. ElapsedTime has no state to learn.
func (s ElapsedTime) Fit(*dataset.Dataset) error { return nil }

// Transform adds the total elapsed time column.
func (s ElapsedTime) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	quarters, err := ds.Floats(s.QuarterColumn)
	if err != nil {
		return nil, err
	}
	times, err := ds.Floats(s.TimeColumn)
	if err != nil {
		return nil, err
	}

	elapsed := make([]float64, len(quarters))
	for i := range quarters {
		q := quarters[i]
		if q < 1 {
			return nil, fmt.Errorf("invalid quarter %g on row %d", q, i)
		}
		elapsed[i] = (q-1)*secondsPerQuarter + times[i]
	}

	out := ds.Drop()
	if err := out.AddFloats(s.OutColumn, elapsed); err != nil {
		return nil, err
	}
	return out, nil
}

// DownToInt normalizes the down column to whole numbers, mapping missing
// values (kickoffs, extra points) to 0. Stateless.
type DownToInt struct {
	DownColumn string
}

// Name implements Stage.
func (s DownToInt) Name() string { return "map_downs_to_int" }

// Fit implements Stage. DownToInt has no state to learn.
func (s DownToInt) Fit(*dataset.Dataset) error { return nil }

// Transform replaces the down column with its integer form.
func (s DownToInt) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	downs, err := ds.Floats(s.DownColumn)
	if err != nil {
		return nil, err
	}

	mapped := make([]float64, len(downs))
	for i, d := range downs {
		if math.IsNaN(d) {
			mapped[i] = 0
			continue
		}
		mapped[i] = math.Round(d)
	}

	out := ds.Drop(s.DownColumn)
	if err := out.AddFloats(s.DownColumn, mapped); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectColumns keeps exactly the configured columns, in order, dropping
// everything else. When no columns are configured it learns the full column
// set of the training data instead, pinning column order for later scoring.
type SelectColumns struct {
	// Columns is the column selection. Learned at Fit when initially empty.
	Columns []string
}

// Name implements Stage.
func (s *SelectColumns) Name() string { return "remove_unnecessary_columns" }

// Fit learns the column set when none was configured.
func (s *SelectColumns) Fit(ds *dataset.Dataset) error {
	if len(s.Columns) == 0 {
		s.Columns = ds.Columns()
	}
	return nil
}

// Transform applies the column selection and ordering.
func (s *SelectColumns) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if len(s.Columns) == 0 {
		return nil, model.ErrNotFitted
	}
	out, err := ds.Select(s.Columns...)
	if err != nil {
		return nil, fmt.Errorf("data does not have all required columns (need %v): %w", s.Columns, err)
	}
	return out, nil
}
