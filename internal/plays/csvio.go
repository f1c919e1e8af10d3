package plays

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// playFields is the header expected by ReadCSV, in order.
var playFields = []string{
	"season_year", "season_type", "game_id", "play_id", "quarter",
	"seconds_elapsed", "down", "yards_to_go", "yardline", "offense_team",
	"home_team", "curr_home_score", "curr_away_score", "offense_won",
}

// ReadCSV reads full play records, season metadata included, from a CSV
// file. The header must name all play fields, in any order. An empty down
// cell means the play has no down.
func ReadCSV(path string) ([]Play, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open plays file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read plays header: %w", err)
	}

	fields := make(map[string]int, len(header))
	for i, name := range header {
		fields[name] = i
	}
	for _, name := range playFields {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("plays file is missing column %q", name)
		}
	}

	var ps []Play
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read plays file: %w", err)
		}

		p, err := parsePlay(record, fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func parsePlay(record []string, fields map[string]int) (Play, error) {
	get := func(name string) string { return record[fields[name]] }

	atoi := func(name string) (int, error) {
		v, err := strconv.Atoi(get(name))
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", name, get(name))
		}
		return v, nil
	}

	var p Play
	var err error
	if p.SeasonYear, err = atoi("season_year"); err != nil {
		return Play{}, err
	}
	p.SeasonType = get("season_type")
	if err := checkSeasonTypes([]string{p.SeasonType}); err != nil {
		return Play{}, err
	}
	p.GameID = get("game_id")
	if p.PlayID, err = atoi("play_id"); err != nil {
		return Play{}, err
	}
	if p.Quarter, err = atoi("quarter"); err != nil {
		return Play{}, err
	}
	if p.SecondsElapsed, err = strconv.ParseFloat(get("seconds_elapsed"), 64); err != nil {
		return Play{}, fmt.Errorf("invalid seconds_elapsed %q", get("seconds_elapsed"))
	}
	if d := get("down"); d != "" {
		if p.Down, err = atoi("down"); err != nil {
			return Play{}, err
		}
	}
	if p.YardsToGo, err = atoi("yards_to_go"); err != nil {
		return Play{}, err
	}
	if p.Yardline, err = strconv.ParseFloat(get("yardline"), 64); err != nil {
		return Play{}, fmt.Errorf("invalid yardline %q", get("yardline"))
	}
	p.OffenseTeam = get("offense_team")
	p.HomeTeam = get("home_team")
	if p.HomeScore, err = atoi("curr_home_score"); err != nil {
		return Play{}, err
	}
	if p.AwayScore, err = atoi("curr_away_score"); err != nil {
		return Play{}, err
	}
	if p.OffenseWon, err = strconv.ParseBool(get("offense_won")); err != nil {
		return Play{}, fmt.Errorf("invalid offense_won %q", get("offense_won"))
	}
	return p, nil
}
