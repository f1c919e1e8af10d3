package plays

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/maxpolokov/nflwin/internal/dataset"
)

// Config holds the configuration for connecting to the plays database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type dbPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Manager manages the PostgreSQL connection pool for the plays database.
type Manager struct {
	dbpool dbPool
}

type options struct {
	newPool func(ctx context.Context, dsn string) (dbPool, error)
}

// Options represents an optional function to override Manager default values.
type Options func(*options)

// New creates a plays database manager with a PostgreSQL connection pool
// using the provided configuration.
// Note: The connection is validated with a ping, but it is not maintained.
func New(ctx context.Context, cfg Config, args ...Options) (*Manager, error) {
	opts := options{
		newPool: func(ctx context.Context, dsn string) (dbPool, error) {
			return pgxpool.New(ctx, dsn)
		},
	}
	for _, opt := range args {
		opt(&opts)
	}

	dbpool, err := opts.newPool(ctx, cfg.URI("postgres"))
	if err != nil {
		return nil, fmt.Errorf("unable to create database connection pool: %w", err)
	}

	slog.Debug("Testing database connection", "host", cfg.Host, "port", cfg.Port)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := dbpool.Ping(pingCtx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %v", err)
	}

	return &Manager{dbpool: dbpool}, nil
}

// Fetch queries the play state columns for the given seasons and season
// phases, returning them as a dataset with the given column names.
func (db Manager) Fetch(ctx context.Context, cols Columns, seasons []int, seasonTypes []string) (*dataset.Dataset, error) {
	if db.dbpool == nil {
		return nil, errors.New("database not initialized")
	}
	if len(seasons) == 0 {
		return nil, errors.New("at least one season is required")
	}
	if err := checkSeasonTypes(seasonTypes); err != nil {
		return nil, err
	}

	const query = `
		SELECT quarter, seconds_elapsed, down, yards_to_go, yardline,
		       offense_team, home_team, curr_home_score, curr_away_score,
		       offense_won
		FROM plays
		WHERE season_year = ANY($1) AND season_type = ANY($2)
		ORDER BY game_id, play_id`

	rows, err := db.dbpool.Query(ctx, query, seasons, seasonTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var ps []Play
	for rows.Next() {
		var p Play
		var down *int16
		if err := rows.Scan(&p.Quarter, &p.SecondsElapsed, &down, &p.YardsToGo,
			&p.Yardline, &p.OffenseTeam, &p.HomeTeam, &p.HomeScore, &p.AwayScore,
			&p.OffenseWon); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		if down != nil {
			p.Down = int(*down)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read plays: %w", err)
	}

	slog.Info("Fetched plays from database", "count", len(ps), "seasons", seasons, "season_types", seasonTypes)
	return ToDataset(ps, cols)
}

// Insert bulk-loads plays into the plays table. Plays are keyed by their
// (game_id, play_id) pair, so every play must carry the identifier it has in
// its source data.
func (db Manager) Insert(ctx context.Context, ps []Play) (int64, error) {
	if db.dbpool == nil {
		return 0, errors.New("database not initialized")
	}

	columns := []string{
		"season_year", "season_type", "game_id", "play_id", "quarter",
		"seconds_elapsed", "down", "yards_to_go", "yardline", "offense_team",
		"home_team", "curr_home_score", "curr_away_score", "offense_won",
	}

	n, err := db.dbpool.CopyFrom(ctx, pgx.Identifier{"plays"}, columns,
		pgx.CopyFromSlice(len(ps), func(i int) ([]any, error) {
			p := ps[i]
			var down *int16
			if p.Down != 0 {
				d := int16(p.Down)
				down = &d
			}
			return []any{
				p.SeasonYear, p.SeasonType, p.GameID, p.PlayID, p.Quarter,
				p.SecondsElapsed, down, p.YardsToGo, p.Yardline, p.OffenseTeam,
				p.HomeTeam, p.HomeScore, p.AwayScore, p.OffenseWon,
			}, nil
		}))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return n, fmt.Errorf("insert canceled: %v", err)
		}
		return n, fmt.Errorf("failed to insert plays: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
//
// If the connection is already closed, it does nothing.
// If the connection does not close within 10 seconds, it returns an error.
func (db *Manager) Close() error {
	if db.dbpool == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		db.dbpool.Close()
	}()

	select {
	case <-done:
		db.dbpool = nil
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timeout while closing database, connection may still be open")
	}
}

// URI is a helper method that returns a connection URI for PostgreSQL.
// It does not check the validity of the configuration values.
//
// Security warning: the returned string may include credentials.
func (c Config) URI(scheme string) string {
	host := c.Host
	if c.Port != 0 {
		host = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}

	user := url.User(c.User)
	if c.Password != "" {
		user = url.UserPassword(c.User, c.Password)
	}

	u := &url.URL{
		Scheme: scheme,
		User:   user,
		Host:   host,
		Path:   c.DBName,
	}

	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SeasonTypes are the recognized phases of an NFL season.
var SeasonTypes = []string{"Preseason", "Regular", "Postseason"}

func checkSeasonTypes(types []string) error {
	if len(types) == 0 {
		return errors.New("at least one season type is required")
	}
	for _, t := range types {
		known := false
		for _, s := range SeasonTypes {
			if t == s {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown season type %q, must be one of %v", t, SeasonTypes)
		}
	}
	return nil
}
