package plays

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// LoadINIConfig reads database connection settings from a legacy nfldb-style
// config.ini file. Settings live in the [pgsql] section; missing keys keep
// their zero values so flags and environment variables can fill them in.
func LoadINIConfig(path string) (Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read database config file: %w", err)
	}

	sec := f.Section("pgsql")
	cfg := Config{
		Host:     sec.Key("host").String(),
		User:     sec.Key("user").String(),
		Password: sec.Key("password").String(),
		DBName:   sec.Key("database").String(),
		SSLMode:  sec.Key("sslmode").String(),
	}
	if sec.HasKey("port") {
		port, err := sec.Key("port").Int()
		if err != nil {
			return Config{}, fmt.Errorf("invalid port in database config file: %w", err)
		}
		cfg.Port = port
	}
	return cfg, nil
}
