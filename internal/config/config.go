// Package config loads server and viewer configuration from an
// optional YAML file with environment-variable overrides.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env    string       `yaml:"env" env:"SSB_ENV" env-default:"local"`
	HTTP   HTTPConfig   `yaml:"http"`
	Data   DataConfig   `yaml:"data"`
	Kick   KickConfig   `yaml:"kick"`
	Viewer ViewerConfig `yaml:"viewer"`
}

type HTTPConfig struct {
	Address string `yaml:"address" env:"SSB_HTTP_ADDRESS" env-default:":8080"`
}

type DataConfig struct {
	Dir string `yaml:"dir" env:"SSB_DATA_DIR" env-default:"data"`
}

type KickConfig struct {
	BaseURLV2 string `yaml:"base_url_v2" env:"SSB_KICK_V2" env-default:"https://kick.com/api/v2/channels"`
	BaseURLV1 string `yaml:"base_url_v1" env:"SSB_KICK_V1" env-default:"https://kick.com/api/v1/channels"`
}

type ViewerConfig struct {
	// Roster is the fixed set of channel slugs shown on the dashboard.
	Roster     []string `yaml:"roster" env:"SSB_ROSTER" env-separator:","`
	SuperAdmin string   `yaml:"super_admin" env:"SSB_SUPER_ADMIN" env-default:"reese"`

	HypePollSeconds   int `yaml:"hype_poll_seconds" env-default:"1"`
	BetPollSeconds    int `yaml:"bet_poll_seconds" env-default:"1"`
	AdminPollSeconds  int `yaml:"admin_poll_seconds" env-default:"2"`
	RosterPollSeconds int `yaml:"roster_poll_seconds" env-default:"60"`
}

func (v ViewerConfig) HypePoll() time.Duration {
	return time.Duration(v.HypePollSeconds) * time.Second
}

func (v ViewerConfig) BetPoll() time.Duration {
	return time.Duration(v.BetPollSeconds) * time.Second
}

func (v ViewerConfig) AdminPoll() time.Duration {
	return time.Duration(v.AdminPollSeconds) * time.Second
}

func (v ViewerConfig) RosterPoll() time.Duration {
	return time.Duration(v.RosterPollSeconds) * time.Second
}

// defaultRoster matches the channels the dashboard shipped with.
var defaultRoster = []string{
	"adinross",
	"cheesur",
	"iziprime",
	"cuffem",
	"shnaggyhose",
	"konvy",
	"markynextdoor",
	"sweatergxd",
}

// MustLoad reads the config path from -config or SSB_CONFIG_PATH and
// panics on any load failure. A missing path yields pure defaults.
func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		return Default()
	}
	return MustLoadPath(path)
}

func MustLoadPath(path string) *Config {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config file does not exist: " + path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}
	cfg.setDefaults()
	return &cfg
}

// Default returns the configuration with no file present, still
// honoring environment overrides.
func Default() *Config {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		panic("cannot read env config: " + err.Error())
	}
	cfg.setDefaults()
	return &cfg
}

func fetchConfigPath() string {
	var res string
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()
	if res == "" {
		res = os.Getenv("SSB_CONFIG_PATH")
	}
	return res
}

func (c *Config) setDefaults() {
	if len(c.Viewer.Roster) == 0 {
		c.Viewer.Roster = append([]string(nil), defaultRoster...)
	}
}
