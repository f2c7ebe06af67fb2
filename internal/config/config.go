package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "FRIDGEBENCH"
	DefaultLogLevel  = "info"
	defaultEnvFile   = ".env"
	configName       = "fridgebench"
)

type Config struct {
	LogLevel    string        `mapstructure:"log_level"`
	Listen      string        `mapstructure:"listen"`
	HTTPLog     bool          `mapstructure:"http_log"`
	StorageDir  string        `mapstructure:"storage_dir"`
	StopTimeout time.Duration `mapstructure:"stop_timeout"`
	// Intervals is the allowed set of sample intervals in seconds.
	Intervals []int `mapstructure:"intervals"`
	// PercentBasis is "matched" or "top", see efficiency.PercentBasis.
	PercentBasis string `mapstructure:"percent_basis"`
	PIDFile      string `mapstructure:"pid_file"`

	Recorder RecorderConfig  `mapstructure:"recorder"`
	Meter    MeterConfig     `mapstructure:"meter"`
	Archive  ArchiveConfig   `mapstructure:"archive"`
	MQTT     MQTTConfig      `mapstructure:"mqtt"`
	Stations []StationConfig `mapstructure:"stations"`

	ShowVersion bool `mapstructure:"-"`
}

type RecorderConfig struct {
	Address      string        `mapstructure:"address"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	Settle       time.Duration `mapstructure:"settle"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
}

type MeterConfig struct {
	// BaseHost is advanced by the station id to get each meter's address.
	BaseHost    string        `mapstructure:"base_host"`
	Port        int           `mapstructure:"port"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	IOTimeout   time.Duration `mapstructure:"io_timeout"`
}

type ArchiveConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DBPath       string        `mapstructure:"db_path"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxBuffered  int           `mapstructure:"max_buffered"`
}

type MQTTConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	ClientID  string        `mapstructure:"client_id"`
	BaseTopic string        `mapstructure:"base_topic"`
	QoS       int           `mapstructure:"qos"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// StationConfig overrides the lab default of one station. Zero values keep the default.
type StationConfig struct {
	ID         int               `mapstructure:"id"`
	Channels   string            `mapstructure:"channels"`
	Aliases    map[string]string `mapstructure:"aliases"`
	Interval   int               `mapstructure:"interval"`
	StorageDir string            `mapstructure:"storage_dir"`
	Model      string            `mapstructure:"model"`
	MeterHost  string            `mapstructure:"meter_host"`
	MeterPort  int               `mapstructure:"meter_port"`
	Enclosure  EnclosureConfig   `mapstructure:"enclosure"`
}

type EnclosureConfig struct {
	FreezerVolume float64  `mapstructure:"freezer_volume"`
	FridgeVolume  float64  `mapstructure:"fridge_volume"`
	Fan           bool     `mapstructure:"fan"`
	FreezerTemp   *float64 `mapstructure:"freezer_temp"`
	FridgeTemp    *float64 `mapstructure:"fridge_temp"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("listen", ":8080")
	v.SetDefault("http_log", false)
	v.SetDefault("storage_dir", "/var/lib/fridgebench/data")
	v.SetDefault("stop_timeout", "5s")
	v.SetDefault("intervals", []int{10, 60, 180, 300})
	v.SetDefault("percent_basis", "matched")
	v.SetDefault("pid_file", "/run/fridgebench.pid")

	v.SetDefault("recorder.address", "192.168.1.1:34434")
	v.SetDefault("recorder.poll_interval", "2s")
	v.SetDefault("recorder.dial_timeout", "3s")
	v.SetDefault("recorder.settle", "500ms")
	v.SetDefault("recorder.read_timeout", "2s")

	v.SetDefault("meter.base_host", "192.168.1.1")
	v.SetDefault("meter.port", 3300)
	v.SetDefault("meter.dial_timeout", "3s")
	v.SetDefault("meter.io_timeout", "2s")

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.db_path", "/var/lib/fridgebench/archive.db")
	v.SetDefault("archive.batch_size", 20)
	v.SetDefault("archive.batch_timeout", "30s")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.base_topic", "fridgebench")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("mqtt.timeout", "5s")
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.String("config", "", "Path to the configuration file")
	fs.String("log-level", "", "Log level (debug, info, warning, error)")
	fs.String("listen", "", "HTTP listen address")
	fs.String("storage-dir", "", "Directory of the per-run data files")
	fs.String("recorder", "", "Temperature recorder address (host:port)")
	fs.String("pid-file", "", "PID file path")
	fs.Bool("archive", false, "Enable the sqlite sample archive")
	fs.Bool("version", false, "Print version information and exit")
	return fs
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"log-level":   "log_level",
	"listen":      "listen",
	"storage-dir": "storage_dir",
	"recorder":    "recorder.address",
	"pid-file":    "pid_file",
	"archive":     "archive.enabled",
}

// Load reads defaults, the config file, the environment (after the dotenv file) and the
// command line, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{
		envPrefix: DefaultEnvPrefix,
		envFile:   defaultEnvFile,
		args:      os.Args[1:],
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err).WithData(o.envFile)
	}

	fs := newFlagSet()
	if err := fs.Parse(o.args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err).WithData(name)
		}
	}

	path := o.configPath
	if f := fs.Lookup("config"); f.Changed {
		path = f.Value.String()
	}
	if path == "" {
		path = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath("/etc/fridgebench")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}
	cfg.ShowVersion, _ = fs.GetBool("version")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by the component configs.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() && strings.ToLower(c.LogLevel) != "warn" {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.StopTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "stop_timeout must be positive")
	}
	if len(c.Intervals) == 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, "intervals must not be empty")
	}
	for _, s := range c.Intervals {
		if s <= 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, s)
		}
	}
	switch c.PercentBasis {
	case "matched", "top":
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, "percent_basis must be matched or top")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errFactory.WithData(errors.ErrInvalidConfig, "mqtt.qos must be 0, 1 or 2")
	}
	return nil
}
