package app

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
)

const EnvPrefix = "REDIS_"

var (
	ErrInvalidReplicaOf = errors.New("invalid replicaof")
	ErrInvalidPort      = errors.New("port must be between 1 and 65535")
)

// Config holds application config
type Config struct {
	Debug     bool          `koanf:"debug"`
	Port      uint16        `koanf:"port"`
	ReplicaOf string        `koanf:"replicaof"`
	RateLimit int           `koanf:"ratelimit"`
	Metrics   MetricsConfig `koanf:"metrics"`
}

type MetricsConfig struct {
	// Address the /metrics endpoint listens on, empty disables it.
	Address string `koanf:"address"`
}

// ReplicaOf is the master a replica connects to at startup.
type ReplicaOf struct {
	MasterHost string
	MasterPort uint16
}

func (c Config) String() string {
	builder := new(strings.Builder)
	fmt.Fprintf(builder, "Debug: %v\n", c.Debug)
	fmt.Fprintf(builder, "Port: %v\n", c.Port)
	fmt.Fprintf(builder, "Replica Of: %v\n", c.ReplicaOf)
	fmt.Fprintf(builder, "Rate Limit: %v\n", c.RateLimit)
	fmt.Fprintf(builder, "Metrics Address: %v\n", c.Metrics.Address)
	return builder.String()
}

// Replica returns the parsed replicaof setting, nil when the server is a
// master.
func (c Config) Replica() (*ReplicaOf, error) {
	if strings.TrimSpace(c.ReplicaOf) == "" {
		return nil, nil
	}
	return ParseReplicaOf(c.ReplicaOf)
}

// ParseReplicaOf accepts "host port" as redis-server does, and "host:port".
func ParseReplicaOf(s string) (*ReplicaOf, error) {
	var host, port string
	fields := strings.Fields(s)
	switch len(fields) {
	case 2:
		host, port = fields[0], fields[1]
	case 1:
		var err error
		host, port, err = net.SplitHostPort(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidReplicaOf, s, err)
		}
	default:
		return nil, fmt.Errorf("%w %q: expected \"host port\"", ErrInvalidReplicaOf, s)
	}
	if host == "" {
		return nil, fmt.Errorf("%w %q: empty host", ErrInvalidReplicaOf, s)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return nil, fmt.Errorf("%w %q: bad port %q", ErrInvalidReplicaOf, s, port)
	}
	return &ReplicaOf{MasterHost: host, MasterPort: uint16(p)}, nil
}

func defaults() map[string]any {
	return map[string]any{
		"debug":           false,
		"port":            6379,
		"replicaof":       "",
		"ratelimit":       0,
		"metrics.address": "",
	}
}

// Flags are the process flags. Environment variables are not bound here; the
// loader reads them so a YAML file can sit between the two.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML config file",
		},
		&cli.UintFlag{
			Name:  "port",
			Usage: "port that redis will listen on",
			Value: 6379,
		},
		&cli.StringFlag{
			Name:  "replicaof",
			Usage: `master to replicate from, "host port"`,
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug log",
		},
		&cli.StringFlag{
			Name:  "metrics-address",
			Usage: "address to serve prometheus metrics on, e.g. :9121",
		},
		&cli.IntFlag{
			Name:  "ratelimit",
			Usage: "commands per second allowed on each connection, 0 disables",
		},
	}
}

// flagKeys maps a flag name to its config key.
var flagKeys = map[string]string{
	"port":            "port",
	"replicaof":       "replicaof",
	"debug":           "debug",
	"metrics-address": "metrics.address",
	"ratelimit":       "ratelimit",
}

// LoadConfig layers defaults, the YAML file named by --config, REDIS_*
// environment variables and explicitly set flags, later sources winning.
func LoadConfig(c *cli.Context) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := c.String("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// REDIS_METRICS_ADDRESS -> metrics.address
	transform := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	flags := make(map[string]any)
	for name, key := range flagKeys {
		if c.IsSet(name) {
			flags[key] = c.Value(name)
		}
	}
	if err := k.Load(mapProvider(flags), nil); err != nil {
		return Config{}, fmt.Errorf("load flags: %w", err)
	}

	// Checked before Unmarshal, which would silently narrow it to uint16.
	if port := k.Int64("port"); port < 1 || port > math.MaxUint16 {
		return Config{}, fmt.Errorf("%w: %q", ErrInvalidPort, k.String("port"))
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) validate() error {
	if c.RateLimit < 0 {
		return fmt.Errorf("ratelimit must not be negative, got %d", c.RateLimit)
	}
	_, err := c.Replica()
	return err
}

var errReadBytesNotSupported = errors.New("map provider does not support ReadBytes")

// mapProvider feeds an in-memory map to koanf. Keys may be dotted.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
