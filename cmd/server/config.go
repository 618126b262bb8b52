package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/willemschots/ecocredit/internal/auth"
	"github.com/willemschots/ecocredit/internal/web"
	"golang.org/x/time/rate"
)

// envFileKey names an optional .env file. Variables that are already set
// in the environment take precedence over the ones in the file.
const envFileKey = "ENV_FILE"

// httpConfig is the configuration for the HTTP server.
type httpConfig struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	server          web.ServerConfig
}

type dbConfig struct {
	file    string
	migrate bool
}

// config is the configuration for the server command.
type config struct {
	http httpConfig
	db   dbConfig
	auth auth.ServiceConfig
}

// defaultConfig returns a config with sane default values.
func defaultConfig() config {
	return config{
		http: httpConfig{
			addr:            ":8888",
			readTimeout:     time.Second * 5,
			writeTimeout:    time.Second * 10,
			idleTimeout:     time.Second * 120,
			shutdownTimeout: time.Second * 15,
			server: web.ServerConfig{
				PingMessage:   "ping",
				AuthRateLimit: rate.Limit(10),
				AuthRateBurst: 20,
			},
		},
		db: dbConfig{
			file:    "ecocredit.db",
			migrate: true,
		},
		auth: auth.ServiceConfig{
			SessionExpiry: 7 * 24 * time.Hour,
		},
	}
}

// envMap maps environment variable names to fields in the config struct.
var envMap = map[string]func(v string, c *config) error{
	"HTTP_ADDR": func(v string, c *config) error {
		c.http.addr = v
		return nil
	},
	"HTTP_READ_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.readTimeout, 0, math.MaxInt64)
	},
	"HTTP_WRITE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.writeTimeout, 0, math.MaxInt64)
	},
	"HTTP_IDLE_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.idleTimeout, 0, math.MaxInt64)
	},
	"HTTP_SHUTDOWN_TIMEOUT": func(v string, c *config) error {
		return confDuration(v, &c.http.shutdownTimeout, 0, math.MaxInt64)
	},
	"HTTP_AUTH_RATE_LIMIT": func(v string, c *config) error {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}

		if limit <= 0 || math.IsInf(limit, 0) || math.IsNaN(limit) {
			return fmt.Errorf("rate limit %s must be a positive number", v)
		}

		c.http.server.AuthRateLimit = rate.Limit(limit)
		return nil
	},
	"HTTP_AUTH_RATE_BURST": func(v string, c *config) error {
		return confInt(v, &c.http.server.AuthRateBurst, 1, math.MaxInt32)
	},
	"PING_MESSAGE": func(v string, c *config) error {
		c.http.server.PingMessage = v
		return nil
	},
	"DB_FILENAME": func(v string, c *config) error {
		if v == "" {
			return errors.New("filename can't be empty")
		}
		c.db.file = v
		return nil
	},
	"DB_MIGRATE": func(v string, c *config) error {
		migrate, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.db.migrate = migrate
		return nil
	},
	"AUTH_SESSION_EXPIRY": func(v string, c *config) error {
		return confDuration(v, &c.auth.SessionExpiry, time.Minute, 365*24*time.Hour)
	},
}

// configFromEnv returns a config with values from the environment. It falls
// back to default values for any missing environment variables.
//
// It does a best effort to validate provided values, so that mistakes are
// caught ASAP. However, there is no guarantee that the returned config
// is valid and will work.
func configFromEnv() (config, error) {
	c := defaultConfig()

	lookup, err := envLookup()
	if err != nil {
		return c, err
	}

	var errs []error
	for key, mf := range envMap {
		if val, ok := lookup(key); ok {
			if err := mf(val, &c); err != nil {
				errs = append(errs, fmt.Errorf("invalid env variable %s: %w", key, err))
			}
		}
	}

	return c, errors.Join(errs...)
}

// envLookup returns a function that looks up keys in the environment
// first and in the file named by ENV_FILE second.
func envLookup() (func(string) (string, bool), error) {
	file, ok := os.LookupEnv(envFileKey)
	if !ok || file == "" {
		return os.LookupEnv, nil
	}

	fileEnv, err := godotenv.Read(file)
	if err != nil {
		return nil, fmt.Errorf("invalid env variable %s: %w", envFileKey, err)
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}, nil
}

// confDuration attempts to parse v into tgt and checks if the result is in
// the provided range (inclusive).
func confDuration(v string, tgt *time.Duration, min, max time.Duration) error {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return err
	}

	if dur < min || dur > max {
		return fmt.Errorf("duration %s not in range [%s, %s] (inclusive)", dur, min, max)
	}

	*tgt = dur

	return nil
}

func confInt(v string, tgt *int, min, max int) error {
	i, err := strconv.Atoi(v)
	if err != nil {
		return err
	}

	if i < min || i > max {
		return fmt.Errorf("%d not in range [%d, %d] (inclusive)", i, min, max)
	}

	*tgt = i

	return nil
}
