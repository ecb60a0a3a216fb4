package config

import "time"

// Config is the whole server configuration tree, parsed by ardanlabs/conf
// from flags and STORECART_* environment variables.
type Config struct {
	Web  Web
	DB   DB
	Auth Auth
	Rate Rate
	Cors Cors
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:3000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User         string `conf:"default:postgres"`
	Password     string `conf:"default:postgres,mask"`
	Host         string `conf:"default:localhost"`
	Name         string `conf:"default:storecart"`
	MaxIdleConns int    `conf:"default:2"`
	MaxOpenConns int    `conf:"default:0"`
	DisableTLS   bool   `conf:"default:true"`
}

// Auth lists static bearer tokens as token:user or token:user:ADMIN entries,
// comma separated. A real deployment swaps this for the auth service's
// verifier; see api/middleware.TokenVerifier.
type Auth struct {
	Tokens string `conf:"mask"`
}

// Rate configures the per-client limiter: requests per second, burst size,
// and idle expiry in minutes.
type Rate struct {
	RPS    float64 `conf:"default:20"`
	Burst  int     `conf:"default:40"`
	Expiry int     `conf:"default:10"`
}

type Cors struct {
	Origin string
}
