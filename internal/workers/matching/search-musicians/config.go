package searchmusicians

import "time"

type Config struct {
	Timeout time.Duration
	// MaxResults caps the candidates written back to the process; 0 keeps them all.
	MaxResults int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    60 * time.Second,
		MaxResults: 20,
	}
}
