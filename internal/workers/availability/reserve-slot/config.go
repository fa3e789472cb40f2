package reserveslot

import "time"

type Config struct {
	Timeout                  time.Duration
	DefaultTravelTimeMinutes int
	DefaultBufferTimeMinutes int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:                  10 * time.Second,
		DefaultTravelTimeMinutes: 30,
		DefaultBufferTimeMinutes: 60,
	}
}
