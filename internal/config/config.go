package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Config struct {
	Card      string        `envconfig:"HWEXER_CARD" default:"/dev/dri/card0"`
	PWMDevice string        `envconfig:"HWEXER_PWM_DEVICE" default:"/dev/pwm0"`
	DMADevice string        `envconfig:"HWEXER_DMA_DEVICE" default:"/dev/dma_sink"`
	GPIOChip  string        `envconfig:"HWEXER_GPIO_CHIP" default:"gpiochip0"`
	GPIOLine  int           `envconfig:"HWEXER_GPIO_LINE" default:"-1"` // -1 disables the signal line
	Hold      time.Duration `envconfig:"HWEXER_HOLD" default:"5s"`      // how long the test pattern stays on screen
	Format    string        `envconfig:"HWEXER_FORMAT" default:"RGB888"`
	History   string        `envconfig:"HWEXER_HISTORY" default:""`
	LogLevel  string        `envconfig:"HWEXER_LOG_LEVEL" default:"info"`
	Watch     string        `envconfig:"HWEXER_WATCH" default:"/dev"`
}

// Load reads the configuration from the environment, after loading an
// optional .env file from the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GPIOEnabled reports whether a signal line is configured.
func (c Config) GPIOEnabled() bool { return c.GPIOLine >= 0 }

// Level parses LogLevel.
func (c Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel, errors.Wrapf(err, "HWEXER_LOG_LEVEL")
	}
	if lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}
	return lvl, nil
}
