package pointsengine

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pillarday/pointsengine/pointsengine/classifier"
	"github.com/pillarday/pointsengine/pointsengine/database"
	"github.com/pillarday/pointsengine/pointsengine/logger"
	"github.com/pillarday/pointsengine/pointsengine/trigger"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log        LogConfig         `toml:"log"`
	DB         database.DBConfig `toml:"db"`
	Feed       trigger.Config    `toml:"feed"`
	Classifier classifier.Config `toml:"classifier"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// Handler builds the slog handler the config asks for: the colorized
// console handler by default, plain JSON for log collectors.
func (c LogConfig) Handler() slog.Handler {
	if c.Format == "json" {
		return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     c.Level,
			AddSource: c.AddSource,
		})
	}
	return logger.NewHandler(c.Level)
}
