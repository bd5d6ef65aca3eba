package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/copycatwire/internal/logging"
)

// InitLogger installs cfg as the process logger tagged with app and
// returns it.
func InitLogger(app string, cfg logging.Config) zerolog.Logger {
	logger := logging.New(cfg).With().Str("app", app).Logger()
	logging.ConfigureWith(cfg)
	log.Logger = logger
	return logger
}
