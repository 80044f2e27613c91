package env

import (
	"time"

	"github.com/collate-cloud/collate/pkg/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

var variables = new(Environment)

// Process the environment variables set for collate.
func Process() error {
	if err := envconfig.Process("collate", variables); err != nil {
		return errors.Wrap(err, "failed to process environment variables")
	}

	// set the log level
	if err := log.SetLevel(variables.LogLevel); err != nil {
		return errors.Wrap(err, "failed to set log level")
	}

	return nil
}

// Variables returns the processed environment variables.
func Variables() Environment {
	return *variables
}

// Environment defines the environment variables used by collate.
type Environment struct {
	LogLevel      string        `default:"info"`
	Port          int           `default:"8080"`
	DatabaseType  string        `default:"postgres"`
	DatabaseDSN   string        `default:"host=postgres user=postgres password=postgres dbname=collate port=5432 sslmode=disable"`
	MediaRoot     string        `default:"/var/lib/collate/media"`
	SiteName      string        `default:"Reporter"`
	Production    bool          `default:"false"`
	JobTimeLimit  time.Duration `default:"24h"`
	JobPoolSize   int           `default:"4"`
	SweepSchedule string        `default:"0 */10 * * * *"`
	SMTPHost      string        `default:"localhost"`
	SMTPPort      int           `default:"25"`
	MailFrom      string        `default:"reporter@localhost"`
	BasicAuthUser string        `default:""`
	BasicAuthPass string        `default:""`
}
