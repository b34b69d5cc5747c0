package connection

import (
	"strings"

	"github.com/aanand-mishra/school-api/internal/apperr"
)

// Driver names the backend a Config opens.
type Driver string

const (
	DriverFirestore Driver = "firestore"
	DriverSQLite    Driver = "sqlite"
)

// Config holds the settings needed to open a document store handle.
type Config struct {
	Driver Driver

	ProjectID     string
	PrivateKey    string
	ClientEmail   string
	DatabaseURL   string
	StorageBucket string
	EmulatorHost  string

	// SQLitePath is only used by DriverSQLite.
	SQLitePath string
}

type setting struct {
	name  string
	value string
}

// required lists the settings the configured driver cannot do without,
// named after the environment variables that supply them.
func (c Config) required() []setting {
	if c.Driver == DriverSQLite {
		return []setting{{"STORAGE_PATH", c.SQLitePath}}
	}
	return []setting{
		{"FIREBASE_PROJECT_ID", c.ProjectID},
		{"FIREBASE_PRIVATE_KEY", c.PrivateKey},
		{"FIREBASE_CLIENT_EMAIL", c.ClientEmail},
		{"FIREBASE_DATABASE_URL", c.DatabaseURL},
		{"FIREBASE_STORAGE_BUCKET", c.StorageBucket},
	}
}

// Validate returns a configuration error naming every missing setting, or
// nil. Whitespace-only values count as missing.
func (c Config) Validate() error {
	switch c.Driver {
	case "", DriverFirestore, DriverSQLite:
	default:
		return &apperr.Error{
			Kind:    apperr.KindConfiguration,
			Message: "unknown storage driver: " + string(c.Driver),
		}
	}

	var missing []string
	for _, s := range c.required() {
		if strings.TrimSpace(s.value) == "" {
			missing = append(missing, s.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Configuration(missing)
	}
	return nil
}

// Normalize returns a copy of c with escaped line breaks in the private key
// turned into real ones. Secrets passed through env files or CI variables
// often arrive as a single line with literal "\n" sequences.
func (c Config) Normalize() Config {
	c.PrivateKey = strings.ReplaceAll(c.PrivateKey, `\n`, "\n")
	if c.Driver == "" {
		c.Driver = DriverFirestore
	}
	return c
}
