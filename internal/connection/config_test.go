package connection

import (
	"testing"
	"time"

	"github.com/aanand-mishra/school-api/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Run("complete firestore config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("complete sqlite config", func(t *testing.T) {
		cfg := Config{Driver: DriverSQLite, SQLitePath: "school.db"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Driver = "postgres"

		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindConfiguration))
		assert.Contains(t, err.Error(), "postgres")
	})

	t.Run("message lists every missing name", func(t *testing.T) {
		cfg := validConfig()
		cfg.ClientEmail = ""
		cfg.DatabaseURL = ""

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "FIREBASE_CLIENT_EMAIL, FIREBASE_DATABASE_URL")
	})
}

func TestConfigNormalize(t *testing.T) {
	cfg := Config{PrivateKey: `line1\nline2\n`}
	got := cfg.Normalize()

	assert.Equal(t, "line1\nline2\n", got.PrivateKey)
	assert.Equal(t, DriverFirestore, got.Driver)
	assert.Equal(t, `line1\nline2\n`, cfg.PrivateKey, "the receiver is not modified")

	// Keys that already hold real line breaks pass through unchanged.
	already := Config{PrivateKey: "a\nb"}
	assert.Equal(t, "a\nb", already.Normalize().PrivateKey)
}

func TestRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 4, p.Attempts())
	assert.Equal(t, []time.Duration{
		2000 * time.Millisecond,
		3000 * time.Millisecond,
		4500 * time.Millisecond,
	}, p.Delays())

	p.MaxDelay = 3 * time.Second
	assert.Equal(t, []time.Duration{2 * time.Second, 3 * time.Second, 3 * time.Second}, p.Delays())

	p.MaxRetries = 0
	assert.Equal(t, 1, p.Attempts())
	assert.Empty(t, p.Delays())
}
