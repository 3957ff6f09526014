package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// CursorPolicy controls what happens to the resume cursor when a batch
// exhausts its retries or fails fatally.
type CursorPolicy string

const (
	// PolicyAdvance moves the cursor past failed batches. Runtime stays
	// bounded; failures are only surfaced in the run summary.
	PolicyAdvance CursorPolicy = "advance"
	// PolicyBlock aborts the run on the first failed batch, leaving the
	// cursor at the last fully delivered prefix.
	PolicyBlock CursorPolicy = "block"
)

type Config struct {
	Braze    BrazeConfig
	Pipeline PipelineConfig
	LogLevel string
}

type BrazeConfig struct {
	APIKey      string
	APIURL      string
	AppGroupID  string
	MaxAttempts int
	HTTPTimeout time.Duration
}

type PipelineConfig struct {
	BatchSize    int
	MaxParallel  int
	TimeMargin   time.Duration
	CursorPolicy CursorPolicy
}

func Load() (*Config, error) {
	var missing []string

	get := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			missing = append(missing, key)
		}
		return val
	}

	config := &Config{
		Braze: BrazeConfig{
			APIKey:     get("BRAZE_API_KEY"),
			APIURL:     get("BRAZE_API_URL"),
			AppGroupID: os.Getenv("APP_GROUP_ID"),
		},
		LogLevel: os.Getenv("LOG_LEVEL"),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	var err error
	if config.Braze.MaxAttempts, err = getInt("MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if config.Braze.HTTPTimeout, err = getSeconds("HTTP_TIMEOUT_SECONDS", 30*time.Second); err != nil {
		return nil, err
	}
	if config.Pipeline.BatchSize, err = getInt("BATCH_SIZE", 75); err != nil {
		return nil, err
	}
	if config.Pipeline.MaxParallel, err = getInt("MAX_PARALLEL", 15); err != nil {
		return nil, err
	}
	if config.Pipeline.TimeMargin, err = getSeconds("TIME_MARGIN_SECONDS", 3*time.Minute); err != nil {
		return nil, err
	}

	policy := CursorPolicy(strings.ToLower(strings.TrimSpace(os.Getenv("CURSOR_POLICY"))))
	switch policy {
	case "":
		policy = PolicyAdvance
	case PolicyAdvance, PolicyBlock:
	default:
		return nil, fmt.Errorf("invalid CURSOR_POLICY %q: must be %q or %q", policy, PolicyAdvance, PolicyBlock)
	}
	config.Pipeline.CursorPolicy = policy

	return config, nil
}

// TrackURL returns the full user track endpoint URL
func (c *BrazeConfig) TrackURL() string {
	return strings.TrimRight(c.APIURL, "/") + "/users/track"
}

func getInt(key string, def int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, val)
	}
	return n, nil
}

func getSeconds(key string, def time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number of seconds", key, val)
	}
	return time.Duration(n) * time.Second, nil
}
