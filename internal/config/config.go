package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"groundwatch/internal/models"
)

const (
	defaultBaseURL         = "https://indiawris.gov.in/Dataset/Ground Water Level"
	defaultStateName       = "Maharashtra"
	defaultAgencyName      = "CGWB"
	defaultTableName       = "maharashtra_groundwater"
	defaultRefreshInterval = 30 * time.Minute
	defaultCycleTimeout    = 10 * time.Minute
	defaultFetchTimeout    = 30 * time.Second
	defaultFetchBackoff    = 500 * time.Millisecond
	defaultFetchDelay      = 500 * time.Millisecond
	defaultMaxRetries      = 3
	defaultBatchSize       = 100
	defaultPort            = 8080
)

// identPattern restricts the table name to a plain SQL identifier; the name
// is interpolated into statements, not bound as a parameter.
var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config holds runtime configuration for the groundwater service.
type Config struct {
	DatabaseURL string
	TableName   string

	BaseURL    string
	StateName  string
	AgencyName string

	// Fixed date window; when unset the window is yesterday..today at each
	// cycle start.
	StartDate *time.Time
	EndDate   *time.Time

	RefreshInterval time.Duration
	CycleTimeout    time.Duration
	FetchTimeout    time.Duration
	FetchMaxRetries int
	FetchBackoff    time.Duration
	FetchDelay      time.Duration
	WriteBatchSize  int

	DistrictLimit int
	DistrictsFile string

	Port        int
	BearerToken string
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BaseURL:         defaultBaseURL,
		StateName:       defaultStateName,
		AgencyName:      defaultAgencyName,
		TableName:       defaultTableName,
		RefreshInterval: defaultRefreshInterval,
		CycleTimeout:    defaultCycleTimeout,
		FetchTimeout:    defaultFetchTimeout,
		FetchMaxRetries: defaultMaxRetries,
		FetchBackoff:    defaultFetchBackoff,
		FetchDelay:      defaultFetchDelay,
		WriteBatchSize:  defaultBatchSize,
		Port:            defaultPort,
		LogLevel:        "info",
		LogFormat:       "json",
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if v := strings.TrimSpace(os.Getenv("GW_TABLE_NAME")); v != "" {
		cfg.TableName = v
	}
	if !identPattern.MatchString(cfg.TableName) {
		return cfg, fmt.Errorf("invalid GW_TABLE_NAME: %q", cfg.TableName)
	}

	if v := strings.TrimSpace(os.Getenv("WRIS_BASE_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("WRIS_STATE")); v != "" {
		cfg.StateName = v
	}
	if v := strings.TrimSpace(os.Getenv("WRIS_AGENCY")); v != "" {
		cfg.AgencyName = v
	}

	var err error
	if cfg.StartDate, err = parseDate("DATA_START_DATE"); err != nil {
		return cfg, err
	}
	if cfg.EndDate, err = parseDate("DATA_END_DATE"); err != nil {
		return cfg, err
	}
	if (cfg.StartDate == nil) != (cfg.EndDate == nil) {
		return cfg, errors.New("DATA_START_DATE and DATA_END_DATE must be set together")
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"REFRESH_INTERVAL", &cfg.RefreshInterval},
		{"CYCLE_TIMEOUT", &cfg.CycleTimeout},
		{"FETCH_TIMEOUT", &cfg.FetchTimeout},
		{"FETCH_BACKOFF", &cfg.FetchBackoff},
	}
	for _, d := range durations {
		if v := strings.TrimSpace(os.Getenv(d.env)); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil || parsed <= 0 {
				return cfg, fmt.Errorf("invalid %s: %q", d.env, v)
			}
			*d.dst = parsed
		}
	}

	// Zero is a valid delay (no pause between districts).
	if v := strings.TrimSpace(os.Getenv("FETCH_DELAY")); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed < 0 {
			return cfg, fmt.Errorf("invalid FETCH_DELAY: %q", v)
		}
		cfg.FetchDelay = parsed
	}

	ints := []struct {
		env     string
		dst     *int
		minimum int
	}{
		{"FETCH_MAX_RETRIES", &cfg.FetchMaxRetries, 0},
		{"WRITE_BATCH_SIZE", &cfg.WriteBatchSize, 1},
		{"DISTRICT_LIMIT", &cfg.DistrictLimit, 0},
		{"PORT", &cfg.Port, 1},
	}
	for _, i := range ints {
		if v := strings.TrimSpace(os.Getenv(i.env)); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < i.minimum {
				return cfg, fmt.Errorf("invalid %s: %q", i.env, v)
			}
			*i.dst = parsed
		}
	}

	cfg.DistrictsFile = strings.TrimSpace(os.Getenv("DISTRICTS_FILE"))
	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}

// Window returns the date range for a cycle starting at now. A fixed window
// from configuration wins; otherwise yesterday..today.
func (c Config) Window(now time.Time) models.DateWindow {
	if c.StartDate != nil && c.EndDate != nil {
		return models.DateWindow{Start: *c.StartDate, End: *c.EndDate}
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return models.DateWindow{Start: today.AddDate(0, 0, -1), End: today}
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func parseDate(env string) (*time.Time, error) {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q (want YYYY-MM-DD)", env, v)
	}
	return &t, nil
}
