// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Settings holds all application configuration. AI provider credentials and
// feature flags live in the database (admin settings), not here.
type Settings struct {
	DBPath              string
	SearchCallsPerMin   int
	ChatHistoryMessages int
}

// New loads settings from environment variables.
// Returns an error if a variable contains an invalid value.
func New() (Settings, error) {
	dbPath := os.Getenv("SUBTRACK_DB_PATH")
	if dbPath == "" {
		dbPath = "subtrack.db"
	}

	searchCalls, err := getEnvInt("SUBTRACK_SEARCH_CALLS_PER_MIN", 10)
	if err != nil {
		return Settings{}, err
	}

	historyMessages, err := getEnvInt("SUBTRACK_CHAT_HISTORY_MESSAGES", 10)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		DBPath:              dbPath,
		SearchCallsPerMin:   searchCalls,
		ChatHistoryMessages: historyMessages,
	}, nil
}

// MustNew loads settings and panics on invalid values.
// Use this only when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}
