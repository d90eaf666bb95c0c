package internal

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config is loaded from the environment (see .env for local defaults).
// RedisURL is optional: when empty, binaries fall back to the in-memory
// cache. CharReplacement stays a string because env parsing treats rune
// fields as integers; convert with CharacterRune.
type Config struct {
	BadgerFilepath  string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath   string `env:"BLUGE_FILEPATH,required=true"`
	RedisURL        string `env:"REDIS_URL"`
	LogLevel        string `env:"LOG_LEVEL,required=true"`
	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CENSOR_CHARACTER_REPLACEMENT,default=*"`
	LimitMessages   *int   `env:"LIMIT_MESSAGES"`
}

// CharacterRune converts the replacement setting to a rune, rejecting
// anything but a single character.
func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CENSOR_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// Words splits the comma-separated censored word list, dropping blanks.
func (c Config) Words() []string {
	var words []string
	for _, w := range strings.Split(c.CensoredWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
