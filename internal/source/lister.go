// Package source finds the statement files that are due for delivery.
package source

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aristath/extrato-relay/internal/domain"
	"github.com/rs/zerolog"
)

// DateTokenLayout is the DDMMYY token embedded in statement file names.
const DateTokenLayout = "020106"

// Config configures a Lister.
type Config struct {
	Dir          string
	Marker       string
	LookbackDays int
	Location     *time.Location
}

// Lister selects statement files from a single directory.
type Lister struct {
	dir      string
	marker   string
	lookback int
	loc      *time.Location
	log      zerolog.Logger
}

// NewLister creates a Lister. A nil location means UTC.
func NewLister(cfg Config, log zerolog.Logger) *Lister {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Lister{
		dir:      cfg.Dir,
		marker:   cfg.Marker,
		lookback: cfg.LookbackDays,
		loc:      loc,
		log:      log.With().Str("component", "lister").Logger(),
	}
}

// Dir returns the directory being listed.
func (l *Lister) Dir() string {
	return l.dir
}

// Tokens returns the date tokens accepted at now: today's, then the one
// LookbackDays earlier when lookback is enabled.
func (l *Lister) Tokens(now time.Time) []string {
	local := now.In(l.loc)
	tokens := []string{local.Format(DateTokenLayout)}
	if l.lookback > 0 {
		tokens = append(tokens, local.AddDate(0, 0, -l.lookback).Format(DateTokenLayout))
	}
	return tokens
}

// List returns the names of regular files carrying the marker and one of the
// accepted date tokens, in directory order.
func (l *Lister) List(now time.Time) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, &domain.DirectoryAccessError{Dir: l.dir, Err: err}
	}

	tokens := l.Tokens(now)
	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !strings.Contains(name, l.marker) || !containsAny(name, tokens) {
			continue
		}
		names = append(names, name)
	}

	l.log.Debug().
		Strs("tokens", tokens).
		Int("entries", len(entries)).
		Int("selected", len(names)).
		Msg("Listed source directory")

	return names, nil
}

// Read returns the raw content of a listed file.
func (l *Lister) Read(name string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		return nil, &domain.MalformedFileError{Filename: name, Reason: "unreadable", Err: err}
	}
	return content, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
