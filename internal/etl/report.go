package etl

import (
	"strconv"
	"time"

	"github.com/pgEdge/pgedge-econ/internal/db"
	"github.com/pgEdge/pgedge-econ/internal/logging"
	"github.com/pgEdge/pgedge-econ/pkg/version"
)

// FamilyStats is the outcome of loading one family.
type FamilyStats struct {
	Name  string
	Table string
	Files []string

	// Rows counts input rows read; Loaded counts rows written, which for
	// series families includes the derived yearly averages.
	Rows    int
	Loaded  int
	Skipped int

	// Missing is set when a source file was absent and the family was
	// not attempted.
	Missing bool

	Err      error
	Duration time.Duration
}

// Status returns "ok", "missing" or "failed".
func (s *FamilyStats) Status() string {
	switch {
	case s.Err != nil:
		return "failed"
	case s.Missing:
		return "missing"
	default:
		return "ok"
	}
}

// Report summarizes a load.
type Report struct {
	Started    time.Time
	Duration   time.Duration
	ReloadMode string
	Families   []*FamilyStats
}

// Family returns the stats of the named family, or nil.
func (r *Report) Family(name string) *FamilyStats {
	for _, f := range r.Families {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Failed returns the families that were rolled back.
func (r *Report) Failed() []*FamilyStats {
	var failed []*FamilyStats
	for _, f := range r.Families {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Totals sums rows, loaded and skipped over all families.
func (r *Report) Totals() (rows, loaded, skipped int) {
	for _, f := range r.Families {
		rows += f.Rows
		loaded += f.Loaded
		skipped += f.Skipped
	}
	return rows, loaded, skipped
}

// Metadata flattens the report into econ_metadata entries.
func (r *Report) Metadata() map[string]string {
	m := map[string]string{
		db.MetaLoadedAt:    r.Started.UTC().Format(time.RFC3339),
		db.MetaToolVersion: version.Short(),
		"reload_mode":      r.ReloadMode,
	}
	for _, f := range r.Families {
		m["load."+f.Name+".status"] = f.Status()
		m["load."+f.Name+".loaded"] = strconv.Itoa(f.Loaded)
		m["load."+f.Name+".skipped"] = strconv.Itoa(f.Skipped)
	}
	return m
}

// Log writes a final summary.
func (r *Report) Log() {
	rows, loaded, skipped := r.Totals()
	logging.Info().
		Dur("duration", r.Duration).
		Int("families", len(r.Families)).
		Int("failed", len(r.Failed())).
		Int("rows", rows).
		Int("loaded", loaded).
		Int("skipped", skipped).
		Msg("Final summary")

	logging.Info().Msg("Per-family statistics:")
	for _, f := range r.Families {
		event := logging.Info()
		if f.Err != nil {
			event = logging.Error().Err(f.Err)
		}
		event.
			Str("family", f.Name).
			Str("status", f.Status()).
			Int("rows", f.Rows).
			Int("loaded", f.Loaded).
			Int("skipped", f.Skipped).
			Dur("duration", f.Duration).
			Msg("")
	}
}
