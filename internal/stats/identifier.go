package stats

import (
	"fmt"
	"sort"
	"strings"

	"spcflow/domain/report"
	"spcflow/internal/ingest"
)

// ProfileColumns computes the deterministic uniqueness analysis for every
// raw column: total values, valid (non-null/non-empty) values, and distinct
// value count. A column is a basic identifier candidate iff it is fully
// populated and fully unique across the row count.
func ProfileColumns(rows []ingest.Row) []report.ColumnProfile {
	total := len(rows)
	if total == 0 {
		return nil
	}

	type tally struct {
		valid  int
		unique map[string]struct{}
	}
	tallies := make(map[string]*tally)

	for _, row := range rows {
		for col, v := range row {
			t, ok := tallies[col]
			if !ok {
				t = &tally{unique: make(map[string]struct{})}
				tallies[col] = t
			}
			if v == nil {
				continue
			}
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s == "" {
				continue
			}
			t.valid++
			t.unique[s] = struct{}{}
		}
	}

	names := make([]string, 0, len(tallies))
	for name := range tallies {
		names = append(names, name)
	}
	sort.Strings(names)

	profiles := make([]report.ColumnProfile, 0, len(names))
	for _, name := range names {
		t := tallies[name]
		profiles = append(profiles, report.ColumnProfile{
			Column:           name,
			TotalValues:      total,
			ValidValues:      t.valid,
			UniqueValueCount: len(t.unique),
			IsBasicCandidate: t.valid == total && len(t.unique) == total,
		})
	}
	return profiles
}

// DetectIdentifiers assembles the identifier analysis from the column
// profiles and unions externally suggested candidates without re-validating
// them. Local candidates win on column-name collisions.
func DetectIdentifiers(profiles []report.ColumnProfile, external []report.IdentifierCandidate) report.IdentifierAnalysis {
	seen := make(map[string]bool)
	var candidates []report.IdentifierCandidate

	for _, p := range profiles {
		if p.IsBasicCandidate {
			candidates = append(candidates, report.IdentifierCandidate{
				Column: p.Column,
				Score:  1.0,
			})
			seen[p.Column] = true
		}
	}

	for _, c := range external {
		if seen[c.Column] {
			continue
		}
		c.External = true
		candidates = append(candidates, c)
		seen[c.Column] = true
	}

	return report.IdentifierAnalysis{
		Profiles:   profiles,
		Candidates: candidates,
	}
}
