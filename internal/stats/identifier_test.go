package stats

import (
	"testing"

	"spcflow/domain/report"
	"spcflow/internal/ingest"
)

func sampleRows() []ingest.Row {
	return []ingest.Row{
		{"id": "a1", "region": "north", "value": 10},
		{"id": "a2", "region": "north", "value": 20},
		{"id": "a3", "region": "south", "value": nil},
	}
}

func TestProfileColumns(t *testing.T) {
	profiles := ProfileColumns(sampleRows())
	byName := make(map[string]report.ColumnProfile)
	for _, p := range profiles {
		byName[p.Column] = p
	}

	id := byName["id"]
	if !id.IsBasicCandidate {
		t.Errorf("id should be a basic candidate: %+v", id)
	}
	if id.ValidValues != 3 || id.UniqueValueCount != 3 {
		t.Errorf("id counts wrong: %+v", id)
	}

	region := byName["region"]
	if region.IsBasicCandidate {
		t.Errorf("region is not unique, should not be a candidate: %+v", region)
	}
	if region.UniqueValueCount != 2 {
		t.Errorf("region unique count = %d, want 2", region.UniqueValueCount)
	}

	value := byName["value"]
	if value.ValidValues != 2 {
		t.Errorf("nil cell should not count as valid: %+v", value)
	}
	if value.IsBasicCandidate {
		t.Errorf("partially populated column cannot be a candidate: %+v", value)
	}
}

func TestDetectIdentifiersUnionsExternal(t *testing.T) {
	profiles := ProfileColumns(sampleRows())
	external := []report.IdentifierCandidate{
		{Column: "region", Confidence: "medium"},
		{Column: "id", Confidence: "high"}, // collides with local detection
	}

	analysis := DetectIdentifiers(profiles, external)

	if len(analysis.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", analysis.Candidates)
	}

	var local, ext report.IdentifierCandidate
	for _, c := range analysis.Candidates {
		if c.Column == "id" {
			local = c
		}
		if c.Column == "region" {
			ext = c
		}
	}

	// Local detection wins the collision: the id candidate keeps its score
	// and stays non-external.
	if local.External || local.Score != 1.0 {
		t.Errorf("local candidate overwritten by external suggestion: %+v", local)
	}
	if !ext.External || ext.Confidence != "medium" {
		t.Errorf("external candidate not carried through: %+v", ext)
	}
}

func TestDetectIdentifiersNoSuggestions(t *testing.T) {
	analysis := DetectIdentifiers(ProfileColumns(sampleRows()), nil)
	if len(analysis.Candidates) != 1 || analysis.Candidates[0].Column != "id" {
		t.Fatalf("expected only the id candidate, got %+v", analysis.Candidates)
	}
	if len(analysis.Profiles) != 3 {
		t.Fatalf("profiles should cover every column, got %d", len(analysis.Profiles))
	}
}
