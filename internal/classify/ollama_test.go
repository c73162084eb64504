package classify

import "testing"

func TestParseResultsBareArray(t *testing.T) {
	raw := `[{"domain": "github.com", "classification": "productive", "confidence": 0.95, "reason": "code hosting"}]`
	results, err := parseResults(raw)
	if err != nil {
		t.Fatalf("parseResults failed: %v", err)
	}
	if len(results) != 1 || results[0].Domain != "github.com" {
		t.Errorf("Unexpected results: %+v", results)
	}
	if results[0].Classification != "productive" || results[0].Confidence != 0.95 {
		t.Errorf("Fields lost: %+v", results[0])
	}
}

func TestParseResultsWrappedArray(t *testing.T) {
	raw := `{"classifications": [{"domain": "youtube.com", "classification": "distraction", "confidence": 0.8}]}`
	results, err := parseResults(raw)
	if err != nil {
		t.Fatalf("parseResults failed: %v", err)
	}
	if len(results) != 1 || results[0].Domain != "youtube.com" {
		t.Errorf("Unexpected results: %+v", results)
	}
}

func TestParseResultsGarbage(t *testing.T) {
	if _, err := parseResults("I think github.com is productive"); err == nil {
		t.Error("Expected error for prose response")
	}
}
