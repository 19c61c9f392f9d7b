package types

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{name: "basic", input: "basic", want: ModeBasic},
		{name: "scored_interpreted", input: "scored_interpreted", want: ModeScoredInterpreted},
		{name: "scored_raw", input: "scored_raw", want: ModeScoredRaw},
		{name: "case_insensitive", input: "BASIC", want: ModeBasic},
		{name: "whitespace", input: "  scored_raw ", want: ModeScoredRaw},
		{name: "unknown", input: "scored", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMode(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMode(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestModeScored(t *testing.T) {
	if ModeBasic.Scored() {
		t.Error("basic mode should not embed scores")
	}
	if !ModeScoredInterpreted.Scored() {
		t.Error("scored_interpreted mode should embed scores")
	}
	if !ModeScoredRaw.Scored() {
		t.Error("scored_raw mode should embed scores")
	}
}

func TestValidSubtype(t *testing.T) {
	for _, st := range Subtypes {
		if !ValidSubtype(string(st)) {
			t.Errorf("ValidSubtype(%q) = false, want true", st)
		}
	}
	for _, s := range []string{"", "Fetal", "hepatocellular", "fetal "} {
		if ValidSubtype(s) {
			t.Errorf("ValidSubtype(%q) = true, want false", s)
		}
	}
}

func TestSubtypeList(t *testing.T) {
	want := "fetal, embryonal, macrotrabecular, mixed"
	if got := SubtypeList(); got != want {
		t.Errorf("SubtypeList() = %q, want %q", got, want)
	}
}

func TestHypothesisRecordDegraded(t *testing.T) {
	ok := &HypothesisRecord{Cluster: "0", CandidateSubtype: "embryonal"}
	if ok.Degraded() {
		t.Error("record with subtype reported degraded")
	}
	bad := &HypothesisRecord{Cluster: "0", RawResponse: "not a json object"}
	if !bad.Degraded() {
		t.Error("record without subtype not reported degraded")
	}
}
