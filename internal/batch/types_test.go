package batch

import "testing"

func TestSummarize(t *testing.T) {
	results := []ProcessResult{
		{Slug: "a", Action: ActionInstall, Status: StatusSuccess},
		{Slug: "b", Action: ActionUpdate, Status: StatusSuccess},
		{Slug: "c", Action: ActionUpdate, Status: StatusFailed, RolledBack: true},
		{Slug: "d", Action: ActionInstall, Status: StatusFailed},
		{Slug: "e", Action: ActionInstall, Status: StatusIncompatible},
	}

	s := Summarize(results)

	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	if s.Installed != 1 {
		t.Errorf("Installed = %d, want 1", s.Installed)
	}
	if s.Updated != 1 {
		t.Errorf("Updated = %d, want 1", s.Updated)
	}
	if s.Failed != 2 {
		t.Errorf("Failed = %d, want 2", s.Failed)
	}
	if s.Incompatible != 1 {
		t.Errorf("Incompatible = %d, want 1", s.Incompatible)
	}
	if s.RolledBack != 1 {
		t.Errorf("RolledBack = %d, want 1", s.RolledBack)
	}

	// Every result lands in exactly one status bucket
	if s.Installed+s.Updated+s.Failed+s.Incompatible != s.Total {
		t.Errorf("Status buckets do not partition the results: %+v", s)
	}
}

func TestExitCode(t *testing.T) {
	ok := ProcessResult{Status: StatusSuccess}
	bad := ProcessResult{Status: StatusFailed}
	incompat := ProcessResult{Status: StatusIncompatible}

	tests := []struct {
		name    string
		results []ProcessResult
		want    int
	}{
		{"AllSuccess", []ProcessResult{ok, ok, ok}, 0},
		{"AllFailure", []ProcessResult{bad, bad}, 2},
		{"Mixed", []ProcessResult{ok, bad}, 1},
		{"IncompatibleIsFailure", []ProcessResult{incompat}, 2},
		{"IncompatibleMixed", []ProcessResult{ok, incompat}, 1},
		{"Empty", nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.results); got != tt.want {
				t.Errorf("ExitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestShouldActivate(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name         string
		item         *bool
		autoActivate bool
		want         bool
	}{
		{"ExplicitTrue", &yes, false, true},
		{"ExplicitFalseOverridesAuto", &no, true, false},
		{"DefaultsToAuto", nil, true, true},
		{"DefaultsToAutoOff", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := PackageItem{Slug: "x", Activate: tt.item}
			if got := item.ShouldActivate(tt.autoActivate); got != tt.want {
				t.Errorf("ShouldActivate(%v) = %v, want %v", tt.autoActivate, got, tt.want)
			}
		})
	}
}
