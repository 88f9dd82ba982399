package domain

import "testing"

func TestJobStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusProcessing, false},
		{JobStatusGeneratingAudio, false},
		{JobStatusProcessingMedia, false},
		{JobStatusRenderingPreparing, false},
		{JobStatusRenderingProcessing, false},
		{JobStatusRenderingFinalizing, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
		{JobStatus("archived"), false},
	}
	for _, tc := range tests {
		if got := tc.status.IsTerminal(); got != tc.want {
			t.Fatalf("IsTerminal(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestJobStatusNormalize(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   JobStatus
	}{
		{JobStatusPending, JobStatusPending},
		{JobStatusRenderingFinalizing, JobStatusRenderingFinalizing},
		{JobStatusFailed, JobStatusFailed},
		{JobStatus("warming_up"), JobStatusProcessing},
		{JobStatus(""), JobStatusProcessing},
	}
	for _, tc := range tests {
		if got := tc.status.Normalize(); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestStagesEndAtCompleted(t *testing.T) {
	if Stages[0] != JobStatusPending {
		t.Fatalf("first stage = %q, want %q", Stages[0], JobStatusPending)
	}
	if last := Stages[len(Stages)-1]; last != JobStatusCompleted {
		t.Fatalf("last stage = %q, want %q", last, JobStatusCompleted)
	}
}

func TestUsageEntryRemaining(t *testing.T) {
	tests := []struct {
		name  string
		entry UsageEntry
		want  int
	}{
		{"under limit", UsageEntry{CurrentUsage: 5, Limit: 20}, 15},
		{"at limit", UsageEntry{CurrentUsage: 20, Limit: 20}, 0},
		{"over limit", UsageEntry{CurrentUsage: 25, Limit: 20}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entry.Remaining(); got != tc.want {
				t.Fatalf("Remaining() = %d, want %d", got, tc.want)
			}
		})
	}
}
