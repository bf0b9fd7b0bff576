package core

import "testing"

func TestNextCode(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		existing []string
		want     string
	}{
		{name: "empty", prefix: "RF", want: "RF-001"},
		{name: "contiguous", prefix: "RF", existing: []string{"RF-001", "RF-002", "RF-003"}, want: "RF-004"},
		{name: "gap is reused", prefix: "RF", existing: []string{"RF-001", "RF-003"}, want: "RF-002"},
		{name: "first slot free", prefix: "RL", existing: []string{"RL-002", "RL-003"}, want: "RL-001"},
		{name: "unsorted input", prefix: "RL", existing: []string{"RL-003", "RL-001", "RL-002"}, want: "RL-004"},
		{name: "duplicate suffixes", prefix: "RF", existing: []string{"RF-001", "RF-001", "RF-002"}, want: "RF-003"},
		{name: "malformed suffix skipped", prefix: "RF", existing: []string{"RF-001", "RF-abc", "nope"}, want: "RF-002"},
		{name: "zero and negative skipped", prefix: "RF", existing: []string{"RF-000", "RF--1"}, want: "RF-001"},
		{name: "grows past three digits", prefix: "RF", existing: []string{"RF-999", "RF-1000"}, want: "RF-001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextCode(tt.prefix, tt.existing); got != tt.want {
				t.Errorf("NextCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
