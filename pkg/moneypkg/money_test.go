package moneypkg

import (
	"testing"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		minor int64
		want  string
	}{
		{minor: 0, want: "0.00"},
		{minor: 1, want: "0.01"},
		{minor: 10_000, want: "100.00"},
		{minor: 12_345, want: "123.45"},
		{minor: -5, want: "-0.05"},
		{minor: -20_000, want: "-200.00"},
	}

	for _, tc := range testCases {
		if got := Format(tc.minor); got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.minor, got, tc.want)
		}
	}
}
