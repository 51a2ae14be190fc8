package libraries

import "testing"

func TestIsApprovalRequired(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"", false},
		{`<block s="reportSum"/>`, false},
		{`<block s="reportJSFunction"><l>x</l></block>`, true},
	}
	for _, tc := range cases {
		if got := IsApprovalRequired(tc.code); got != tc.want {
			t.Errorf("IsApprovalRequired(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}
