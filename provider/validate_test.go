package provider

import "testing"

func TestValidateEphemeralName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"gk_ab12", true},
		{"gk_a1b2c3d4e5f6", true},
		{"gk_", false},               // too short (3 chars)
		{"gk1234", false},            // missing prefix
		{"GK_abc123", false},         // wrong case prefix
		{"gk_abc-123", false},        // hyphen not allowed
		{"gk_" + stringOfLen(60), true},  // 63 chars total, at limit
		{"gk_" + stringOfLen(61), false}, // 64 chars total, over limit
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidateEphemeralName(tc.name); got != tc.want {
				t.Errorf("ValidateEphemeralName(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
