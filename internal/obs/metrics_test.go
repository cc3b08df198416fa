package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/healthz", "/healthz"},
		{"/v1/auth/login", "/v1/auth/login"},
		{"/v1/users/me/sessions", "/v1/users/me/sessions"},
		{"/v1/users/me/sessions/6f1c2d3e", "/v1/users/me/sessions/:id"},
		{"/v1/users/me/sessions/6f1c2d3e/extra", "/v1/users/me/sessions/6f1c2d3e/extra"},
		{"/v1/users/me/sessions/abc?full=1", "/v1/users/me/sessions/:id"},
	}
	for _, tc := range cases {
		if got := CanonicalPath(tc.in); got != tc.want {
			t.Errorf("CanonicalPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
