package auth

import "testing"

func TestClassifyUserAgent(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want ClientInfo
	}{
		{
			name: "empty",
			ua:   "",
			want: ClientInfo{Device: "Unknown", Browser: "Unknown", OS: "Unknown"},
		},
		{
			name: "chrome on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/125.0 Safari/537.36",
			want: ClientInfo{Device: "Desktop", Browser: "Chrome", OS: "Windows"},
		},
		{
			name: "edge is not chrome",
			ua:   "Mozilla/5.0 (Windows NT 10.0) Chrome/125.0 Safari/537.36 Edge/125.0",
			want: ClientInfo{Device: "Desktop", Browser: "Edge", OS: "Windows"},
		},
		{
			name: "safari on iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile/15E148 Safari/604.1",
			want: ClientInfo{Device: "Mobile", Browser: "Safari", OS: "iOS"},
		},
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
			want: ClientInfo{Device: "Desktop", Browser: "Firefox", OS: "Linux"},
		},
		{
			name: "chrome on android phone",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) Chrome/125.0 Mobile Safari/537.36",
			want: ClientInfo{Device: "Mobile", Browser: "Chrome", OS: "Android"},
		},
		{
			name: "ipad is a tablet",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) Version/17.0 Safari/604.1",
			want: ClientInfo{Device: "Tablet", Browser: "Safari", OS: "iOS"},
		},
		{
			name: "unrecognized",
			ua:   "curl/8.5.0",
			want: ClientInfo{Device: "Desktop", Browser: "Unknown", OS: "Unknown"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyUserAgent(tc.ua); got != tc.want {
				t.Fatalf("ClassifyUserAgent(%q) = %+v, want %+v", tc.ua, got, tc.want)
			}
		})
	}
}
