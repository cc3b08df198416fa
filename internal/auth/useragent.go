package auth

import "strings"

// ClientInfo is the best-effort classification of a user-agent string.
// Informational only; nothing security-sensitive keys off it.
type ClientInfo struct {
	Device  string
	Browser string
	OS      string
}

// ClassifyUserAgent derives device/browser/OS by substring matching against
// well-known tokens, defaulting to "Unknown"/"Desktop".
func ClassifyUserAgent(ua string) ClientInfo {
	if ua == "" {
		return ClientInfo{Device: "Unknown", Browser: "Unknown", OS: "Unknown"}
	}

	info := ClientInfo{Device: "Desktop", Browser: "Unknown", OS: "Unknown"}

	// iOS first: iPhone/iPad user agents also contain "like Mac OS X".
	switch {
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iOS"):
		info.OS = "iOS"
	case strings.Contains(ua, "Windows"):
		info.OS = "Windows"
	case strings.Contains(ua, "Mac OS X"):
		info.OS = "macOS"
	case strings.Contains(ua, "Android"):
		info.OS = "Android"
	case strings.Contains(ua, "Linux"):
		info.OS = "Linux"
	}

	switch {
	case strings.Contains(ua, "Tablet"), strings.Contains(ua, "iPad"):
		info.Device = "Tablet"
	case strings.Contains(ua, "Mobile"), strings.Contains(ua, "Android"), strings.Contains(ua, "iPhone"):
		info.Device = "Mobile"
	}

	switch {
	case strings.Contains(ua, "Edge"):
		info.Browser = "Edge"
	case strings.Contains(ua, "Chrome"):
		info.Browser = "Chrome"
	case strings.Contains(ua, "Firefox"):
		info.Browser = "Firefox"
	case strings.Contains(ua, "Safari"):
		info.Browser = "Safari"
	case strings.Contains(ua, "MSIE"), strings.Contains(ua, "Trident"):
		info.Browser = "Internet Explorer"
	}

	return info
}
