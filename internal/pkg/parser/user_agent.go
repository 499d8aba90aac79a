package parser

import "strings"

const (
	DeviceIOS         = "iOS"
	DeviceAndroid     = "Android"
	DeviceMobileOther = "Mobile Other"
	DeviceDesktop     = "Desktop"
)

// DeviceClass buckets a user agent for the device histogram. Matching is
// case-sensitive and ordered: iPhone/iPad, then Android, then Mobile.
func DeviceClass(ua string) string {
	switch {
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad"):
		return DeviceIOS
	case strings.Contains(ua, "Android"):
		return DeviceAndroid
	case strings.Contains(ua, "Mobile"):
		return DeviceMobileOther
	default:
		return DeviceDesktop
	}
}

func ParseUserAgent(ua string) (os, browser string) {
	uaLower := strings.ToLower(ua)

	// mobile platforms first: their UAs also mention linux / mac os
	if strings.Contains(uaLower, "android") {
		os = "Android"
	} else if strings.Contains(uaLower, "iphone") || strings.Contains(uaLower, "ipad") {
		os = "iOS"
	} else if strings.Contains(uaLower, "windows") {
		os = "Windows"
	} else if strings.Contains(uaLower, "mac os") {
		os = "macOS"
	} else if strings.Contains(uaLower, "linux") {
		os = "Linux"
	} else {
		os = "Unknown"
	}

	if strings.Contains(uaLower, "edg") {
		browser = "Edge"
	} else if strings.Contains(uaLower, "chrome") || strings.Contains(uaLower, "crios") {
		browser = "Chrome"
	} else if strings.Contains(uaLower, "firefox") || strings.Contains(uaLower, "fxios") {
		browser = "Firefox"
	} else if strings.Contains(uaLower, "safari") {
		browser = "Safari"
	} else {
		browser = "Unknown"
	}

	return os, browser
}
