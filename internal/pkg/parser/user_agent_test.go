package parser

import "testing"

const (
	uaIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36"
	uaDesktop = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

func TestDeviceClass(t *testing.T) {
	tests := []struct {
		name     string
		ua       string
		expected string
	}{
		{name: "iPhone", ua: uaIPhone, expected: DeviceIOS},
		{name: "iPad", ua: "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X)", expected: DeviceIOS},
		{name: "Android", ua: uaAndroid, expected: DeviceAndroid},
		{name: "Other Mobile", ua: "Opera/9.80 (J2ME/MIDP; Opera Mini) Mobile", expected: DeviceMobileOther},
		{name: "Desktop", ua: uaDesktop, expected: DeviceDesktop},
		{name: "Case Sensitive", ua: "some iphone android mobile client", expected: DeviceDesktop},
		{name: "Empty", ua: "", expected: DeviceDesktop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeviceClass(tt.ua); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseUserAgent(t *testing.T) {
	os, browser := ParseUserAgent(uaAndroid)
	if os != "Android" || browser != "Chrome" {
		t.Errorf("Expected Android/Chrome, got %s/%s", os, browser)
	}

	os, browser = ParseUserAgent(uaIPhone)
	if os != "iOS" || browser != "Safari" {
		t.Errorf("Expected iOS/Safari, got %s/%s", os, browser)
	}
}
