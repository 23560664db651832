package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDeviceChromeDesktop(t *testing.T) {
	rawUA := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	d := ParseDevice(rawUA, "203.0.113.7")
	assert.Equal(t, "203.0.113.7", d.IPAddress)
	assert.Contains(t, d.Browser, "Chrome")
	assert.Contains(t, d.OS, "Windows")
	assert.Equal(t, "desktop", d.DeviceType)
}

func TestParseDeviceMobile(t *testing.T) {
	rawUA := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

	d := ParseDevice(rawUA, "198.51.100.2")
	assert.Equal(t, "mobile", d.DeviceType)
}

func TestParseDeviceUnknownDefaultsToDesktop(t *testing.T) {
	d := ParseDevice("", "198.51.100.3")
	assert.Equal(t, "desktop", d.DeviceType)
	assert.Empty(t, d.Browser)
}
