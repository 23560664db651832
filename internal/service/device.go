package service

import (
	"github.com/mileusna/useragent"

	"hospital-admin/internal/util"
)

// DeviceInfo is the request-side metadata stamped on sessions and audit
// rows. Handlers build it once per request from the headers.
type DeviceInfo struct {
	IPAddress  string
	UserAgent  string
	Browser    string
	OS         string
	DeviceType string
}

// ParseDevice derives browser, OS and device class from a raw
// User-Agent header. Unrecognized agents default to "desktop".
func ParseDevice(rawUA, ip string) DeviceInfo {
	ua := useragent.Parse(rawUA)

	browser := ua.Name
	if browser != "" && ua.Version != "" {
		browser = browser + " " + ua.Version
	}
	os := ua.OS
	if os != "" && ua.OSVersion != "" {
		os = os + " " + ua.OSVersion
	}

	deviceType := "desktop"
	switch {
	case ua.Bot:
		deviceType = "bot"
	case ua.Mobile:
		deviceType = "mobile"
	case ua.Tablet:
		deviceType = "tablet"
	}

	return DeviceInfo{
		IPAddress:  util.SanitizeForLog(ip, 45),
		UserAgent:  util.SanitizeForLog(rawUA, 500),
		Browser:    util.SanitizeForLog(browser, 100),
		OS:         util.SanitizeForLog(os, 100),
		DeviceType: deviceType,
	}
}
