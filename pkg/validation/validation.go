package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// UsernameRegex validates username format
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// DeviceIDRegex validates device ID format
	DeviceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateUsername validates username
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !UsernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidatePassword validates password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("password is too long (max 128 characters)")
	}
	return nil
}

// ValidateDeviceID validates sensor device ID
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device ID is required")
	}
	if len(deviceID) > 100 {
		return fmt.Errorf("device ID is too long (max 100 characters)")
	}
	if !DeviceIDRegex.MatchString(deviceID) {
		return fmt.Errorf("invalid device ID format")
	}
	return nil
}

// ValidateAlertMessage validates an optional alert message
func ValidateAlertMessage(message string) error {
	if len(message) > 500 {
		return fmt.Errorf("message is too long (max 500 characters)")
	}
	if !utf8.ValidString(message) {
		return fmt.Errorf("message contains invalid characters")
	}
	return nil
}

// ValidateStreamURL validates a camera stream URL
func ValidateStreamURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	if len(urlStr) > 2048 {
		return fmt.Errorf("URL is too long (max 2048 characters)")
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("URL host is required")
	}
	return nil
}
