package utils

import (
	"regexp"
	"strings"
)

// MaskPhoneNumber masks a phone number for logging
// Example: +15125550142 -> +1512•••0142
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	// Remove any whitespace
	phone = strings.TrimSpace(phone)

	// E.164 format: +[country][number]
	// Show country code + first 3 digits, mask the middle, show last 4

	// Match E.164 format
	re := regexp.MustCompile(`^(\+)(\d{1,3})(\d{3})(\d+)$`)
	matches := re.FindStringSubmatch(phone)

	if len(matches) == 5 {
		countryCode := matches[2]
		first3 := matches[3]
		lastDigits := matches[4]

		// Show first 3 digits, mask middle, show last 4
		if len(lastDigits) >= 4 {
			last4 := lastDigits[len(lastDigits)-4:]
			masked := strings.Repeat("•", len(lastDigits)-4)
			return "+" + countryCode + first3 + masked + last4
		}
	}

	// Fallback: mask all but last 4 characters
	if len(phone) > 4 {
		masked := strings.Repeat("•", len(phone)-4)
		return masked + phone[len(phone)-4:]
	}

	return strings.Repeat("•", len(phone))
}

// ValidateE164 validates E.164 phone number format
func ValidateE164(phone string) bool {
	re := regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	return re.MatchString(phone)
}

// NormalizePhone normalizes phone number to E.164 format
func NormalizePhone(phone string) string {
	// Remove all non-digit characters except +
	re := regexp.MustCompile(`[^\d+]`)
	cleaned := re.ReplaceAllString(phone, "")

	// If doesn't start with +, assume NANP (+1)
	if !strings.HasPrefix(cleaned, "+") {
		if len(cleaned) == 11 && strings.HasPrefix(cleaned, "1") {
			cleaned = "+" + cleaned
		} else {
			cleaned = "+1" + cleaned
		}
	}

	return cleaned
}
