package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
)

// StatusCallback is the form payload Twilio posts on call status changes.
type StatusCallback struct {
	CallSID      string
	CallStatus   string
	From         string
	To           string
	CallDuration string
}

// ParseStatusCallback extracts the fields we track from a status callback.
func ParseStatusCallback(formValues url.Values) StatusCallback {
	return StatusCallback{
		CallSID:      formValues.Get("CallSid"),
		CallStatus:   formValues.Get("CallStatus"),
		From:         formValues.Get("From"),
		To:           formValues.Get("To"),
		CallDuration: formValues.Get("CallDuration"),
	}
}

// VerifyTwilioSignature verifies the X-Twilio-Signature header.
// The signature is base64(HMAC-SHA1) over the full request URL followed by
// each form parameter's key and value, keys sorted lexicographically.
// If secret is empty, verification is skipped (for development/testing).
func VerifyTwilioSignature(secret, requestURL string, formValues url.Values, signature string) error {
	if secret == "" {
		return nil
	}

	if signature == "" {
		return fmt.Errorf("signature header missing")
	}

	var keys []string
	for k := range formValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := requestURL
	for _, k := range keys {
		for _, v := range formValues[k] {
			payload += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(payload))
	expectedSignature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expectedSignature), []byte(signature)) {
		return fmt.Errorf("invalid signature")
	}

	return nil
}
