package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Profile is the static per-practice branding the prompt is built from.
type Profile struct {
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
	BookingURL  string `json:"bookingUrl"`
	Locale      string `json:"locale"`
}

// LoadProfiles reads the per-tenant profile map from CHAT_PROFILES.
// Missing or empty is fine: unknown tenants get the generic prompt.
func LoadProfiles() (map[string]Profile, error) {
	raw := os.Getenv("CHAT_PROFILES")
	if raw == "" {
		return map[string]Profile{}, nil
	}

	profiles := map[string]Profile{}
	if err := json.Unmarshal([]byte(raw), &profiles); err != nil {
		return nil, fmt.Errorf("chat: bad CHAT_PROFILES json: %w", err)
	}
	return profiles, nil
}

func systemPrompt(p Profile) string {
	var b strings.Builder

	b.WriteString("You are a friendly front-desk assistant for ")
	if p.DisplayName != "" {
		b.WriteString(p.DisplayName)
	} else {
		b.WriteString("a dental practice")
	}
	b.WriteString(". Answer questions about the practice briefly and warmly. ")
	b.WriteString("Never give medical advice; suggest booking a consultation instead.")

	if p.Phone != "" {
		b.WriteString(" The office phone number is " + p.Phone + ".")
	}
	if p.BookingURL != "" {
		b.WriteString(" Appointments can be booked at " + p.BookingURL + ".")
	}
	if p.Locale != "" && p.Locale != "en" {
		b.WriteString(" Reply in the visitor's language (" + p.Locale + ").")
	}

	return b.String()
}
