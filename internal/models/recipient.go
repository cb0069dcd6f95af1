// internal/models/recipient.go
package models

import "strings"

// Communication preferences stored on a user profile.
const (
	PreferenceEmail = "email"
	PreferenceSMS   = "sms"
	PreferenceBoth  = "both"
)

// RecipientProfile is the read-only view of a user used to address actions.
type RecipientProfile struct {
	ID                      string `json:"id"`
	Email                   string `json:"email,omitempty"`
	Phone                   string `json:"phone,omitempty"`
	FirstName               string `json:"firstName,omitempty"`
	LastName                string `json:"lastName,omitempty"`
	CommunicationPreference string `json:"communicationPreference,omitempty"`
}

func (p *RecipientProfile) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AllowsEmail is false only when the profile explicitly prefers SMS.
func (p *RecipientProfile) AllowsEmail() bool {
	return p == nil || p.CommunicationPreference != PreferenceSMS
}

// AllowsSMS is false only when the profile explicitly prefers email.
func (p *RecipientProfile) AllowsSMS() bool {
	return p == nil || p.CommunicationPreference != PreferenceEmail
}
