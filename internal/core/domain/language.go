package domain

import "strings"

// LanguageCode identifies a language in the service-agnostic code space ("en", "hi").
type LanguageCode string

// ProviderCode is a translation backend's native language tag.
type ProviderCode string

// AutoDetect asks a backend to resolve the source language itself.
const AutoDetect LanguageCode = "auto"

// Provider identifies a translation backend.
type Provider string

const (
	ProviderCloud Provider = "google_cloud"
	ProviderLocal Provider = "nllb"
)

// Providers lists every backend in presentation order.
func Providers() []Provider {
	return []Provider{ProviderCloud, ProviderLocal}
}

// ParseProvider accepts the backend id case-insensitively.
func ParseProvider(raw string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderCloud:
		return ProviderCloud, true
	case ProviderLocal:
		return ProviderLocal, true
	default:
		return "", false
	}
}

// LanguageOption is a (code, display name) pair offered to a user.
type LanguageOption struct {
	Code LanguageCode `json:"code"`
	Name string       `json:"name"`
}

// BackendOption is a (id, display name) pair offered to a user.
type BackendOption struct {
	ID   Provider `json:"id"`
	Name string   `json:"name"`
}
