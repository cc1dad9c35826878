// Package catalog talks to the registry API that owns services and their
// specifications, and keeps the last answers as view state.
package catalog

import "encoding/json"

type Service struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Thumbnail         string   `json:"thumbnail,omitempty"`
	AccessibilityTier string   `json:"accessibilityTier,omitempty"`
	FeatureID         string   `json:"featureId,omitempty"`
	Requirements      []string `json:"requirements,omitempty"`
	ProviderID        string   `json:"providerId,omitempty"`
	ProviderName      string   `json:"providerName,omitempty"`
	Status            string   `json:"status,omitempty"`
	CurrentVersionID  string   `json:"currentVersionId,omitempty"`
}

type ServiceSpecification struct {
	ID        string          `json:"id"`
	ServiceID string          `json:"serviceId"`
	Version   string          `json:"version,omitempty"`
	Status    string          `json:"status,omitempty"`
	Form      json.RawMessage `json:"form,omitempty"`
}

// ServiceResponse is what the registry answers to writes.
type ServiceResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// envelope wraps every read response.
type envelope[T any] struct {
	Data T `json:"data"`
}
