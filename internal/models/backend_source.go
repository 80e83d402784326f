package models

import "errors"

// BackendType selects which recorder backend is active, mirroring the
// teacher's StreamSource.Type (m3u | xtream) discriminated-config pattern.
type BackendType string

const (
	// BackendTypeEDCB is the Windows-originated recorder control daemon
	// reached over the binary length-prefixed RPC protocol (internal/edcb).
	BackendTypeEDCB BackendType = "edcb"
	// BackendTypeHTTP is the thinner HTTP-based alternative backend.
	BackendTypeHTTP BackendType = "http"
)

var ErrInvalidBackendType = errors.New("invalid backend type: must be 'edcb' or 'http'")

// BackendSource records which backend is active and how to reach it,
// following the teacher's StreamSource/EPGSource "Type enum + connection
// fields" shape rather than a bespoke config block.
type BackendSource struct {
	BaseModel

	Name string      `gorm:"size:255;not null" json:"name"`
	Type BackendType `gorm:"size:16;not null" json:"type"`

	// EDCB fields.
	Host string `gorm:"size:255" json:"host,omitempty"`
	Port int    `json:"port,omitempty"`

	// HTTP-alternative fields.
	BaseURL  string `gorm:"size:2048" json:"base_url,omitempty"`
	APIToken string `gorm:"size:255" json:"api_token,omitempty"`

	IsActive bool `gorm:"default:false" json:"is_active"`
}

func (s *BackendSource) Validate() error {
	if s.Name == "" {
		return ErrNameRequired
	}
	switch s.Type {
	case BackendTypeEDCB, BackendTypeHTTP:
	default:
		return ErrInvalidBackendType
	}
	return nil
}
