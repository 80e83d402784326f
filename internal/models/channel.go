package models

import "strings"

// ChannelType is the broadcast network category of a Channel.
type ChannelType string

const (
	ChannelTypeGR         ChannelType = "GR"
	ChannelTypeBS         ChannelType = "BS"
	ChannelTypeCS         ChannelType = "CS"
	ChannelTypeCATV       ChannelType = "CATV"
	ChannelTypeSKY        ChannelType = "SKY"
	ChannelTypeBS4K       ChannelType = "BS4K"
	ChannelTypeStarDigio  ChannelType = "STARDIGIO"
)

func (t ChannelType) valid() bool {
	switch t {
	case ChannelTypeGR, ChannelTypeBS, ChannelTypeCS, ChannelTypeCATV, ChannelTypeSKY, ChannelTypeBS4K, ChannelTypeStarDigio:
		return true
	}
	return false
}

// Channel is identified by (NetworkID, ServiceID); rebuilt wholesale on every
// EPG refresh from the active backend and never mutated per-client.
type Channel struct {
	BaseModel

	NetworkID          uint16      `gorm:"not null;index:idx_channel_identity,unique" json:"network_id"`
	ServiceID          uint16      `gorm:"not null;index:idx_channel_identity,unique" json:"service_id"`
	TransportStreamID  *uint16     `json:"transport_stream_id,omitempty"`
	RemoconID          uint8       `json:"remocon_id"`
	ChannelNumber      string      `gorm:"size:16" json:"channel_number"`
	Type               ChannelType `gorm:"size:16;not null" json:"type"`
	Name               string      `gorm:"size:255;not null" json:"name"`
	IsSubchannel       bool        `json:"is_subchannel"`
	IsRadioChannel     bool        `json:"is_radiochannel"`
	IsWatchable        bool        `gorm:"default:true" json:"is_watchable"`
}

// DisplayChannelID computes the derived display identifier used to key
// LiveStream and session registries: lower(type) + channel_number.
func (c *Channel) DisplayChannelID() string {
	return strings.ToLower(string(c.Type)) + c.ChannelNumber
}

// Validate checks invariants that cannot be expressed purely via GORM tags.
func (c *Channel) Validate() error {
	if c.NetworkID == 0 && c.ServiceID == 0 {
		return ErrChannelIDRequired
	}
	if !c.Type.valid() {
		return ErrInvalidChannelType
	}
	if c.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// ChannelTypeFromNetworkID maps an ARIB network_id to a ChannelType, per
// spec.md §4.C: 4→BS, {3,6,7,10}→CS/SKY, >=0x7880→terrestrial, else OTHER.
func ChannelTypeFromNetworkID(networkID uint16) ChannelType {
	switch networkID {
	case 4:
		return ChannelTypeBS
	case 3, 6, 7, 10:
		return ChannelTypeSKY
	}
	if networkID >= 0x7880 {
		return ChannelTypeGR
	}
	return ChannelType("OTHER")
}
