package wire

import (
	"net"
	"time"
)

// WPS setup methods carried in a GO negotiation request.
// Only PBC is accepted by the simulated responder; PIN methods are
// rejected the way a PBC-only peer rejects them.
const (
	WpsMethodPBC     = "pbc"
	WpsMethodDisplay = "display"
	WpsMethodKeypad  = "keypad"
)

// GO negotiation status codes (wire-level, not Android reason codes)
const (
	StatusSuccess         = 0
	StatusWpsNotSupported = 1
	StatusBusy            = 2
)

// GroupOwnerAddress is the fixed IP the group owner takes inside a formed
// group, matching the address Android hands out.
const GroupOwnerAddress = "192.168.49.1"

// Beacon is the discovery record a device publishes while it is
// discoverable. Scanning reads every peer's beacon file, simulating
// over-the-air probe responses.
type Beacon struct {
	HardwareUUID      string    `json:"hardware_uuid"`
	DeviceName        string    `json:"device_name"`
	MACAddress        string    `json:"mac_address"`
	PrimaryDeviceType string    `json:"primary_device_type"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// GroupInfo describes the formed group from this device's point of view.
// Delivered to the platform layer when GO negotiation completes.
type GroupInfo struct {
	GroupFormed       bool
	IsGroupOwner      bool
	GroupOwnerAddress string
	LocalAddress      string
	NetworkName       string
}

// groupState tracks this device's membership in a formed group
type groupState struct {
	isOwner      bool
	ownerUUID    string
	networkName  string
	localAddress string
	members      map[string]string // member UUID -> MAC (owner side only)
}

// p2pMessage is the JSON frame exchanged over the group socket
type p2pMessage struct {
	Type       string `json:"type"`
	SenderUUID string `json:"sender_uuid"`
	SenderMAC  string `json:"sender_mac"`
	SenderName string `json:"sender_name"`
	Intent     int    `json:"intent,omitempty"`
	WpsMethod  string `json:"wps_method,omitempty"`
	HasGroup   bool   `json:"has_group,omitempty"`
	Status     int    `json:"status,omitempty"`
}

// Message types
const (
	msgGoNegotiationRequest  = "go_negotiation_request"
	msgGoNegotiationResponse = "go_negotiation_response"
	msgGroupRemove           = "group_remove"
)

// Connection represents one established group link to a peer
type Connection struct {
	conn       net.Conn
	remoteUUID string
	remoteMAC  string
	remoteName string
}
