package discovery

import (
	"strings"
)

// Wire protocol constants
const (
	// AnnouncePort is the port devices listen on for discovery requests
	AnnouncePort = 9080

	// ListenPort is the port devices send their announcements to
	ListenPort = 9081

	// RequestPayload is the discovery request broadcast to devices
	RequestPayload = "DEVICEID"

	// AnnouncementPrefix is the first field of every device announcement
	AnnouncementPrefix = "DEVICENAME"

	// DefaultBufferSize is the receive buffer size; longer datagrams are truncated
	DefaultBufferSize = 2048
)

// Announcement is a parsed DEVICENAME datagram
type Announcement struct {
	Name    string
	Address string
}

// ParseAnnouncement parses a datagram received from address.
//
// The payload is decoded as UTF-8 with invalid sequences replaced, trailing
// NUL, CR and LF bytes are dropped, and the rest is split on every ':'.
// Anything other than DEVICENAME:<name> yields ErrMalformedAnnouncement.
// Names containing ':' are cut at the first colon.
func ParseAnnouncement(payload []byte, address string) (Announcement, error) {
	text := strings.ToValidUTF8(string(payload), "�")
	text = strings.TrimRight(text, "\x00\r\n")

	fields := strings.Split(text, ":")
	if len(fields) < 2 || fields[0] != AnnouncementPrefix {
		return Announcement{}, ErrMalformedAnnouncement
	}

	return Announcement{
		Name:    fields[1],
		Address: address,
	}, nil
}

// FormatAnnouncement builds the payload a device sends to announce itself
func FormatAnnouncement(name string) []byte {
	return []byte(AnnouncementPrefix + ":" + name)
}
