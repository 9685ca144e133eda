package components

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the root of the remote platform API.
const DefaultBaseURL = "https://www.bungie.net/Platform"

// Endpoints builds the URLs of the entities served by the component API.
// They differ only in shape; all of them go through Resolve.
type Endpoints struct {
	BaseURL string
}

// Profile is the URL of a player profile.
func (e Endpoints) Profile(membershipType int, membershipID string) string {
	return e.join("Destiny2", strconv.Itoa(membershipType), "Profile", membershipID)
}

// Character is the URL of one character of a profile.
func (e Endpoints) Character(membershipType int, membershipID, characterID string) string {
	return e.join("Destiny2", strconv.Itoa(membershipType), "Profile", membershipID, "Character", characterID)
}

// Item is the URL of an item instance owned by a profile.
func (e Endpoints) Item(membershipType int, membershipID, itemInstanceID string) string {
	return e.join("Destiny2", strconv.Itoa(membershipType), "Profile", membershipID, "Item", itemInstanceID)
}

// Vendors is the URL listing the vendors available to a character.
func (e Endpoints) Vendors(membershipType int, membershipID, characterID string) string {
	return e.join("Destiny2", strconv.Itoa(membershipType), "Profile", membershipID, "Character", characterID, "Vendors")
}

// Vendor is the URL of one vendor for a character.
func (e Endpoints) Vendor(membershipType int, membershipID, characterID string, vendorHash uint32) string {
	return e.join("Destiny2", strconv.Itoa(membershipType), "Profile", membershipID, "Character", characterID, "Vendors", strconv.FormatUint(uint64(vendorHash), 10))
}

func (e Endpoints) join(segments ...string) string {
	base := e.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.Join(escaped, "/") + "/"
}
