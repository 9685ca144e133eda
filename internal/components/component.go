package components

import (
	"fmt"
	"strconv"
	"strings"
)

// ComponentID identifies a block of data the remote API returns only when it
// is requested explicitly.
type ComponentID int

const (
	Profiles              ComponentID = 100
	VendorReceipts        ComponentID = 101
	ProfileInventories    ComponentID = 102
	ProfileCurrencies     ComponentID = 103
	ProfileProgression    ComponentID = 104
	PlatformSilver        ComponentID = 105
	Characters            ComponentID = 200
	CharacterInventories  ComponentID = 201
	CharacterProgressions ComponentID = 202
	CharacterRenderData   ComponentID = 203
	CharacterActivities   ComponentID = 204
	CharacterEquipment    ComponentID = 205
	CharacterLoadouts     ComponentID = 206
	ItemInstances         ComponentID = 300
	ItemObjectives        ComponentID = 301
	ItemPerks             ComponentID = 302
	ItemRenderData        ComponentID = 303
	ItemStats             ComponentID = 304
	ItemSockets           ComponentID = 305
	ItemTalentGrids       ComponentID = 306
	ItemCommonData        ComponentID = 307
	ItemPlugStates        ComponentID = 308
	ItemPlugObjectives    ComponentID = 309
	ItemReusablePlugs     ComponentID = 310
	Vendors               ComponentID = 400
	VendorCategories      ComponentID = 401
	VendorSales           ComponentID = 402
	Kiosks                ComponentID = 500
	CurrencyLookups       ComponentID = 600
	PresentationNodes     ComponentID = 700
	Collectibles          ComponentID = 800
	Records               ComponentID = 900
	Transitory            ComponentID = 1000
	Metrics               ComponentID = 1100
	StringVariables       ComponentID = 1200
	Craftables            ComponentID = 1300
	SocialCommendations   ComponentID = 1400
)

var componentNames = map[ComponentID]string{
	Profiles:              "Profiles",
	VendorReceipts:        "VendorReceipts",
	ProfileInventories:    "ProfileInventories",
	ProfileCurrencies:     "ProfileCurrencies",
	ProfileProgression:    "ProfileProgression",
	PlatformSilver:        "PlatformSilver",
	Characters:            "Characters",
	CharacterInventories:  "CharacterInventories",
	CharacterProgressions: "CharacterProgressions",
	CharacterRenderData:   "CharacterRenderData",
	CharacterActivities:   "CharacterActivities",
	CharacterEquipment:    "CharacterEquipment",
	CharacterLoadouts:     "CharacterLoadouts",
	ItemInstances:         "ItemInstances",
	ItemObjectives:        "ItemObjectives",
	ItemPerks:             "ItemPerks",
	ItemRenderData:        "ItemRenderData",
	ItemStats:             "ItemStats",
	ItemSockets:           "ItemSockets",
	ItemTalentGrids:       "ItemTalentGrids",
	ItemCommonData:        "ItemCommonData",
	ItemPlugStates:        "ItemPlugStates",
	ItemPlugObjectives:    "ItemPlugObjectives",
	ItemReusablePlugs:     "ItemReusablePlugs",
	Vendors:               "Vendors",
	VendorCategories:      "VendorCategories",
	VendorSales:           "VendorSales",
	Kiosks:                "Kiosks",
	CurrencyLookups:       "CurrencyLookups",
	PresentationNodes:     "PresentationNodes",
	Collectibles:          "Collectibles",
	Records:               "Records",
	Transitory:            "Transitory",
	Metrics:               "Metrics",
	StringVariables:       "StringVariables",
	Craftables:            "Craftables",
	SocialCommendations:   "SocialCommendations",
}

func (c ComponentID) String() string {
	if name, ok := componentNames[c]; ok {
		return name
	}
	return "ComponentID(" + strconv.Itoa(int(c)) + ")"
}

// ParseComponentID accepts a component name (case-insensitive) or its number.
func ParseComponentID(s string) (ComponentID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		id := ComponentID(n)
		if _, ok := componentNames[id]; ok {
			return id, nil
		}
		return 0, fmt.Errorf("unknown component %d", n)
	}
	for id, name := range componentNames {
		if strings.EqualFold(name, s) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown component %q", s)
}

// Join renders components as the comma separated list sent in the
// "components" query parameter.
func Join(ids []ComponentID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ",")
}
