// Package rank maps the external roles of players to in-game ranks and the moderation permissions they grant.
package rank

import (
	"slices"
	"strings"

	"github.com/sandertv/gophertunnel/minecraft/text"
)

// Rank represents the rank of a player. Higher ranks inherit every permission of lower ones.
type Rank int

// Rank constants for the rank service.
const (
	UnLinked Rank = iota
	Trainer
	RetiredStaff
	Helper
	Moderator
	SeniorModerator
	HeadModerator
	Admin
	Manager
	Owner
)

// Info centralizes all details for each rank.
type Info struct {
	DisplayName string // Human-readable name of the rank.
	Color       string // Color to be used in chat.
}

// rankInfos holds the rank details of every Rank constant.
var rankInfos = map[Rank]Info{
	UnLinked:        {DisplayName: "UnLinked", Color: "grey"},
	Trainer:         {DisplayName: "Trainer", Color: "white"},
	RetiredStaff:    {DisplayName: "Retired Staff", Color: "grey"},
	Helper:          {DisplayName: "Helper", Color: "yellow"},
	Moderator:       {DisplayName: "Moderator", Color: "blue"},
	SeniorModerator: {DisplayName: "Senior Moderator", Color: "aqua"},
	HeadModerator:   {DisplayName: "Head Moderator", Color: "dark-blue"},
	Admin:           {DisplayName: "Admin", Color: "red"},
	Manager:         {DisplayName: "Manager", Color: "purple"},
	Owner:           {DisplayName: "Owner", Color: "dark-red"},
}

// Name returns the human-readable name of the rank.
func (r Rank) Name() string {
	info, ok := rankInfos[r]
	if !ok {
		return "Unknown"
	}
	return info.DisplayName
}

// FormatName formats a player's name in the colour of the rank.
func (r Rank) FormatName(name string) string {
	info, ok := rankInfos[r]
	if !ok {
		return text.Colourf("<grey>%s</grey>", name)
	}
	return text.Colourf("<%s>%s</%s>", info.Color, name, info.Color)
}

// Roles maps external role ids to ranks.
type Roles map[string]Rank

// Highest returns the highest rank granted by roles, or UnLinked if none of them is known.
func (m Roles) Highest(roles []string) Rank {
	ranks := make([]Rank, 0, len(roles))
	for _, role := range roles {
		if r, ok := m[role]; ok {
			ranks = append(ranks, r)
		}
	}
	if len(ranks) == 0 {
		return UnLinked
	}
	return slices.Max(ranks)
}

// Parse returns the rank with the given display name, ignoring case and spaces.
func Parse(name string) (Rank, bool) {
	name = normalise(name)
	for r, info := range rankInfos {
		if normalise(info.DisplayName) == name {
			return r, true
		}
	}
	return UnLinked, false
}

// normalise ...
func normalise(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}
