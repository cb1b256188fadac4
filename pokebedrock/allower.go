package pokebedrock

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sandertv/gophertunnel/minecraft/protocol/login"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/banlist"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/moderation"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// loginTimeout bounds the ban check of a connecting player.
const loginTimeout = 10 * time.Second

// Allower refuses players that are banned, either in the database or in the native ban list.
type Allower struct {
	svc  *moderation.Service
	bans *banlist.List
}

// Allow ...
func (a Allower) Allow(_ net.Addr, d login.IdentityData, _ login.ClientData) (string, bool) {
	id, err := uuid.Parse(d.Identity)
	if err != nil {
		return text.Colourf("<red>%s</red>", moderation.LoginErrorMessage), false
	}
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	if msg, ok := a.svc.CheckLogin(ctx, punishment.Target{UUID: id, Name: d.DisplayName}); !ok {
		return text.Colourf("<red>%s</red>", msg), false
	}
	if e, ok := a.bans.Entry(id); ok {
		var remaining time.Duration
		if !e.Expires.IsZero() {
			remaining = max(time.Until(e.Expires), time.Second)
		}
		return text.Colourf("<red>%s</red>", moderation.BanMessage(e.Reason, remaining)), false
	}
	return "", true
}
