package moderation

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sandertv/gophertunnel/minecraft/text"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/punishment"
)

// ChatLockedMessage is shown to players chatting while chat is locked.
const ChatLockedMessage = "Chat is currently locked by staff."

// StateLoadingMessage is shown to players chatting before their moderation state has been loaded.
const StateLoadingMessage = "Your account is still loading, please wait a moment before chatting."

// ChatDecision is the outcome of GateChat.
type ChatDecision struct {
	// Allow is true if the message may be broadcast.
	Allow bool
	// ExpireMute is true if the cached mute of the sender has run out and must be expired off the main thread.
	ExpireMute bool
}

// GateChat decides whether a chat message of sender may be broadcast. Messages that are held back are answered
// or rerouted here. It must be called on the main thread.
func (s *Service) GateChat(w World, sender Player, message string) ChatDecision {
	id := sender.UUID()
	if s.session.ChatLocked() && !s.perms.HasPermission(id, PermissionChatLockBypass) {
		sender.Message(text.Colourf("<red>%s</red>", ChatLockedMessage))
		return ChatDecision{}
	}

	if !s.cache.Loaded(id) {
		sender.Message(text.Colourf("<red>%s</red>", StateLoadingMessage))
		return ChatDecision{}
	}

	var decision ChatDecision
	if _, ok := s.cache.ExpiredMute(id, time.Now()); ok {
		decision.ExpireMute = true
	} else if p, ok := s.cache.Active(id, punishment.Mute); ok {
		if s.session.AllowMuteFeedback(id) {
			sender.Message(text.Colourf("<red>%s</red>", MuteNotice(p, time.Now())))
		}
		return ChatDecision{}
	}

	if s.session.Vanished(id) {
		s.broadcast(w, PermissionVanishSee, fmt.Sprintf("[Vanished] %s: %s", sender.Name(), message))
		return decision
	}
	decision.Allow = true
	return decision
}

// StaffChat sends message to the staff chat. It returns false if a listener cancelled the message. It must be
// called on the main thread.
func (s *Service) StaffChat(w World, sender Player, message string) bool {
	e := event.NewStaffChat(sender.UUID(), sender.Name(), "staff", message)
	s.bus.Dispatch(e)
	if e.Cancelled() {
		return false
	}
	s.broadcast(w, PermissionStaffChat, text.Colourf("<aqua>[SC] %s: %s</aqua>", e.SenderName, e.Message))
	return true
}

// Report forwards a report of reporter to every online player receiving reports. It returns false if the
// reporter is still on cooldown. It must be called on the main thread.
func (s *Service) Report(w World, reporter Player, target, reason string) bool {
	if !s.session.AllowReport(reporter.UUID()) {
		return false
	}
	msg := fmt.Sprintf("[Report] %s reported %s (%s)", reporter.Name(), target, reason)
	s.log.Info(msg)
	s.broadcast(w, PermissionReportReceive, text.Colourf("<gold>%s</gold>", msg))
	return true
}

// broadcast sends message to every online player holding node.
func (s *Service) broadcast(w World, node, message string) {
	recipients := lo.Filter(w.Players(), func(p Player, _ int) bool {
		return s.perms.HasPermission(p.UUID(), node)
	})
	for _, p := range recipients {
		p.Message(message)
	}
}
