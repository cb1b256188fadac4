// Package audit turns moderation events into audit records, which are logged and stored.
package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/event"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/storage"
	"github.com/smell-of-curry/pokebedrock-moderation/pokebedrock/util"
)

// Audit actions.
const (
	ActionPunishApplied = "PUNISH_APPLIED"
	ActionPunishExpired = "PUNISH_EXPIRED"
	ActionStaffFreeze   = "STAFF_FREEZE"
	ActionStaffUnfreeze = "STAFF_UNFREEZE"
	ActionStaffJail     = "STAFF_JAIL"
	ActionStaffUnjail   = "STAFF_UNJAIL"
	ActionStaffChat     = "STAFF_CHAT"
)

// queueSize is the number of records that may wait to be stored.
const queueSize = 256

var recordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_audit_records_total",
	Help: "Number of audit records produced, by action",
}, []string{"action"})

var recordsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_audit_records_dropped_total",
	Help: "Number of audit records dropped because the write queue was full",
})

// Recorded is dispatched after an audit record has been produced.
type Recorded struct {
	event.Envelope
	Entry storage.AuditEntry
}

// Writer stores audit records.
type Writer interface {
	InsertAudit(ctx context.Context, e storage.AuditEntry) (int64, error)
}

// Service listens to moderation events on the bus and records them.
type Service struct {
	log   *slog.Logger
	bus   *event.Bus
	w     Writer
	queue chan storage.AuditEntry
}

// New creates an audit service and subscribes it to bus. Records are only stored while Run is running.
func New(log *slog.Logger, bus *event.Bus, w Writer) *Service {
	s := &Service{log: log, bus: bus, w: w, queue: make(chan storage.AuditEntry, queueSize)}

	event.Register(bus, event.Monitor, true, s.punishmentApplied)
	event.Register(bus, event.Monitor, true, s.punishmentExpired)
	event.Register(bus, event.Monitor, true, func(e *event.StaffFreeze) {
		s.staffAction(ActionStaffFreeze, e.StaffAction, nil)
	})
	event.Register(bus, event.Monitor, true, func(e *event.StaffUnfreeze) {
		s.staffAction(ActionStaffUnfreeze, e.StaffAction, nil)
	})
	event.Register(bus, event.Monitor, true, func(e *event.StaffJail) {
		s.staffAction(ActionStaffJail, e.StaffAction, map[string]string{
			"duration": durationText(e.Duration),
			"reason":   e.Reason,
		})
	})
	event.Register(bus, event.Monitor, true, func(e *event.StaffUnjail) {
		s.staffAction(ActionStaffUnjail, e.StaffAction, nil)
	})
	event.Register(bus, event.Monitor, true, s.staffChat)
	return s
}

// Run stores queued records until ctx is cancelled. Records still queued at that point are stored before Run
// returns.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case e := <-s.queue:
			s.write(ctx, e)
		case <-ctx.Done():
			for {
				select {
				case e := <-s.queue:
					s.write(context.WithoutCancel(ctx), e)
				default:
					return
				}
			}
		}
	}
}

// write ...
func (s *Service) write(ctx context.Context, e storage.AuditEntry) {
	if _, err := s.w.InsertAudit(ctx, e); err != nil {
		s.log.Error("failed to store audit record", "action", e.Action, "error", err)
	}
}

// record logs e, queues it for storage and announces it on the bus.
func (s *Service) record(e storage.AuditEntry) {
	e.CreatedAt = time.Now()
	s.log.Info("audit", "action", e.Action, "actor", e.Actor, "target", e.Target, "metadata", e.Metadata)
	recordsWritten.WithLabelValues(e.Action).Inc()

	select {
	case s.queue <- e:
	default:
		recordsDropped.Inc()
		s.log.Warn("audit queue full, record not stored", "action", e.Action)
	}
	s.bus.Dispatch(&Recorded{Entry: e})
}

// punishmentApplied ...
func (s *Service) punishmentApplied(e *event.PunishmentApplied) {
	p := e.Punishment
	s.record(storage.AuditEntry{
		Actor:  p.Actor.String(),
		Action: ActionPunishApplied,
		Target: p.Target.String(),
		Metadata: map[string]string{
			"type":     p.Type.String(),
			"reason":   p.Reason,
			"duration": durationText(p.Duration),
			"silent":   strconv.FormatBool(p.Silent),
		},
	})
}

// punishmentExpired ...
func (s *Service) punishmentExpired(e *event.PunishmentExpired) {
	s.record(storage.AuditEntry{
		Actor:    e.Lifter.Issuer.String(),
		Action:   ActionPunishExpired,
		Target:   e.Punishment.Target.String(),
		Metadata: map[string]string{"type": e.Punishment.Type.String()},
	})
}

// staffAction ...
func (s *Service) staffAction(action string, e event.StaffAction, metadata map[string]string) {
	if e.Cancelled() {
		return
	}
	if metadata == nil {
		metadata = make(map[string]string, 1)
	}
	metadata["source"] = string(e.Source)
	s.record(storage.AuditEntry{
		Actor:    e.Actor.String(),
		Action:   action,
		Target:   e.Target.String(),
		Metadata: metadata,
	})
}

// staffChat ...
func (s *Service) staffChat(e *event.StaffChat) {
	if e.Cancelled() {
		return
	}
	s.record(storage.AuditEntry{
		Actor:    e.Sender.String(),
		Action:   ActionStaffChat,
		Metadata: map[string]string{"channel": e.Channel, "message": e.Message},
	})
}

// durationText ...
func durationText(d time.Duration) string {
	if d <= 0 {
		return "Permanent"
	}
	return util.FormatDuration(d)
}

