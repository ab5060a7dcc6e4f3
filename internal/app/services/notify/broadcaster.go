// Package notify implements the Notification Broadcaster: recipient
// filtering, payload construction, log-before-deliver ordering, and the
// pluggable delivery channel.
package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	core "github.com/R3E-Network/service_layer/internal/app/core/service"
	"github.com/R3E-Network/service_layer/internal/app/domain/notification"
	"github.com/R3E-Network/service_layer/internal/app/domain/profile"
	"github.com/R3E-Network/service_layer/internal/app/domain/roster"
	"github.com/R3E-Network/service_layer/internal/app/storage"
	rosterrors "github.com/R3E-Network/service_layer/infrastructure/errors"
	"github.com/R3E-Network/service_layer/infrastructure/logging"
	"github.com/R3E-Network/service_layer/infrastructure/metrics"
)

// Broadcaster is the Notification Broadcaster.
type Broadcaster struct {
	store   storage.Store
	sender  Sender
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New constructs a Broadcaster.
func New(store storage.Store, sender Sender, log *logging.Logger) *Broadcaster {
	if log == nil {
		log = logging.NewFromEnv("notify")
	}
	return &Broadcaster{store: store, sender: sender, log: log}
}

// SetMetrics attaches a metrics recorder. Optional; a Broadcaster with no
// metrics attached records nothing.
func (b *Broadcaster) SetMetrics(m *metrics.Metrics) {
	b.metrics = m
}

// Descriptor advertises the broadcaster's placement in the service
// topology.
func (b *Broadcaster) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:   "notification-broadcaster",
		Domain: "lottery",
		Layer:  core.LayerAdapter,
	}.WithCapabilities("notify.broadcast", "notify.roster")
}

// Broadcast fetches each recipient's profile, logs the full intended
// recipient list, filters by preference/token, and hands the surviving
// payloads to the delivery channel. deadline is only consulted for types
// that RequiresDeadline.
func (b *Broadcaster) Broadcast(ctx context.Context, eventID, eventName string, recipientIDs []string, nType notification.Type, message string, deadline time.Time, now time.Time) (notification.Outcome, error) {
	logEntry := notification.Log{
		SentAt:      now,
		SenderID:    notification.SystemSender,
		EventID:     eventID,
		EventName:   eventName,
		RecipientID: recipientIDs,
		Message:     message,
		Type:        nType,
	}
	if _, err := b.store.AppendNotificationLog(ctx, logEntry); err != nil {
		return notification.Outcome{}, rosterrors.NewInternal("notification log write failed", err)
	}

	profiles, err := b.store.ListProfiles(ctx, recipientIDs)
	if err != nil {
		return notification.Outcome{}, err
	}
	byID := make(map[string]profile.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}

	outcome := notification.Outcome{Errors: make(map[string]string)}
	deliveries := make([]Delivery, 0, len(recipientIDs))
	for _, uid := range recipientIDs {
		p, ok := byID[uid]
		if !ok {
			outcome.Excluded++
			if b.metrics != nil {
				b.metrics.RecordNotification(string(nType), "excluded")
			}
			continue
		}
		if !p.NotificationEnabled && !nType.Mandatory() {
			outcome.Excluded++
			if b.metrics != nil {
				b.metrics.RecordNotification(string(nType), "excluded")
			}
			continue
		}
		if !p.HasPushToken() {
			outcome.Excluded++
			if b.metrics != nil {
				b.metrics.RecordNotification(string(nType), "excluded")
			}
			b.log.WithContext(ctx).WithFields(logrus.Fields{"user_id": uid, "event_id": eventID}).
				Warn("recipient excluded: no push token")
			continue
		}

		payload := notification.Payload{
			Type:      nType,
			EventID:   eventID,
			EventName: eventName,
			Message:   message,
		}
		if nType.RequiresDeadline() {
			payload.InvitationDeadline = strconv.FormatInt(deadline.UnixMilli(), 10)
		}
		deliveries = append(deliveries, Delivery{UserID: uid, Token: p.PushToken, Payload: payload})
	}

	if len(deliveries) == 0 {
		return outcome, nil
	}

	sent, failed, errs, sendErr := b.sender.Send(ctx, deliveries)
	outcome.Sent = sent
	outcome.Failed = failed
	if b.metrics != nil {
		b.metrics.NotificationsTotal.WithLabelValues(string(nType), "sent").Add(float64(sent))
		b.metrics.NotificationsTotal.WithLabelValues(string(nType), "failed").Add(float64(failed))
	}
	for uid, code := range errs {
		outcome.Errors[uid] = code
	}
	if sendErr != nil {
		b.log.WithContext(ctx).WithError(sendErr).WithFields(logrus.Fields{"event_id": eventID}).
			Warn("delivery channel reported a batch failure")
	}
	return outcome, nil
}

// BroadcastToRoster loads eventID's roster of kind, extracts its user IDs,
// and invokes Broadcast with type ORGANIZER_MESSAGE.
func (b *Broadcaster) BroadcastToRoster(ctx context.Context, eventID, eventName string, kind roster.Kind, message string, now time.Time) (notification.Outcome, error) {
	members, err := b.store.ListRoster(ctx, eventID, kind)
	if err != nil {
		return notification.Outcome{}, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return b.Broadcast(ctx, eventID, eventName, ids, notification.TypeOrganizerMsg, message, time.Time{}, now)
}
