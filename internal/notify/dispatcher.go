package notify

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"fest_radar/internal/repositories"
)

// KindLocationSharing tags "started sharing" notices in the marker log.
const KindLocationSharing = "location_sharing"

// DefaultWindow is the cooldown during which repeat "started sharing"
// notices for the same (user, group) are suppressed.
const DefaultWindow = 5 * time.Minute

// Notification is the payload handed to the delivery provider.
type Notification struct {
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	GroupID    uint   `json:"group_id"`
	FestivalID uint   `json:"festival_id"`
}

// Pusher is the external delivery collaborator. Push is best-effort;
// the dispatcher only logs its failures.
type Pusher interface {
	Push(userID uint, note Notification) error
}

// LogPusher is the fallback delivery sink when no push provider is
// configured.
type LogPusher struct{}

func (LogPusher) Push(userID uint, note Notification) error {
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"kind":    note.Kind,
		"title":   note.Title,
	}).Info("Notification delivered to log sink.")
	return nil
}

// Dispatcher fans out "started sharing" notices to group members, with
// a best-effort rate limit. The check-then-record pair races under true
// concurrency: two simultaneous starts can both pass the check and send
// at most one duplicate notice. Accepted; a missed notice would not be.
type Dispatcher struct {
	markers repositories.MarkerRepository
	groups  repositories.GroupRepository
	prefs   repositories.PreferenceRepository
	users   repositories.UserRepository
	pusher  Pusher
	window  time.Duration
}

func NewDispatcher(
	markers repositories.MarkerRepository,
	groups repositories.GroupRepository,
	prefs repositories.PreferenceRepository,
	users repositories.UserRepository,
	pusher Pusher,
) *Dispatcher {
	if pusher == nil {
		pusher = LogPusher{}
	}
	return &Dispatcher{
		markers: markers,
		groups:  groups,
		prefs:   prefs,
		users:   users,
		pusher:  pusher,
		window:  DefaultWindow,
	}
}

// ShareStarted notifies the members of groupID (minus the sharer) that
// the sharer went live, unless a notice for this (sharer, group) was
// already handled inside the window. Stopping never notifies anyone; no
// caller exists for that path by design of the preference gate.
func (d *Dispatcher) ShareStarted(sharerID, groupID, festivalID uint) {
	log := logrus.WithFields(logrus.Fields{
		"sharer_id":   sharerID,
		"group_id":    groupID,
		"festival_id": festivalID,
	})

	sent, err := d.markers.SentWithin(sharerID, groupID, KindLocationSharing, d.window)
	if err != nil {
		log.WithError(err).Error("Failed to read notification markers; skipping dispatch.")
		return
	}
	if sent {
		log.Debug("Share-started notice suppressed by rate-limit window.")
		return
	}

	recipients, err := d.recipients(sharerID, groupID, festivalID)
	if err != nil {
		log.WithError(err).Error("Failed to resolve notification recipients; skipping dispatch.")
		return
	}

	note, err := d.buildNotification(sharerID, groupID, festivalID)
	if err != nil {
		log.WithError(err).Error("Failed to build share-started notification; skipping dispatch.")
		return
	}

	delivered := 0
	for _, userID := range recipients {
		// One recipient's failure must not block the rest.
		if err := d.pusher.Push(userID, note); err != nil {
			log.WithError(err).WithField("recipient_id", userID).Warn("Failed to deliver share-started notice.")
			continue
		}
		delivered++
	}
	log.WithFields(logrus.Fields{
		"recipients": len(recipients),
		"delivered":  delivered,
	}).Info("Share-started notices dispatched.")

	// Record regardless of delivery outcome so the next window starts
	// now.
	if err := d.markers.Record(sharerID, groupID, KindLocationSharing); err != nil {
		log.WithError(err).Error("Failed to record notification marker.")
	}
}

// recipients is the group roster minus the sharer, filtered to members
// with notifications enabled for this group and festival.
func (d *Dispatcher) recipients(sharerID, groupID, festivalID uint) ([]uint, error) {
	members, err := d.groups.MemberIDs(groupID)
	if err != nil {
		return nil, fmt.Errorf("loading group roster: %w", err)
	}
	notifiable, err := d.prefs.UsersNotifiableInGroup(groupID, festivalID)
	if err != nil {
		return nil, fmt.Errorf("loading notification preferences: %w", err)
	}
	notifiableSet := make(map[uint]bool, len(notifiable))
	for _, id := range notifiable {
		notifiableSet[id] = true
	}

	recipients := make([]uint, 0, len(members))
	for _, id := range members {
		if id == sharerID || !notifiableSet[id] {
			continue
		}
		recipients = append(recipients, id)
	}
	return recipients, nil
}

func (d *Dispatcher) buildNotification(sharerID, groupID, festivalID uint) (Notification, error) {
	sharerName := fmt.Sprintf("user %d", sharerID)
	if users, err := d.users.ByIDs([]uint{sharerID}); err != nil {
		return Notification{}, fmt.Errorf("resolving sharer: %w", err)
	} else if len(users) > 0 {
		sharerName = users[0].Name
	}

	groupName := fmt.Sprintf("group %d", groupID)
	if names, err := d.groups.NamesByID([]uint{groupID}); err != nil {
		return Notification{}, fmt.Errorf("resolving group name: %w", err)
	} else if name, ok := names[groupID]; ok {
		groupName = name
	}

	return Notification{
		Kind:       KindLocationSharing,
		Title:      fmt.Sprintf("%s started sharing their location", sharerName),
		Body:       fmt.Sprintf("Open the map to find %s with %s.", sharerName, groupName),
		GroupID:    groupID,
		FestivalID: festivalID,
	}, nil
}
