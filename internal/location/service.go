package location

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"fest_radar/internal/models"
	"fest_radar/internal/repositories"
)

// Radius bounds for the nearby query, in meters.
const (
	DefaultRadiusMeters = 500
	MinRadiusMeters     = 1
	MaxRadiusMeters     = 10000
)

// PositionReport is one device fix pushed by a sharing attendee.
type PositionReport struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Validate checks the coordinate and sensor ranges, naming the
// offending field.
func (r PositionReport) Validate() error {
	if r.Latitude < -90 || r.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: "must be between -90 and 90"}
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: "must be between -180 and 180"}
	}
	if r.Accuracy != nil && *r.Accuracy < 0 {
		return &ValidationError{Field: "accuracy", Message: "must not be negative"}
	}
	if r.Heading != nil && (*r.Heading < 0 || *r.Heading > 360) {
		return &ValidationError{Field: "heading", Message: "must be between 0 and 360"}
	}
	if r.Speed != nil && *r.Speed < 0 {
		return &ValidationError{Field: "speed", Message: "must not be negative"}
	}
	return nil
}

// PreferenceUpdate carries a SetPreference request. Nil optional fields
// keep the stored value (notifications default to enabled on first
// write).
type PreferenceUpdate struct {
	SharingEnabled       bool
	AutoEnableOnCheckin  *bool
	NotificationsEnabled *bool
}

// ProximityResult is one visible nearby attendee. SharedGroups lists
// every mutually-enabled group, not just the one that qualified the
// candidate.
type ProximityResult struct {
	UserID         uint      `json:"user_id"`
	Name           string    `json:"name"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters float64   `json:"distance_meters"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
	SharedGroups   []string  `json:"shared_groups"`
}

// NearbyReport distinguishes "you are not sharing" from "no one is
// nearby": ActiveSharing reflects the caller's own session state and
// Nearby may legitimately be empty.
type NearbyReport struct {
	ActiveSharing  bool                    `json:"active_sharing"`
	CurrentSession *models.LocationSession `json:"current_session"`
	Nearby         []ProximityResult       `json:"nearby"`
}

// ShareNotifier is fed false→true sharing transitions. Invoked
// fire-and-forget: its failures never fail the preference write.
type ShareNotifier interface {
	ShareStarted(sharerID, groupID, festivalID uint)
}

// Service is the location sharing subsystem: ingest, preference gate
// and proximity engine.
type Service struct {
	sessions repositories.SessionRepository
	prefs    repositories.PreferenceRepository
	groups   repositories.GroupRepository
	users    repositories.UserRepository
	notifier ShareNotifier
}

func NewService(
	sessions repositories.SessionRepository,
	prefs repositories.PreferenceRepository,
	groups repositories.GroupRepository,
	users repositories.UserRepository,
	notifier ShareNotifier,
) *Service {
	return &Service{
		sessions: sessions,
		prefs:    prefs,
		groups:   groups,
		users:    users,
		notifier: notifier,
	}
}

// ReportPosition validates and upserts a position report, returning the
// stored session and the names of the groups it is shared with.
// Fails closed with ErrSharingNotEnabled when the caller has no enabled
// preference for the festival; nothing is written in that case.
func (s *Service) ReportPosition(userID, festivalID uint, report PositionReport) (*models.LocationSession, []string, error) {
	if err := report.Validate(); err != nil {
		return nil, nil, err
	}

	enabledGroups, err := s.prefs.EnabledGroupIDs(userID, festivalID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading sharing preferences: %w", err)
	}
	if len(enabledGroups) == 0 {
		return nil, nil, ErrSharingNotEnabled
	}

	session := &models.LocationSession{
		UserID:     userID,
		FestivalID: festivalID,
		Latitude:   report.Latitude,
		Longitude:  report.Longitude,
		Accuracy:   report.Accuracy,
		Heading:    report.Heading,
		Speed:      report.Speed,
		Altitude:   report.Altitude,
	}
	if err := s.sessions.Upsert(session); err != nil {
		return nil, nil, fmt.Errorf("storing location session: %w", err)
	}

	names, err := s.groupNames(enabledGroups)
	if err != nil {
		return nil, nil, err
	}
	return session, names, nil
}

// StopSharing expires the caller's session. Safe to call when no
// session is active.
func (s *Service) StopSharing(userID, festivalID uint) error {
	if err := s.sessions.Expire(userID, festivalID); err != nil {
		return fmt.Errorf("expiring location session: %w", err)
	}
	return nil
}

// Nearby returns attendees visible to the caller within radiusMeters,
// sorted by distance (user ID breaks ties). A candidate is visible only
// through groups where both sides have sharing enabled and only while
// their session is unexpired. radiusMeters of 0 selects the default.
func (s *Service) Nearby(callerID, festivalID uint, radiusMeters float64) (*NearbyReport, error) {
	if radiusMeters == 0 {
		radiusMeters = DefaultRadiusMeters
	}
	if radiusMeters < MinRadiusMeters || radiusMeters > MaxRadiusMeters {
		return nil, &ValidationError{Field: "radius", Message: fmt.Sprintf("must be between %d and %d meters", MinRadiusMeters, MaxRadiusMeters)}
	}

	report := &NearbyReport{Nearby: []ProximityResult{}}

	callerSession, err := s.sessions.Active(callerID, festivalID)
	if err != nil {
		return nil, fmt.Errorf("loading caller session: %w", err)
	}
	report.ActiveSharing = callerSession != nil
	report.CurrentSession = callerSession
	if callerSession == nil {
		// Without a current position there is no reference point to
		// measure distances from.
		return report, nil
	}

	enabledGroups, err := s.prefs.EnabledGroupIDs(callerID, festivalID)
	if err != nil {
		return nil, fmt.Errorf("loading sharing preferences: %w", err)
	}

	// Candidate set: members of the caller's enabled groups who also
	// enable sharing for that same group. Track every contributing
	// group per candidate so results can list all shared groups.
	visibleThrough := make(map[uint]map[uint]bool)
	for _, groupID := range enabledGroups {
		members, err := s.groups.MemberIDs(groupID)
		if err != nil {
			return nil, fmt.Errorf("loading group %d roster: %w", groupID, err)
		}
		sharing, err := s.prefs.UsersSharingInGroup(groupID, festivalID)
		if err != nil {
			return nil, fmt.Errorf("loading group %d sharers: %w", groupID, err)
		}
		sharingSet := make(map[uint]bool, len(sharing))
		for _, id := range sharing {
			sharingSet[id] = true
		}
		for _, userID := range members {
			if userID == callerID || !sharingSet[userID] {
				continue
			}
			if visibleThrough[userID] == nil {
				visibleThrough[userID] = make(map[uint]bool)
			}
			visibleThrough[userID][groupID] = true
		}
	}
	if len(visibleThrough) == 0 {
		return report, nil
	}

	candidateIDs := make([]uint, 0, len(visibleThrough))
	for id := range visibleThrough {
		candidateIDs = append(candidateIDs, id)
	}
	sessions, err := s.sessions.ActiveByUsers(festivalID, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("loading candidate sessions: %w", err)
	}

	callerCoord := Coord(callerSession.Latitude, callerSession.Longitude)
	kept := make([]models.LocationSession, 0, len(sessions))
	distances := make(map[uint]float64, len(sessions))
	now := time.Now()
	for _, session := range sessions {
		// The query filters on expires_at too, but a session read just
		// before its deadline can cross it by the time we compute
		// distances. Stale positions never reach a result.
		if session.Expired(now) {
			continue
		}
		d := Haversine(callerCoord, Coord(session.Latitude, session.Longitude))
		if d > radiusMeters {
			continue
		}
		kept = append(kept, session)
		distances[session.UserID] = d
	}
	if len(kept) == 0 {
		return report, nil
	}

	names, err := s.displayNames(kept)
	if err != nil {
		return nil, err
	}

	for _, session := range kept {
		groupNames, err := s.sharedGroupNames(visibleThrough[session.UserID])
		if err != nil {
			return nil, err
		}
		report.Nearby = append(report.Nearby, ProximityResult{
			UserID:         session.UserID,
			Name:           names[session.UserID],
			Latitude:       session.Latitude,
			Longitude:      session.Longitude,
			DistanceMeters: distances[session.UserID],
			LastUpdatedAt:  session.UpdatedAt,
			SharedGroups:   groupNames,
		})
	}

	sort.Slice(report.Nearby, func(i, j int) bool {
		a, b := report.Nearby[i], report.Nearby[j]
		if a.DistanceMeters != b.DistanceMeters {
			return a.DistanceMeters < b.DistanceMeters
		}
		return a.UserID < b.UserID
	})
	return report, nil
}

// SetPreference writes the caller's per-group opt-in. Requires group
// membership. A false→true transition of sharing notifies the group,
// fire-and-forget; disabling is always silent.
func (s *Service) SetPreference(userID, groupID, festivalID uint, update PreferenceUpdate) (*models.SharingPreference, error) {
	member, err := s.groups.IsMember(groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("checking group membership: %w", err)
	}
	if !member {
		return nil, ErrNotGroupMember
	}

	existing, err := s.prefs.Get(userID, groupID, festivalID)
	if err != nil {
		return nil, fmt.Errorf("loading preference: %w", err)
	}

	pref := &models.SharingPreference{
		UserID:               userID,
		GroupID:              groupID,
		FestivalID:           festivalID,
		SharingEnabled:       update.SharingEnabled,
		NotificationsEnabled: true,
	}
	if existing != nil {
		pref.AutoEnableOnCheckin = existing.AutoEnableOnCheckin
		pref.NotificationsEnabled = existing.NotificationsEnabled
	}
	if update.AutoEnableOnCheckin != nil {
		pref.AutoEnableOnCheckin = *update.AutoEnableOnCheckin
	}
	if update.NotificationsEnabled != nil {
		pref.NotificationsEnabled = *update.NotificationsEnabled
	}

	if err := s.prefs.Upsert(pref); err != nil {
		return nil, fmt.Errorf("storing preference: %w", err)
	}

	startedSharing := update.SharingEnabled && (existing == nil || !existing.SharingEnabled)
	if startedSharing && s.notifier != nil {
		go s.notifier.ShareStarted(userID, groupID, festivalID)
	}
	return pref, nil
}

// Preferences lists the caller's preference rows for a festival.
func (s *Service) Preferences(userID, festivalID uint) ([]models.SharingPreference, error) {
	prefs, err := s.prefs.ListByUser(userID, festivalID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	return prefs, nil
}

func (s *Service) groupNames(ids []uint) ([]string, error) {
	byID, err := s.groups.NamesByID(ids)
	if err != nil {
		return nil, fmt.Errorf("resolving group names: %w", err)
	}
	names := make([]string, 0, len(byID))
	for _, name := range byID {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Service) sharedGroupNames(groupSet map[uint]bool) ([]string, error) {
	ids := make([]uint, 0, len(groupSet))
	for id := range groupSet {
		ids = append(ids, id)
	}
	return s.groupNames(ids)
}

func (s *Service) displayNames(sessions []models.LocationSession) (map[uint]string, error) {
	ids := make([]uint, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.UserID)
	}
	users, err := s.users.ByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("resolving user names: %w", err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	for _, session := range sessions {
		if _, ok := names[session.UserID]; !ok {
			logrus.WithField("user_id", session.UserID).Warn("Active session without a user row; leaving name empty.")
		}
	}
	return names, nil
}
