package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"fest_radar/internal/location"
	"fest_radar/internal/middleware"
	"fest_radar/internal/models"
)

type mockLocationService struct {
	reportPositionFn func(userID, festivalID uint, report location.PositionReport) (*models.LocationSession, []string, error)
	stopSharingFn    func(userID, festivalID uint) error
	nearbyFn         func(callerID, festivalID uint, radiusMeters float64) (*location.NearbyReport, error)
	setPreferenceFn  func(userID, groupID, festivalID uint, update location.PreferenceUpdate) (*models.SharingPreference, error)
	preferencesFn    func(userID, festivalID uint) ([]models.SharingPreference, error)
}

func (m *mockLocationService) ReportPosition(userID, festivalID uint, report location.PositionReport) (*models.LocationSession, []string, error) {
	if m.reportPositionFn != nil {
		return m.reportPositionFn(userID, festivalID, report)
	}
	return &models.LocationSession{}, nil, nil
}

func (m *mockLocationService) StopSharing(userID, festivalID uint) error {
	if m.stopSharingFn != nil {
		return m.stopSharingFn(userID, festivalID)
	}
	return nil
}

func (m *mockLocationService) Nearby(callerID, festivalID uint, radiusMeters float64) (*location.NearbyReport, error) {
	if m.nearbyFn != nil {
		return m.nearbyFn(callerID, festivalID, radiusMeters)
	}
	return &location.NearbyReport{Nearby: []location.ProximityResult{}}, nil
}

func (m *mockLocationService) SetPreference(userID, groupID, festivalID uint, update location.PreferenceUpdate) (*models.SharingPreference, error) {
	if m.setPreferenceFn != nil {
		return m.setPreferenceFn(userID, groupID, festivalID, update)
	}
	return &models.SharingPreference{}, nil
}

func (m *mockLocationService) Preferences(userID, festivalID uint) ([]models.SharingPreference, error) {
	if m.preferencesFn != nil {
		return m.preferencesFn(userID, festivalID)
	}
	return nil, nil
}

func newTestRouter(svc LocationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ctl := NewLocationController(svc)

	loc := r.Group("/location")
	loc.Use(middleware.RequireAuth())
	{
		loc.POST("/:festival_id", ctl.UpdateLocation)
		loc.POST("/:festival_id/stop", ctl.StopSharing)
		loc.GET("/:festival_id/nearby", ctl.GetNearby)
		loc.GET("/:festival_id/preferences", ctl.GetPreferences)
		loc.PUT("/:festival_id/preferences/:group_id", ctl.SetPreference)
	}
	return r
}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	token, err := middleware.GenerateToken(1)
	if err != nil {
		t.Fatalf("could not generate token: %v", err)
	}
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	return body
}

func TestUpdateLocationRequiresAuth(t *testing.T) {
	r := newTestRouter(&mockLocationService{})

	req := httptest.NewRequest(http.MethodPost, "/location/10", strings.NewReader(`{"latitude":1,"longitude":2}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestUpdateLocationSharingNotEnabled(t *testing.T) {
	svc := &mockLocationService{
		reportPositionFn: func(userID, festivalID uint, report location.PositionReport) (*models.LocationSession, []string, error) {
			return nil, nil, location.ErrSharingNotEnabled
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/location/10", `{"latitude":48.1,"longitude":11.5}`))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != "sharing_not_enabled" {
		t.Errorf("expected sharing_not_enabled code, got %v", body["code"])
	}
}

func TestUpdateLocationFieldValidation(t *testing.T) {
	svc := &mockLocationService{
		reportPositionFn: func(userID, festivalID uint, report location.PositionReport) (*models.LocationSession, []string, error) {
			return nil, nil, &location.ValidationError{Field: "latitude", Message: "must be between -90 and 90"}
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/location/10", `{"latitude":123,"longitude":11.5}`))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["field"] != "latitude" {
		t.Errorf("expected latitude field detail, got %v", body["field"])
	}
}

func TestUpdateLocationInvalidFestivalID(t *testing.T) {
	r := newTestRouter(&mockLocationService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/location/abc", `{"latitude":1,"longitude":2}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUpdateLocationOK(t *testing.T) {
	svc := &mockLocationService{
		reportPositionFn: func(userID, festivalID uint, report location.PositionReport) (*models.LocationSession, []string, error) {
			if userID != 1 || festivalID != 10 {
				t.Errorf("wrong identity: user=%d festival=%d", userID, festivalID)
			}
			session := &models.LocationSession{
				UserID: userID, FestivalID: festivalID,
				Latitude: report.Latitude, Longitude: report.Longitude,
				Status: models.SessionActive,
			}
			return session, []string{"Crew"}, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/location/10", `{"latitude":48.1351,"longitude":11.5820}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["session"] == nil {
		t.Error("expected a session in the response")
	}
	groups, ok := body["sharing_groups"].([]interface{})
	if !ok || len(groups) != 1 || groups[0] != "Crew" {
		t.Errorf("expected sharing_groups [Crew], got %v", body["sharing_groups"])
	}
}

func TestGetNearbyOK(t *testing.T) {
	svc := &mockLocationService{
		nearbyFn: func(callerID, festivalID uint, radiusMeters float64) (*location.NearbyReport, error) {
			if radiusMeters != 250 {
				t.Errorf("expected radius 250, got %f", radiusMeters)
			}
			return &location.NearbyReport{
				ActiveSharing: true,
				Nearby: []location.ProximityResult{
					{UserID: 2, Name: "B", DistanceMeters: 300, SharedGroups: []string{"Crew"}},
				},
			}, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/location/10/nearby?radius=250", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["active_sharing"] != true {
		t.Error("expected active_sharing true")
	}
	nearby, ok := body["nearby"].([]interface{})
	if !ok || len(nearby) != 1 {
		t.Fatalf("expected one nearby result, got %v", body["nearby"])
	}
}

func TestGetNearbyDefaultsRadius(t *testing.T) {
	var gotRadius float64 = -1
	svc := &mockLocationService{
		nearbyFn: func(callerID, festivalID uint, radiusMeters float64) (*location.NearbyReport, error) {
			gotRadius = radiusMeters
			return &location.NearbyReport{Nearby: []location.ProximityResult{}}, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/location/10/nearby", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotRadius != 0 {
		t.Errorf("missing radius must be passed as 0 for the service default, got %f", gotRadius)
	}
}

func TestGetNearbyRejectsMalformedRadius(t *testing.T) {
	r := newTestRouter(&mockLocationService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodGet, "/location/10/nearby?radius=abc", ""))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStopSharingAlwaysSucceeds(t *testing.T) {
	r := newTestRouter(&mockLocationService{})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(t, http.MethodPost, "/location/10/stop", ""))
		if w.Code != http.StatusOK {
			t.Fatalf("stop call %d: expected 200, got %d", i+1, w.Code)
		}
		if body := decodeBody(t, w); body["success"] != true {
			t.Errorf("expected success true, got %v", body)
		}
	}
}

func TestSetPreferenceNotAMember(t *testing.T) {
	svc := &mockLocationService{
		setPreferenceFn: func(userID, groupID, festivalID uint, update location.PreferenceUpdate) (*models.SharingPreference, error) {
			return nil, location.ErrNotGroupMember
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPut, "/location/10/preferences/2", `{"enabled":true}`))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["code"] != "not_group_member" {
		t.Errorf("expected not_group_member code, got %v", body["code"])
	}
}

func TestSetPreferenceRequiresEnabledFlag(t *testing.T) {
	r := newTestRouter(&mockLocationService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPut, "/location/10/preferences/2", `{"auto_enable_on_checkin":true}`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without the enabled flag, got %d", w.Code)
	}
}

func TestSetPreferenceOK(t *testing.T) {
	svc := &mockLocationService{
		setPreferenceFn: func(userID, groupID, festivalID uint, update location.PreferenceUpdate) (*models.SharingPreference, error) {
			if groupID != 2 || festivalID != 10 {
				t.Errorf("wrong key: group=%d festival=%d", groupID, festivalID)
			}
			if !update.SharingEnabled {
				t.Error("expected sharing enabled")
			}
			return &models.SharingPreference{
				UserID: userID, GroupID: groupID, FestivalID: festivalID,
				SharingEnabled: true, NotificationsEnabled: true,
			}, nil
		},
	}
	r := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, http.MethodPut, "/location/10/preferences/2", `{"enabled":true}`))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
