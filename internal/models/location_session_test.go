package models

import (
	"testing"
	"time"
)

func TestLocationSessionExpired(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name    string
		status  string
		expires time.Time
		want    bool
	}{
		{"active within ttl", SessionActive, now.Add(time.Hour), false},
		{"active past ttl", SessionActive, now.Add(-time.Minute), true},
		{"explicitly expired", SessionExpired, now.Add(time.Hour), true},
		{"expired and past ttl", SessionExpired, now.Add(-time.Hour), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := LocationSession{Status: tc.status, ExpiresAt: tc.expires}
			if got := s.Expired(now); got != tc.want {
				t.Errorf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}
