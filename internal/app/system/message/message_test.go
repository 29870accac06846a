// internal/app/system/message/message_test.go
package message

import (
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/civihub/internal/domain/models"
	"go.uber.org/zap"
)

func testMeeting() (models.Group, models.Meeting) {
	g := models.Group{Name: "Ward 7 Cleanup"}
	m := models.Meeting{
		Subject:  "Park cleanup",
		StartsAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	return g, m
}

func TestMeetingNotice_English(t *testing.T) {
	r := NewRenderer("en", zap.NewNop())
	g, m := testMeeting()
	g.DefaultLanguage = "en"

	got := r.MeetingNotice(g, m)
	if !strings.Contains(got, "Ward 7 Cleanup") {
		t.Errorf("notice missing group name: %q", got)
	}
	if !strings.Contains(got, "Park cleanup") {
		t.Errorf("notice missing subject: %q", got)
	}
	if !strings.Contains(got, "Sat 14 Mar 2026 09:30") {
		t.Errorf("notice missing formatted time: %q", got)
	}
}

func TestMeetingNotice_GroupLanguageWins(t *testing.T) {
	r := NewRenderer("en", zap.NewNop())
	g, m := testMeeting()
	g.DefaultLanguage = "af"

	got := r.MeetingNotice(g, m)
	if !strings.Contains(got, "Komende vergadering") {
		t.Errorf("expected Afrikaans notice, got %q", got)
	}
}

func TestMeetingNotice_UnknownLanguageFallsBack(t *testing.T) {
	r := NewRenderer("en", zap.NewNop())
	g, m := testMeeting()
	g.DefaultLanguage = "xx"

	got := r.MeetingNotice(g, m)
	if !strings.Contains(got, "Upcoming meeting") {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestNewRenderer_UnknownDefaultBecomesEnglish(t *testing.T) {
	r := NewRenderer("xx", zap.NewNop())
	g, m := testMeeting()
	g.DefaultLanguage = "yy"

	got := r.MeetingNotice(g, m)
	if !strings.Contains(got, "Upcoming meeting") {
		t.Errorf("expected English fallback, got %q", got)
	}
}
