// internal/app/system/message/message.go

// Package message renders notification copy from templates, selecting a
// language per group. The broker falls back to plain English when no
// renderer is wired; this is the real one.
package message

import (
	"bytes"
	"text/template"

	"github.com/dalemusser/civihub/internal/domain/models"
	"go.uber.org/zap"
)

// meetingNoticeData is the template input for a meeting notice.
type meetingNoticeData struct {
	GroupName string
	Subject   string
	When      string
}

const timeLayout = "Mon 2 Jan 2006 15:04"

var meetingTemplates = map[string]*template.Template{
	"en": template.Must(template.New("meeting").Parse(
		"Upcoming meeting for {{.GroupName}}: {{.Subject}} on {{.When}}")),
	"af": template.Must(template.New("meeting").Parse(
		"Komende vergadering vir {{.GroupName}}: {{.Subject}} op {{.When}}")),
	"zu": template.Must(template.New("meeting").Parse(
		"Umhlangano ozayo we-{{.GroupName}}: {{.Subject}} ngomhla {{.When}}")),
}

// Renderer produces localized notification messages.
type Renderer struct {
	defaultLanguage string
	log             *zap.Logger
}

// NewRenderer builds a renderer that falls back to defaultLanguage when a
// group's language has no templates. An unknown default falls back to
// English.
func NewRenderer(defaultLanguage string, logger *zap.Logger) *Renderer {
	if _, ok := meetingTemplates[defaultLanguage]; !ok {
		defaultLanguage = "en"
	}
	return &Renderer{defaultLanguage: defaultLanguage, log: logger}
}

// MeetingNotice renders the notification sent to a member who was added
// to a group with a meeting already on the calendar.
func (r *Renderer) MeetingNotice(group models.Group, meeting models.Meeting) string {
	tmpl, ok := meetingTemplates[group.DefaultLanguage]
	if !ok {
		tmpl = meetingTemplates[r.defaultLanguage]
	}

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, meetingNoticeData{
		GroupName: group.Name,
		Subject:   meeting.Subject,
		When:      meeting.StartsAt.Format(timeLayout),
	})
	if err != nil {
		r.log.Warn("meeting notice template failed",
			zap.String("group_id", group.ID.Hex()),
			zap.Error(err))
		return "Upcoming meeting for " + group.Name + " on " +
			meeting.StartsAt.Format(timeLayout)
	}
	return buf.String()
}
