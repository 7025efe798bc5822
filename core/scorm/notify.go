package scorm

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
)

const completionHTML = `<p>Hi {{.Name}},</p>
<p>You completed your {{.AppName}} attempt with status <strong>{{.Status}}</strong>{{if .Score}} and a score of {{.Score}}{{end}}.</p>
<p>Time spent: {{.TotalTime}}</p>
{{if .URL}}<p><a href="{{.URL}}">Review your attempt</a></p>{{end}}`

func newCompletionMessage(appName, baseURL string, learner Learner, attempt Attempt) (*core.EmailMessage, error) {
	name := learner.Name
	if name == "" {
		name = learner.Username
	}
	data := struct {
		AppName, Name, Status, Score, TotalTime, URL string
	}{
		AppName:   appName,
		Name:      name,
		Status:    attempt.LessonStatus.String,
		TotalTime: attempt.TotalTime,
	}
	if baseURL != "" {
		data.URL = strings.TrimRight(baseURL, "/") + "/attempts/" + attempt.ID
	}
	if attempt.ScoreRaw.Valid {
		data.Score = fmt.Sprintf("%g", attempt.ScoreRaw.Float64)
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: learner.Email}},
		Subject:      "Attempt completed",
		BodyStr:      fmt.Sprintf("Hi %s, you completed your %s attempt with status %s. Time spent: %s.", name, appName, data.Status, data.TotalTime),
		HTMLTemplate: completionHTML,
		TemplateData: data,
	}
	if err := msg.Render(); err != nil {
		return nil, errors.Wrap(err, "rendering completion email")
	}
	return msg, nil
}
