package notify

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// Message is a rendered notification.
type Message struct {
	Subject string
	Body    string
}

// SuccessInfo feeds the completion templates.
type SuccessInfo struct {
	SiteName   string
	Kind       string
	Validation string
	Added      int
	Updated    int
	Skipped    int
	SiteURL    string
}

// FailureInfo feeds the failure template.
type FailureInfo struct {
	SiteName   string
	Kind       string
	Validation string
}

var successTemplate = template.Must(template.New("success").Parse(
	`The {{.Kind}} of validation "{{.Validation}}" completed.
{{if or .Added (or .Updated .Skipped)}}
Results added: {{.Added}}
Results updated: {{.Updated}}
Rows skipped: {{.Skipped}}
{{end}}{{if .SiteURL}}
Review it at {{.SiteURL}}
{{end}}`))

var failureTemplate = template.Must(template.New("failure").Parse(
	`The {{.Kind}} of validation "{{.Validation}}" failed.

Check the service logs for the job outcome.
`))

// Success renders the completion notice for a finished job.
func Success(info SuccessInfo) (Message, error) {
	var body strings.Builder
	if err := successTemplate.Execute(&body, info); err != nil {
		return Message{}, errors.Wrap(err, "rendering success message")
	}
	return Message{
		Subject: info.SiteName + ": " + info.Kind + " of validation " + info.Validation + " completed",
		Body:    body.String(),
	}, nil
}

// Failure renders the failure notice for a failed job.
func Failure(info FailureInfo) (Message, error) {
	var body strings.Builder
	if err := failureTemplate.Execute(&body, info); err != nil {
		return Message{}, errors.Wrap(err, "rendering failure message")
	}
	return Message{
		Subject: info.SiteName + ": " + info.Kind + " of validation " + info.Validation + " failed",
		Body:    body.String(),
	}, nil
}
