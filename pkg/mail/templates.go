package mail

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// InviteData fills the invitation email
type InviteData struct {
	FullName  string
	Email     string
	InvitedBy string
	AcceptURL string
	ExpiresAt time.Time
}

const inviteSubject = "Invitation au portail de la formation"

var inviteHTML = htmltemplate.Must(htmltemplate.New("invite").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Bonjour{{if .FullName}} {{.FullName}}{{end}},</p>
<p>{{if .InvitedBy}}{{.InvitedBy}} vous invite{{else}}Vous êtes invité{{end}} à rejoindre le portail de la formation.</p>
<p><a href="{{.AcceptURL}}">Choisir un mot de passe</a></p>
<p>Ce lien expire le {{.ExpiresAt.Format "02/01/2006 à 15:04 MST"}}.</p>
</body>
</html>
`))

var inviteText = texttemplate.Must(texttemplate.New("invite").Parse(`Bonjour{{if .FullName}} {{.FullName}}{{end}},

{{if .InvitedBy}}{{.InvitedBy}} vous invite{{else}}Vous êtes invité{{end}} à rejoindre le portail de la formation.

Choisir un mot de passe : {{.AcceptURL}}

Ce lien expire le {{.ExpiresAt.Format "02/01/2006 à 15:04 MST"}}.
`))

// InviteEmail renders the invitation message for data.Email
func InviteEmail(data InviteData) (Message, error) {
	var html, text bytes.Buffer
	if err := inviteHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := inviteText.Execute(&text, data); err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{data.Email},
		Subject: inviteSubject,
		HTML:    html.String(),
		Text:    text.String(),
		Link:    data.AcceptURL,
	}, nil
}
