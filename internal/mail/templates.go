package mail

import (
	"bytes"
	_ "embed"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const ReferralSubject = "Highly Recommended Course for You!"

type ReferralMailParams struct {
	RefereeName  string
	ReferrerName string
	CourseName   string
	BrandingName string
}

var (
	//go:embed templates/referral.txt.tmpl
	referralTextRaw string
	//go:embed templates/referral.html.tmpl
	referralHTMLRaw string

	referralTextTemplate = texttemplate.Must(texttemplate.New("referral.txt").Parse(referralTextRaw))
	referralHTMLTemplate = htmltemplate.Must(htmltemplate.New("referral.html").Parse(referralHTMLRaw))
)

// RenderReferral renders the plain-text and HTML bodies. Names and course are
// user input and are escaped in the HTML body.
func RenderReferral(p ReferralMailParams) (text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := referralTextTemplate.Execute(&tb, p); err != nil {
		return "", "", err
	}
	if err := referralHTMLTemplate.Execute(&hb, p); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}

// NewReferralMessage renders the referee notification. replyTo is the
// referrer's address so replies reach the person who made the referral.
func NewReferralMessage(to, replyTo string, p ReferralMailParams) (Message, error) {
	text, html, err := RenderReferral(p)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		ReplyTo: replyTo,
		Subject: ReferralSubject,
		Text:    text,
		HTML:    html,
	}, nil
}
