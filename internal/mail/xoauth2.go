package mail

import "net/smtp"

// xoauth2Auth implements the SASL XOAUTH2 mechanism used by Gmail SMTP.
type xoauth2Auth struct {
	username    string
	accessToken string
}

func (a *xoauth2Auth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	resp := "user=" + a.username + "\x01auth=Bearer " + a.accessToken + "\x01\x01"
	return "XOAUTH2", []byte(resp), nil
}

// Next answers a failure challenge with an empty response so the server
// follows up with its final 5xx status and error text.
func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}
