// Package mail sends the referee notification through an SMTP relay that
// authenticates with OAuth2 (XOAUTH2), refreshing the access token from a
// long-lived refresh token.
package mail
