// Package google provides OAuth2 tokens for the Google Calendar backend.
//
// A token comes from GOOGLE_ACCESS_TOKEN when it is set. Otherwise the token
// cached by "inboxagent google-auth" is used and refreshed with the client
// credentials in GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
package google
