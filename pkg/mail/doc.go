// Package mail sends the portal's transactional email.
//
// Client posts JSON messages to an HTTP email API authenticated with a
// bearer API key. Noop stands in when no API is configured and only logs.
package mail
