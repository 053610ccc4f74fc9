// Package audit provides audit logging for portal operations.
//
// Security-relevant operations (logins, invitations, password changes,
// profile, document and workshop changes, sync runs) are written to stdout
// as RFC5424 syslog lines and, when AUDIT_DATABASE_URL is set, persisted
// to the audit_messages table.
//
// # Usage
//
//	audit.Log(audit.LoginEvent{
//	    Email:    "frere.jean@example.org",
//	    ClientIP: r.RemoteAddr,
//	    Method:   "password",
//	    Success:  true,
//	})
package audit
