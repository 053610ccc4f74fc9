package audit

import "fmt"

// LoginEvent records a password login or an accepted invitation
type LoginEvent struct {
	Email        string
	ProfileID    string
	ClientIP     string
	Method       string
	Success      bool
	ErrorMessage string
}

func (e LoginEvent) MessageID() string {
	return "login"
}

func (e LoginEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s logged in with %s", e.Email, e.Method)
	}
	return withError(fmt.Sprintf("%s failed to log in with %s", e.Email, e.Method), e.ErrorMessage)
}

func (e LoginEvent) Severity() Severity {
	return outcome(e.Success)
}

func (e LoginEvent) Facility() int {
	return FacilityAuthPriv
}

func (e LoginEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"method": e.Method,
			"user":   e.Email,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
	}
	if e.ProfileID != "" {
		sd[SDIDSubject] = map[string]string{"profile": e.ProfileID}
	}
	return sd
}

// PasswordEvent records a password change
type PasswordEvent struct {
	ProfileID    string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e PasswordEvent) MessageID() string {
	return "password"
}

func (e PasswordEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s changed their password", e.ProfileID)
	}
	return withError(fmt.Sprintf("%s failed to change their password", e.ProfileID), e.ErrorMessage)
}

func (e PasswordEvent) Severity() Severity {
	return outcome(e.Success)
}

func (e PasswordEvent) Facility() int {
	return FacilityAuthPriv
}

func (e PasswordEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDSubject: {"profile": e.ProfileID},
		SDIDClient:  {"ip": e.ClientIP},
	}
}
