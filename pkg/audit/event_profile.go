package audit

import "fmt"

// InviteEvent records an admin inviting a new profile
type InviteEvent struct {
	ActorID      string
	ClientIP     string
	Email        string
	Role         string
	Success      bool
	ErrorMessage string
}

func (e InviteEvent) MessageID() string {
	return "invite"
}

func (e InviteEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s invited %s as %s", e.ActorID, e.Email, e.Role)
	}
	return withError(fmt.Sprintf("%s failed to invite %s", e.ActorID, e.Email), e.ErrorMessage)
}

func (e InviteEvent) Severity() Severity {
	return outcome(e.Success)
}

func (e InviteEvent) Facility() int {
	return FacilityAuthPriv
}

func (e InviteEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": e.ActorID},
		SDIDSubject: {"email": e.Email, "role": e.Role},
		SDIDClient:  {"ip": e.ClientIP},
	}
}

// ProfileEvent records a profile update or deletion
type ProfileEvent struct {
	ActorID      string
	ClientIP     string
	ProfileID    string
	Operation    string
	Success      bool
	ErrorMessage string
}

func (e ProfileEvent) MessageID() string {
	return "profile"
}

func (e ProfileEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s %s profile %s", e.ActorID, pastTense(e.Operation), e.ProfileID)
	}
	return withError(fmt.Sprintf("%s tried to %s profile %s", e.ActorID, e.Operation, e.ProfileID), e.ErrorMessage)
}

func (e ProfileEvent) Severity() Severity {
	return outcome(e.Success)
}

func (e ProfileEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ProfileEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": e.ActorID},
		SDIDSubject: {"profile": e.ProfileID},
		SDIDAction:  {"operation": e.Operation, "result": result(e.Success)},
		SDIDClient:  {"ip": e.ClientIP},
	}
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
