package audit

import "fmt"

// DocumentEvent records a document change or signed URL
type DocumentEvent struct {
	ActorID      string
	ClientIP     string
	DocumentID   string
	Title        string
	Operation    string
	Success      bool
	ErrorMessage string
}

func (e DocumentEvent) MessageID() string {
	return "document"
}

func (e DocumentEvent) Message() string {
	subject := e.DocumentID
	if e.Title != "" {
		subject = fmt.Sprintf("%q (%s)", e.Title, e.DocumentID)
	}
	if e.Success {
		return fmt.Sprintf("%s %s document %s", e.ActorID, pastTense(e.Operation), subject)
	}
	return withError(fmt.Sprintf("%s tried to %s document %s", e.ActorID, e.Operation, subject), e.ErrorMessage)
}

func (e DocumentEvent) Severity() Severity {
	return outcome(e.Success)
}

func (e DocumentEvent) Facility() int {
	return FacilityLocal0
}

func (e DocumentEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": e.ActorID},
		SDIDSubject: {"document": e.DocumentID},
		SDIDAction:  {"operation": e.Operation, "result": result(e.Success)},
		SDIDClient:  {"ip": e.ClientIP},
	}
}

// WorkshopEvent records a workshop change or a file attached to a workshop
type WorkshopEvent struct {
	ActorID      string
	ClientIP     string
	WorkshopID   string
	FileID       string
	Operation    string
	Success      bool
	ErrorMessage string
}

func (e WorkshopEvent) MessageID() string {
	return "workshop"
}

func (e WorkshopEvent) Message() string {
	subject := "workshop " + e.WorkshopID
	if e.FileID != "" && e.Operation == "url" {
		subject = fmt.Sprintf("file %s of workshop %s", e.FileID, e.WorkshopID)
	}
	if e.Success {
		return fmt.Sprintf("%s %s %s", e.ActorID, pastTense(e.Operation), subject)
	}
	return withError(fmt.Sprintf("%s tried to %s %s", e.ActorID, e.Operation, subject), e.ErrorMessage)
}

func (e WorkshopEvent) Severity() Severity {
	return outcome(e.Success)
}

func (e WorkshopEvent) Facility() int {
	return FacilityLocal0
}

func (e WorkshopEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth:    {"user": e.ActorID},
		SDIDSubject: {"workshop": e.WorkshopID},
		SDIDAction:  {"operation": e.Operation, "result": result(e.Success)},
		SDIDClient:  {"ip": e.ClientIP},
	}
	if e.FileID != "" {
		sd[SDIDSubject]["file"] = e.FileID
	}
	return sd
}
