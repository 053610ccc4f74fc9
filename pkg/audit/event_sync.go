package audit

import (
	"fmt"
	"strconv"
)

// SyncEvent records a WordPress sync run
type SyncEvent struct {
	ActorID      string
	RunID        int64
	Job          string
	DryRun       bool
	Fetched      int
	Matched      int
	Upserted     int
	Pruned       int
	Success      bool
	ErrorMessage string
}

func (e SyncEvent) MessageID() string {
	return "sync"
}

func (e SyncEvent) Message() string {
	mode := ""
	if e.DryRun {
		mode = " (dry run)"
	}
	if e.Success {
		return fmt.Sprintf("%s ran %s sync%s: fetched %d, matched %d, upserted %d, pruned %d",
			e.ActorID, e.Job, mode, e.Fetched, e.Matched, e.Upserted, e.Pruned)
	}
	return withError(fmt.Sprintf("%s %s sync%s failed", e.ActorID, e.Job, mode), e.ErrorMessage)
}

func (e SyncEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityError
}

func (e SyncEvent) Facility() int {
	return FacilityLocal0
}

func (e SyncEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {"user": e.ActorID},
		SDIDSync: {
			"run":      strconv.FormatInt(e.RunID, 10),
			"job":      e.Job,
			"dry_run":  strconv.FormatBool(e.DryRun),
			"fetched":  strconv.Itoa(e.Fetched),
			"matched":  strconv.Itoa(e.Matched),
			"upserted": strconv.Itoa(e.Upserted),
			"pruned":   strconv.Itoa(e.Pruned),
		},
		SDIDAction: {"result": result(e.Success)},
	}
}
