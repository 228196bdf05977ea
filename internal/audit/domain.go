package audit

import "time"

// Status classifies the outcome of an authorization attempt.
type Status string

const (
	// StatusSuccess records a verified PIN.
	StatusSuccess Status = "SUCCESS"
	// StatusFailed records a PIN mismatch.
	StatusFailed Status = "FAILED"
	// StatusDenied records an attempt rejected without comparison, e.g. during lockout.
	StatusDenied Status = "DENIED"
)

// Entry is an immutable audit row for one authorization attempt.
type Entry struct {
	ID       int64     `json:"id"`
	OutletID int64     `json:"outlet_id"`
	ActorID  int64     `json:"actor_id"`
	Action   string    `json:"action"`
	Status   Status    `json:"status"`
	Target   string    `json:"target,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

// Filters narrows a timeline query. Zero values mean "any".
type Filters struct {
	OutletID int64
	Action   string
	Status   Status
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// PagingInfo describes the window returned by Timeline.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles timeline rows with paging metadata.
type Result struct {
	Rows   []Entry    `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
