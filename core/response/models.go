package response

import (
	"time"

	"github.com/trezcool/nidhamu/core"
)

// State is the response's lifecycle state. Pending is the only initial
// state; Accepted and Rejected are terminal.
type State string

const (
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s State) Terminal() bool {
	return s == StateAccepted || s == StateRejected
}

// Response is an appeal filed by a user against a record form, answered by
// an admin.
type Response struct {
	ID           string    `json:"id"`
	RecordFormID string    `json:"record_form_id"`
	UserID       string    `json:"user_id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Content      string    `json:"content"`
	State        State     `json:"state"`
	AdminReply   string    `json:"admin_reply,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

type NewResponse struct {
	RecordFormID string `json:"record_form_id" validate:"required"`
	Content      string `json:"content" validate:"required"`
}

func (nr *NewResponse) Validate() error {
	nr.Content = core.CleanString(nr.Content)
	return core.Validate.Struct(nr)
}

type Decision struct {
	Accept     bool   `json:"accept"`
	AdminReply string `json:"admin_reply"`
}

func (d *Decision) Validate() error {
	d.AdminReply = core.CleanString(d.AdminReply)
	return core.Validate.Struct(d)
}
