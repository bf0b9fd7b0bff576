package record

import (
	"time"

	"github.com/trezcool/nidhamu/core"
)

// CodePrefix prefixes sequential record form codes: RF-001, RF-002, ...
const CodePrefix = "RF"

// RecordForm is one application of a rule to one student in one class at one
// time (a "merit slip"). Creating, modifying or deleting one drives the
// class's point balance through the Service.
type RecordForm struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	HappenedAt time.Time `json:"happened_at"` // UTC
	UserID     string    `json:"user_id"` // the monitor who logged it
	StudentID  string    `json:"student_id"`
	ClassID    string    `json:"class_id"`
	RuleID     string    `json:"rule_id"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

type NewRecord struct {
	StudentID  string    `json:"student_id" validate:"required"`
	ClassID    string    `json:"class_id"` // defaults to the student's class
	RuleID     string    `json:"rule_id" validate:"required"`
	HappenedAt time.Time `json:"happened_at"`
}

func (nr *NewRecord) Validate() error {
	return core.Validate.Struct(nr)
}

type UpdateRecord struct {
	StudentID  string    `json:"student_id" validate:"required"`
	ClassID    string    `json:"class_id" validate:"required"`
	RuleID     string    `json:"rule_id" validate:"required"`
	HappenedAt time.Time `json:"happened_at"`
}

func (ur *UpdateRecord) Validate() error {
	return core.Validate.Struct(ur)
}

// Filter narrows record listings. Zero fields are ignored.
type Filter struct {
	ClassID   string
	StudentID string
	From      time.Time
	To        time.Time
}

// WeeklyClassPoints is one row of the weekly report: the signed point sum a
// class accumulated from record forms during one ISO week.
type WeeklyClassPoints struct {
	ClassID string `json:"class_id"`
	Year    int    `json:"year"`
	Week    int    `json:"week"`
	Points  int    `json:"points"`
	Records int    `json:"records"`
}
