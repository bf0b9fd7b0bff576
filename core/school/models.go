package school

import (
	"time"

	"github.com/trezcool/nidhamu/core"
)

// DefaultPoints is the base points balance every class starts the term with.
const DefaultPoints = 300

type (
	// Class is the unit of point accounting. TeacherID holds the homeroom
	// teacher back-reference; Students holds the roster. Both sides of these
	// links are mutated exclusively through the Service so they stay symmetric.
	Class struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Code      string    `json:"code"` // unique human code, e.g. "6A1"
		Points    int       `json:"points"`
		TeacherID string    `json:"teacher_id,omitempty"`
		Students  []string  `json:"students"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	Teacher struct {
		ID        string    `json:"id"`
		Code      string    `json:"code"` // unique human code
		FirstName string    `json:"first_name"`
		LastName  string    `json:"last_name"`
		Email     string    `json:"email"`
		ClassID   string    `json:"class_id,omitempty"` // homeroom class back-reference
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	Student struct {
		ID          string    `json:"id"`
		Code        string    `json:"code"` // unique human code
		FirstName   string    `json:"first_name"`
		LastName    string    `json:"last_name"`
		ClassID     string    `json:"class_id,omitempty"` // empty when orphaned by class deletion
		RecordForms []string  `json:"record_forms"`
		CreatedAt   time.Time `json:"created_at"` // UTC
		UpdatedAt   time.Time `json:"updated_at"` // UTC
	}
)

// Input structs

type NewClass struct {
	Name      string `json:"name" validate:"required"`
	Code      string `json:"code" validate:"required,alphanum_"`
	TeacherID string `json:"teacher_id"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = core.CleanString(nc.Code)
	return core.Validate.Struct(nc)
}

type UpdateClass struct {
	Name string `json:"name"`
	Code string `json:"code" validate:"omitempty,alphanum_"`
	// TeacherID semantics: nil leaves the homeroom teacher untouched,
	// empty string clears it, anything else reassigns it.
	TeacherID *string `json:"teacher_id"`
}

func (uc *UpdateClass) Validate() error {
	uc.Name = core.CleanString(uc.Name)
	uc.Code = core.CleanString(uc.Code)
	return core.Validate.Struct(uc)
}

type NewTeacher struct {
	Code      string `json:"code" validate:"required,alphanum_"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	ClassID   string `json:"class_id"`
}

func (nt *NewTeacher) Validate() error {
	nt.Code = core.CleanString(nt.Code)
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	return core.Validate.Struct(nt)
}

type UpdateTeacher struct {
	Code      string  `json:"code" validate:"omitempty,alphanum_"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email" validate:"omitempty,email"`
	ClassID   *string `json:"class_id"` // same semantics as UpdateClass.TeacherID
}

func (ut *UpdateTeacher) Validate() error {
	ut.Code = core.CleanString(ut.Code)
	ut.FirstName = core.CleanString(ut.FirstName)
	ut.LastName = core.CleanString(ut.LastName)
	ut.Email = core.CleanString(ut.Email, true /* lower */)
	return core.Validate.Struct(ut)
}

type NewStudent struct {
	Code      string `json:"code" validate:"required,alphanum_"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
}

func (ns *NewStudent) Validate() error {
	ns.Code = core.CleanString(ns.Code)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	return core.Validate.Struct(ns)
}

type UpdateStudent struct {
	Code      string `json:"code" validate:"omitempty,alphanum_"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ClassID   string `json:"class_id"` // non-empty reassigns the student's class
}

func (us *UpdateStudent) Validate() error {
	us.Code = core.CleanString(us.Code)
	us.FirstName = core.CleanString(us.FirstName)
	us.LastName = core.CleanString(us.LastName)
	return core.Validate.Struct(us)
}
