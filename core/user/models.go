package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/nidhamu/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleMonitor = "user" // the "red-flag" user logging record forms
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var AllRoles = []string{RoleAdmin, RoleMonitor, RoleStudent, RoleTeacher}

type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	IsActive         bool      `json:"is_active"`
	FollowingClasses []string  `json:"following_classes"` // class ids this user currently monitors
	PasswordHash     []byte    `json:"-"`
	CreatedAt        time.Time `json:"created_at"` // UTC
	UpdatedAt        time.Time `json:"updated_at"` // UTC
	LastLogin        time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsMonitor() bool {
	return u.Role == RoleMonitor
}

// Follows reports whether the user currently monitors the given class.
func (u *User) Follows(classID string) bool {
	for _, id := range u.FollowingClasses {
		if id == classID {
			return true
		}
	}
	return false
}

// Input structs

type NewUser struct {
	Username  string `json:"username" validate:"required,alphanum_"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role" validate:"required,role"`
	Password  string `json:"password" validate:"required"`
}

func (nu *NewUser) Validate() error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return core.Validate.Struct(nu)
}

type UpdateUser struct {
	Username  string `json:"username" validate:"omitempty,alphanum_"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"omitempty,role"`
	Password  string `json:"password"`
	IsActive  *bool  `json:"is_active"`
}

func (uu *UpdateUser) Validate() error {
	uu.Username = core.CleanString(uu.Username, true /* lower */)
	uu.FirstName = core.CleanString(uu.FirstName)
	uu.LastName = core.CleanString(uu.LastName)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	return core.Validate.Struct(uu)
}

// AssignmentPair assigns one class to one monitor. An empty UserID leaves
// the class monitored by no one.
type AssignmentPair struct {
	ClassID string `json:"class_id" validate:"required"`
	UserID  string `json:"user_id"`
}

// AssignmentList is the full replacement set the assignment resolver consumes.
type AssignmentList struct {
	Assignments []AssignmentPair `json:"assignments" validate:"required,min=1,dive"`
}

func (al *AssignmentList) Validate() error {
	return core.Validate.Struct(al)
}
