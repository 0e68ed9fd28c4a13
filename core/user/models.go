package user

import (
	"strconv"
	"time"

	"github.com/trezcool/classwork/core"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	Role         core.Role `json:"role" db:"role"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
}

func (u User) IsAdmin() bool   { return u.Role == core.RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == core.RoleTeacher }
func (u User) IsStudent() bool { return u.Role == core.RoleStudent }

// Person identifies the user in log reports.
func (u User) Person() core.Person {
	return core.Person{ID: strconv.Itoa(u.ID), Username: u.Username, Email: u.Email}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username string    `json:"username" validate:"required,min=3,max=30,alphanum_"`
	Email    string    `json:"email" validate:"required,email,max=254"`
	Password string    `json:"password" validate:"required"`
	Role     core.Role `json:"role" validate:"required,role"`
}

func (nu *NewUser) clean() {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.Role(core.CleanString(string(nu.Role), true /* lower */))
}

// UpdateUser defines what information an admin may provide to modify an existing User.
// Empty fields are left unchanged.
type UpdateUser struct {
	Username string    `json:"username" validate:"omitempty,min=3,max=30,alphanum_"`
	Email    string    `json:"email" validate:"omitempty,email,max=254"`
	Role     core.Role `json:"role" validate:"omitempty,role"`
	Password string    `json:"password"`
}

func (uu *UpdateUser) clean(orig User) {
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = orig.Username
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = orig.Email
	}
	if role := core.CleanString(string(uu.Role), true /* lower */); role != "" {
		uu.Role = core.Role(role)
	} else {
		uu.Role = orig.Role
	}
}

type ResetUserPassword struct {
	Token    string `json:"token" validate:"required"`
	UID      string `json:"uid" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type GetFilter struct {
	ID       int
	Username string
	Email    string
}

type QueryFilter struct {
	Search string    `query:"search"`
	Role   core.Role `query:"role"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.Role(core.CleanString(string(qf.Role), true /* lower */))
}
