package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is a back-office account (admin, staff or service). Shoppers are
// identified by the external identity provider and have no row here.
type User struct {
	BaseModel
	Email        string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password     string      `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string      `gorm:"type:varchar(255)" json:"fullName" validate:"required"`
	RoleID       *uint       `gorm:"index" json:"roleId"`
	Role         *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive     bool        `gorm:"default:true" json:"isActive"`
	Privileges   []Privilege `gorm:"many2many:user_privileges;" json:"privileges,omitempty"`
	TokenVersion string      `gorm:"type:varchar(255);default:''" json:"-"` // single session enforcement
	LastSeenAt   *time.Time  `json:"lastSeenAt,omitempty"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func (u *User) HasPrivilege(code string) bool {
	for _, p := range u.Privileges {
		if p.Code == code {
			return true
		}
	}
	return false
}

func (u *User) GetPrivilegeCodes() []string {
	codes := make([]string, len(u.Privileges))
	for i, p := range u.Privileges {
		codes[i] = p.Code
	}
	return codes
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FullName   string     `json:"fullName"`
	Role       *Role      `json:"role,omitempty"`
	IsActive   bool       `json:"isActive"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
	Privileges []string   `json:"privileges"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		IsActive:   u.IsActive,
		LastSeenAt: u.LastSeenAt,
		Privileges: u.GetPrivilegeCodes(),
	}
}
