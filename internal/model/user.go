package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles
const (
	RoleFactory  = "FACTORY"
	RoleSupplier = "SUPPLIER"
	RoleAdmin    = "ADMIN"
)

// Account lifecycle. New registrations wait for an admin to approve them.
const (
	UserStatusPending = "PENDING"
	UserStatusActive  = "ACTIVE"
	UserStatusBlocked = "BLOCKED"
)

// User is a company account: a factory buying materials, a supplier selling them, or an admin
type User struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Email       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password    string         `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash
	Role        string         `gorm:"type:varchar(20);not null;index" json:"role"`
	Status      string         `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CompanyName string         `gorm:"type:varchar(255);not null" json:"company_name"`
	CNPJ        string         `gorm:"column:cnpj;type:varchar(18);uniqueIndex;not null" json:"cnpj"`
	Phone       string         `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Address     string         `gorm:"type:varchar(500)" json:"address,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	return nil
}

// newID assigns an application-side UUID so schemas do not depend on gen_random_uuid().
func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
