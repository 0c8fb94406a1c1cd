package model

// Role represents staff roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleMasterAdmin = "MASTER_ADMIN"
	RoleAdmin       = "ADMIN"
	// RoleOrderSystem is the service account the order pipeline uses to
	// post order events.
	RoleOrderSystem = "ORDER_SYSTEM"
	// RoleCustomer is carried by identity tokens issued to shoppers.
	// Customers have no user row.
	RoleCustomer = "CUSTOMER"
)

var DefaultRoles = []Role{
	{
		Code:        RoleMasterAdmin,
		Name:        "Master Administrator",
		Description: "Full back-office access including coin adjustments and batch deletion",
	},
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Inventory operations and wallet lookups",
	},
	{
		Code:        RoleOrderSystem,
		Name:        "Order System",
		Description: "Automated order pipeline posting coin earn/settle events",
	},
}
