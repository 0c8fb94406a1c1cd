package model

// Privilege represents a permission that can be assigned to staff users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "batch:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivBatchView       = "batch:view"
	PrivBatchCreate     = "batch:create"
	PrivBatchAdjust     = "batch:adjust"
	PrivBatchVoid       = "batch:void"
	PrivBatchDelete     = "batch:delete"
	PrivWalletView      = "wallet:view"
	PrivWalletAdjust    = "wallet:adjust"
	PrivWalletOrderHook = "wallet:order_event"
	PrivDashboardView   = "dashboard:view"
)

var DefaultPrivileges = []Privilege{
	// Batch inventory
	{Code: PrivBatchView, Name: "View Batches"},
	{Code: PrivBatchCreate, Name: "Create Batch"},
	{Code: PrivBatchAdjust, Name: "Stock In/Out"},
	{Code: PrivBatchVoid, Name: "Void Batch Entry"},
	{Code: PrivBatchDelete, Name: "Delete Batch"},
	// Coin wallets
	{Code: PrivWalletView, Name: "View Wallets"},
	{Code: PrivWalletAdjust, Name: "Adjust Wallet"},
	{Code: PrivWalletOrderHook, Name: "Post Order Events"},
	// Reporting
	{Code: PrivDashboardView, Name: "View Dashboard"},
}

// restrictedForAdmin lists privileges only MASTER_ADMIN receives by default.
var restrictedForAdmin = map[string]bool{
	PrivBatchDelete:  true,
	PrivWalletAdjust: true,
}

// GrantedByDefault reports whether role code receives privilege code when
// roles are seeded.
func GrantedByDefault(roleCode, privilegeCode string) bool {
	switch roleCode {
	case RoleMasterAdmin:
		return true
	case RoleAdmin:
		return !restrictedForAdmin[privilegeCode]
	case RoleOrderSystem:
		return privilegeCode == PrivWalletOrderHook
	default:
		return false
	}
}
