package models

import "time"

// User is an authentication identity issued by the auth layer. Admin
// authorization is not a column here; it is decided by the operator
// allow-list so a compromised row cannot self-promote.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"size:120;not null" json:"display_name"`
	Email       string    `gorm:"size:254;unique;not null" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	Disabled    bool      `gorm:"not null;default:false" json:"disabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClientProfile is the denormalized profile document for a provisioned
// client account, keyed by the identity's id. Deprovisioning deletes this
// row only; the User identity and any owned Requests remain.
type ClientProfile struct {
	UserID      uint      `gorm:"primaryKey" json:"user_id"`
	DisplayName string    `gorm:"size:120;not null" json:"display_name"`
	Email       string    `gorm:"size:254;not null" json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (ClientProfile) TableName() string {
	return "client_profiles"
}
