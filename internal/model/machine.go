package model

import "time"

// Machine represents one maintained piece of equipment.
type Machine struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	MachineID        string        `gorm:"uniqueIndex;size:50;not null" json:"machine_id"` // External equipment code
	Name             string        `gorm:"size:200;not null" json:"name"`
	Description      string        `gorm:"type:text" json:"description,omitempty"`
	Location         string        `gorm:"size:200" json:"location,omitempty"`
	PMFrequency      PMFrequency   `gorm:"size:20;not null" json:"pm_frequency"`
	LastPMDate       *time.Time    `gorm:"type:date" json:"last_pm_date"`
	NextPMDate       time.Time     `gorm:"type:date;not null;index" json:"next_pm_date"`
	AssignedSupplier string        `gorm:"size:200" json:"assigned_supplier,omitempty"`
	SupplierEmail    string        `gorm:"size:200" json:"supplier_email,omitempty"`
	Status           MachineStatus `gorm:"size:20;not null;default:Active" json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// Associations
	History    []MaintenanceRecord `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE" json:"-"`
	WorkOrders []WorkOrder         `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE" json:"-"`
	Decisions  []Decision          `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE" json:"-"`
}
