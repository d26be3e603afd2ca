package model

import "time"

// MaintenanceRecord is an append-only record of a performed service,
// optionally linked to the work order that produced it.
type MaintenanceRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	MachineID   uint      `gorm:"index;not null" json:"machine_id"`
	Date        time.Time `gorm:"column:maintenance_date;type:date;not null;index" json:"maintenance_date"`
	Type        string    `gorm:"column:maintenance_type;size:50;not null" json:"maintenance_type"`
	Notes       string    `gorm:"type:text" json:"notes,omitempty"`
	PerformedBy string    `gorm:"size:200" json:"performed_by,omitempty"`
	WorkOrderID *uint     `json:"work_order_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName keeps the historical table name.
func (MaintenanceRecord) TableName() string {
	return "maintenance_history"
}
