package model

import "time"

// WorkOrder is the unit of schedulable supplier work for a machine.
type WorkOrder struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	WONumber           string          `gorm:"column:wo_number;uniqueIndex;size:50;not null" json:"wo_number"`
	MachineID          uint            `gorm:"index;not null" json:"machine_id"`
	Status             WorkOrderStatus `gorm:"size:30;not null;index" json:"status"`
	Priority           Priority        `gorm:"size:20" json:"priority,omitempty"`
	Source             CreationSource  `gorm:"column:creation_source;size:20;not null" json:"creation_source"`
	AIDecisionID       *uint           `gorm:"column:ai_decision_id" json:"ai_decision_id,omitempty"`
	ScheduledDate      *time.Time      `gorm:"type:date" json:"scheduled_date"`
	CompletedDate      *time.Time      `gorm:"type:date" json:"completed_date"`
	Notes              string          `gorm:"type:text" json:"notes,omitempty"`
	NotificationSent   bool            `gorm:"not null;default:false" json:"notification_sent"`
	NotificationSentAt *time.Time      `json:"notification_sent_at,omitempty"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy         string          `gorm:"size:200" json:"approved_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Associations
	Machine    Machine   `json:"-"`
	AIDecision *Decision `gorm:"foreignKey:AIDecisionID" json:"-"`
}
