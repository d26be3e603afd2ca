package model

import "time"

// WorkflowLog records the outcome of one automated batch run, keyed
// optionally by the automation platform's execution id.
type WorkflowLog struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	WorkflowName       string         `gorm:"size:100;not null" json:"workflow_name"`
	ExecutionID        string         `gorm:"size:100;index" json:"execution_id,omitempty"`
	Status             WorkflowStatus `gorm:"size:20;not null" json:"status"`
	MachinesProcessed  int            `gorm:"not null;default:0" json:"machines_processed"`
	WorkOrdersCreated  int            `gorm:"not null;default:0" json:"work_orders_created"`
	NotificationsSent  int            `gorm:"not null;default:0" json:"notifications_sent"`
	Errors             string         `gorm:"type:text" json:"errors,omitempty"`
	ExecutionTimeMS    *int           `gorm:"column:execution_time_ms" json:"execution_time_ms,omitempty"`
	StartedAt          time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
}
