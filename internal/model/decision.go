package model

import "time"

// Decision is the immutable audit record of one oracle decision query.
// Only AutoExecuted is ever mutated after creation, set true exactly once
// when the decision is executed.
type Decision struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	MachineID      uint           `gorm:"index;not null" json:"machine_id"`
	Action         DecisionAction `gorm:"column:decision;size:30;not null" json:"decision"`
	Priority       Priority       `gorm:"size:20" json:"priority,omitempty"`
	Confidence     float64        `gorm:"type:decimal(3,2);not null" json:"confidence"`
	Explanation    string         `gorm:"type:text;not null" json:"explanation"`
	InputContext   string         `gorm:"type:text" json:"input_context,omitempty"` // JSON snapshot handed to the oracle
	Provider       string         `gorm:"column:llm_provider;size:50" json:"llm_provider,omitempty"`
	Model          string         `gorm:"column:llm_model;size:100" json:"llm_model,omitempty"`
	RawResponse    string         `gorm:"type:text" json:"raw_response,omitempty"`
	AutoExecuted   bool           `gorm:"not null;default:false" json:"auto_executed"`
	RequiresReview bool           `gorm:"not null;default:false" json:"requires_review"`
	CreatedAt      time.Time      `json:"created_at"`

	// Associations
	Machine Machine `json:"-"`
}

// TableName keeps the historical table name.
func (Decision) TableName() string {
	return "ai_decisions"
}
