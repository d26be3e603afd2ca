package store

import "pm-workorder-backend/internal/model"

// MachineFilters narrows ListMachines. Zero values mean "no filter".
type MachineFilters struct {
	Status   model.MachineStatus
	Location string
}

// WorkOrderFilters narrows ListWorkOrders. Zero values mean "no filter".
// MachineName matches machine names case-insensitively as a substring.
type WorkOrderFilters struct {
	Status      model.WorkOrderStatus
	MachineID   uint
	Source      model.CreationSource
	MachineName string
}

// WorkflowLogFilters narrows ListWorkflowLogs. Limit 0 falls back to 50.
type WorkflowLogFilters struct {
	WorkflowName string
	Status       model.WorkflowStatus
	Offset       int
	Limit        int
}

// DecisionStats aggregates the decision table for the statistics endpoint.
type DecisionStats struct {
	TotalDecisions    int64            `json:"total_decisions"`
	ByDecision        map[string]int64 `json:"decisions_by_type"`
	AverageConfidence float64          `json:"average_confidence"`
	RequiringReview   int64            `json:"requiring_review"`
	AutoExecuted      int64            `json:"auto_executed"`
	ManualReview      int64            `json:"manual_review"`
	ByProvider        map[string]int64 `json:"provider_distribution"`
}
