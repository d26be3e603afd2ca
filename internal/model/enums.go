package model

// WorkOrderStatus is the lifecycle state of a work order.
type WorkOrderStatus string

const (
	WorkOrderStatusDraft           WorkOrderStatus = "Draft"
	WorkOrderStatusPendingApproval WorkOrderStatus = "Pending_Approval"
	WorkOrderStatusApproved        WorkOrderStatus = "Approved"
	WorkOrderStatusCompleted       WorkOrderStatus = "Completed"
	WorkOrderStatusCancelled       WorkOrderStatus = "Cancelled"
)

// OpenWorkOrderStatuses are the states that count as an open order for a
// machine. At most one order per machine may be in one of these states.
var OpenWorkOrderStatuses = []WorkOrderStatus{
	WorkOrderStatusDraft,
	WorkOrderStatusPendingApproval,
	WorkOrderStatusApproved,
}

// Terminal reports whether no further transitions are allowed from s.
func (s WorkOrderStatus) Terminal() bool {
	return s == WorkOrderStatusCompleted || s == WorkOrderStatusCancelled
}

// Priority of a work order or a recommended action.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// CreationSource records what created a work order.
type CreationSource string

const (
	SourceManual CreationSource = "Manual"
	SourceAI     CreationSource = "AI"
)

// DecisionAction is the action recommended by the decision oracle.
type DecisionAction string

const (
	ActionCreateWorkOrder  DecisionAction = "CREATE_WORK_ORDER"
	ActionWait             DecisionAction = "WAIT"
	ActionSendNotification DecisionAction = "SEND_NOTIFICATION"
)

// MachineStatus marks whether a machine is in service.
type MachineStatus string

const (
	MachineStatusActive   MachineStatus = "Active"
	MachineStatusInactive MachineStatus = "Inactive"
)

// PMFrequency is the preventive maintenance cadence of a machine.
type PMFrequency string

const (
	FrequencyMonthly   PMFrequency = "Monthly"
	FrequencyBimonthly PMFrequency = "Bimonthly"
	FrequencyQuarterly PMFrequency = "Quarterly"
	FrequencyYearly    PMFrequency = "Yearly"
)

// WorkflowStatus is the outcome of one automated batch run.
type WorkflowStatus string

const (
	WorkflowStatusRunning WorkflowStatus = "Running"
	WorkflowStatusSuccess WorkflowStatus = "Success"
	WorkflowStatusFailed  WorkflowStatus = "Failed"
	WorkflowStatusPartial WorkflowStatus = "Partial"
)
