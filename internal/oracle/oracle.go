package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"pm-workorder-backend/config"
	"pm-workorder-backend/internal/model"
)

// ErrBadResponse is returned when a provider answers with something that does
// not parse or validate against the expected schema.
var ErrBadResponse = errors.New("bad oracle response")

// MachineContext is the machine snapshot handed to the provider.
type MachineContext struct {
	MachineID        string `json:"machine_id"`
	Name             string `json:"name"`
	Location         string `json:"location"`
	PMFrequency      string `json:"pm_frequency"`
	LastPMDate       string `json:"last_pm_date"`
	NextPMDate       string `json:"next_pm_date"`
	DaysUntilPM      int    `json:"days_until_pm"`
	AssignedSupplier string `json:"assigned_supplier"`
	SupplierEmail    string `json:"supplier_email"`
}

// HistoryEntry is one maintenance record in the prompt context.
type HistoryEntry struct {
	Date        string `json:"maintenance_date"`
	Type        string `json:"maintenance_type"`
	Notes       string `json:"notes"`
	PerformedBy string `json:"performed_by"`
}

// WorkOrderEntry is one open work order in the prompt context.
type WorkOrderEntry struct {
	WONumber  string `json:"wo_number"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	Source    string `json:"creation_source"`
	CreatedAt string `json:"created_at"`
}

// DecisionRequest bundles everything a provider sees when deciding.
type DecisionRequest struct {
	Machine    MachineContext   `json:"machine"`
	History    []HistoryEntry   `json:"maintenance_history"`
	WorkOrders []WorkOrderEntry `json:"existing_work_orders"`
}

// Decision is the validated verdict from a provider. Raw carries the
// untouched response body for auditing.
type Decision struct {
	Action      model.DecisionAction `json:"decision" validate:"required,oneof=CREATE_WORK_ORDER WAIT SEND_NOTIFICATION"`
	Priority    model.Priority       `json:"priority" validate:"required,oneof=Low Medium High"`
	Confidence  float64              `json:"confidence" validate:"gte=0,lte=1"`
	Explanation string               `json:"explanation" validate:"required,min=10"`
	Raw         string               `json:"-"`
}

// DateExtraction is the result of pulling a scheduled date out of an email.
// SelectedDate is nil when the provider found no usable date.
type DateExtraction struct {
	SelectedDate *string `json:"selected_date"`
	Confidence   float64 `json:"confidence" validate:"gte=0,lte=1"`
	Explanation  string  `json:"explanation"`
	Raw          string  `json:"-"`
}

// Client is implemented by each LLM provider.
type Client interface {
	Decide(ctx context.Context, req DecisionRequest) (*Decision, error)
	ExtractDate(ctx context.Context, emailBody string) (*DateExtraction, error)
	ProviderName() string
	ModelName() string
}

// New builds the provider named by the configuration.
func New(cfg *config.LLMConfig, logger *logrus.Logger) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAI(cfg, logger)
	case "claude":
		return newClaude(cfg, logger)
	case "gemini":
		return newGemini(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (available: openai, claude, gemini)", cfg.Provider)
	}
}

var validate = validator.New()

// parseDecision turns a raw model reply into a validated Decision.
func parseDecision(content string) (*Decision, error) {
	var d Decision
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &d); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrBadResponse, err)
	}
	if err := validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	d.Confidence = math.Round(d.Confidence*100) / 100
	d.Raw = content
	return &d, nil
}

func parseDateExtraction(content string) (*DateExtraction, error) {
	var de DateExtraction
	if err := json.Unmarshal([]byte(ExtractJSON(content)), &de); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrBadResponse, err)
	}
	if err := validate.Struct(&de); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	de.Confidence = math.Round(de.Confidence*100) / 100
	de.Raw = content
	return &de, nil
}
