package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/oracle"
	"pm-workorder-backend/internal/parse"
	"pm-workorder-backend/internal/pm"
	"pm-workorder-backend/internal/store"
	"pm-workorder-backend/internal/workorder"
)

// minExtractionConfidence gates scheduled-date updates from supplier emails.
const minExtractionConfidence = 0.70

// EmailResult is the structured outcome of one email-date-extraction run.
// Status is "Success" or "Error"; everything that went wrong inside the
// pipeline is an Error result, never a transport failure.
type EmailResult struct {
	Status        string   `json:"status"`
	WONumber      string   `json:"wo_number,omitempty"`
	WorkOrderID   uint     `json:"wo_id,omitempty"`
	ExtractedDate string   `json:"extracted_date,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	Message       string   `json:"message"`
	Updated       bool     `json:"updated"`
}

// EmailPipeline turns a supplier's reply email into a scheduled date on the
// work order it references. Stages run in order and the first failing stage
// produces the result; the date oracle is only consulted once the work order
// is resolved and Approved.
type EmailPipeline struct {
	store      store.Store
	oracle     oracle.Client
	workOrders *workorder.Service
	logger     *logrus.Logger
}

func NewEmailPipeline(st store.Store, oc oracle.Client, wos *workorder.Service, logger *logrus.Logger) *EmailPipeline {
	return &EmailPipeline{store: st, oracle: oc, workOrders: wos, logger: logger}
}

// Process extracts the WO number from the subject, validates the referenced
// work order, asks the oracle for the proposed date in the body, and patches
// the work order's scheduled date.
func (p *EmailPipeline) Process(ctx context.Context, subject, body string) *EmailResult {
	p.logger.WithField("subject", truncate(subject, 50)).Info("email date extraction request")

	number, ok := parse.ExtractWONumber(subject)
	if !ok {
		return &EmailResult{
			Status:  "Error",
			Message: "No work order number found in email subject",
		}
	}

	wo, err := p.store.GetWorkOrderByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &EmailResult{
				Status:   "Error",
				WONumber: number,
				Message:  fmt.Sprintf("Work order %s not found", number),
			}
		}
		return p.internalError(number, err)
	}

	if wo.Status != model.WorkOrderStatusApproved {
		return &EmailResult{
			Status:      "Error",
			WONumber:    number,
			WorkOrderID: wo.ID,
			Message:     fmt.Sprintf("Work order status is '%s', must be 'Approved'", wo.Status),
		}
	}

	extraction, err := p.oracle.ExtractDate(ctx, body)
	if err != nil {
		// A provider failure reads as a zero-confidence extraction so the
		// caller sees one uniform low-confidence error shape.
		p.logger.WithError(err).Error("date extraction failed")
		extraction = &oracle.DateExtraction{
			Confidence:  0,
			Explanation: fmt.Sprintf("Error during extraction: %v", err),
		}
	}

	confidence := extraction.Confidence
	if confidence < minExtractionConfidence {
		return &EmailResult{
			Status:      "Error",
			WONumber:    number,
			WorkOrderID: wo.ID,
			Confidence:  &confidence,
			Message:     fmt.Sprintf("AI confidence too low (%.2f). %s", confidence, extraction.Explanation),
		}
	}

	if extraction.SelectedDate == nil || *extraction.SelectedDate == "" {
		return &EmailResult{
			Status:      "Error",
			WONumber:    number,
			WorkOrderID: wo.ID,
			Confidence:  &confidence,
			Message:     "No date extracted from email",
		}
	}

	scheduled, err := time.Parse("2006-01-02", *extraction.SelectedDate)
	if err != nil {
		return &EmailResult{
			Status:      "Error",
			WONumber:    number,
			WorkOrderID: wo.ID,
			Confidence:  &confidence,
			Message:     fmt.Sprintf("Invalid date format: %v", err),
		}
	}
	if pm.DaysUntil(scheduled, time.Now()) < 0 {
		return &EmailResult{
			Status:      "Error",
			WONumber:    number,
			WorkOrderID: wo.ID,
			Confidence:  &confidence,
			Message:     fmt.Sprintf("Date %s is in the past", scheduled.Format("2006-01-02")),
		}
	}

	if _, err := p.workOrders.Update(ctx, wo.ID, workorder.UpdateParams{ScheduledDate: &scheduled}); err != nil {
		p.logger.WithError(err).WithField("wo_number", number).Error("failed to update work order")
		return &EmailResult{
			Status:      "Error",
			WONumber:    number,
			WorkOrderID: wo.ID,
			Confidence:  &confidence,
			Message:     "Failed to update work order",
		}
	}

	dateStr := scheduled.Format("2006-01-02")
	p.logger.WithFields(logrus.Fields{
		"wo_number":      number,
		"scheduled_date": dateStr,
		"confidence":     confidence,
	}).Info("scheduled date updated from email")

	return &EmailResult{
		Status:        "Success",
		WONumber:      number,
		WorkOrderID:   wo.ID,
		ExtractedDate: dateStr,
		Confidence:    &confidence,
		Message:       fmt.Sprintf("Work order %s scheduled date updated to %s", number, dateStr),
		Updated:       true,
	}
}

func (p *EmailPipeline) internalError(number string, err error) *EmailResult {
	p.logger.WithError(err).Error("email date extraction failed")
	return &EmailResult{
		Status:   "Error",
		WONumber: number,
		Message:  fmt.Sprintf("Internal error: %v", err),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
