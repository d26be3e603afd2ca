package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"pm-workorder-backend/internal/model"
	"pm-workorder-backend/internal/pm"
)

// ErrNotConfigured is returned by a Sender that has no SMTP host or
// credentials to work with.
var ErrNotConfigured = errors.New("smtp not configured")

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// AIContext carries the decision rationale into supplier emails.
type AIContext struct {
	Explanation string
	Confidence  *float64
}

// Dispatcher renders and sends supplier emails. Every method soft-fails: a
// missing recipient, render problem, or transport error is logged and
// reported as false, never as an error, so email trouble cannot abort a
// state transition.
type Dispatcher struct {
	sender Sender
	logger *logrus.Logger
}

func NewDispatcher(sender Sender, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// WorkOrderCreated notifies the supplier that a new PM work order exists.
// ai is optional and adds the decision explanation block.
func (d *Dispatcher) WorkOrderCreated(ctx context.Context, m *model.Machine, wo *model.WorkOrder, ai *AIContext) bool {
	if m.SupplierEmail == "" {
		d.logger.WithField("machine_id", m.MachineID).Warn("no supplier email, notification skipped")
		return false
	}

	subject := fmt.Sprintf("PM Work Order - %s", m.MachineID)
	body, err := renderCreated(buildEmailData(m, wo, ai))
	if err != nil {
		d.logger.WithError(err).Error("failed to render work order email")
		return false
	}
	return d.send(ctx, m.SupplierEmail, subject, body, wo.WONumber)
}

// WorkOrderApproved notifies the supplier that the order was approved and
// work may start.
func (d *Dispatcher) WorkOrderApproved(ctx context.Context, m *model.Machine, wo *model.WorkOrder) bool {
	if m.SupplierEmail == "" {
		d.logger.WithField("machine_id", m.MachineID).Warn("no supplier email, notification skipped")
		return false
	}

	subject := fmt.Sprintf("Work Order Approved - %s", wo.WONumber)
	body, err := renderApproved(buildEmailData(m, wo, nil))
	if err != nil {
		d.logger.WithError(err).Error("failed to render approval email")
		return false
	}
	return d.send(ctx, m.SupplierEmail, subject, body, wo.WONumber)
}

// WorkOrderCompleted thanks the supplier and shows the rolled-over schedule.
func (d *Dispatcher) WorkOrderCompleted(ctx context.Context, m *model.Machine, wo *model.WorkOrder) bool {
	if m.SupplierEmail == "" {
		d.logger.WithField("machine_id", m.MachineID).Warn("no supplier email, notification skipped")
		return false
	}

	subject := fmt.Sprintf("Work Order Completed - %s", wo.WONumber)
	body, err := renderCompleted(buildEmailData(m, wo, nil))
	if err != nil {
		d.logger.WithError(err).Error("failed to render completion email")
		return false
	}
	return d.send(ctx, m.SupplierEmail, subject, body, wo.WONumber)
}

func (d *Dispatcher) send(ctx context.Context, to, subject, body, woNumber string) bool {
	err := d.sender.Send(ctx, to, subject, body)
	if errors.Is(err, ErrNotConfigured) {
		d.logger.Warn("smtp not configured, email not sent")
		d.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("would have sent email")
		return false
	}
	if err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"to":        to,
			"wo_number": woNumber,
		}).Error("failed to send email")
		return false
	}
	d.logger.WithFields(logrus.Fields{
		"to":        to,
		"wo_number": woNumber,
	}).Info("email sent")
	return true
}

func buildEmailData(m *model.Machine, wo *model.WorkOrder, ai *AIContext) emailData {
	days := pm.DaysUntil(m.NextPMDate, time.Now())
	data := emailData{
		Supplier:      m.AssignedSupplier,
		MachineID:     m.MachineID,
		MachineName:   m.Name,
		Location:      m.Location,
		PMFrequency:   string(m.PMFrequency),
		NextPMDate:    m.NextPMDate.Format("2006-01-02"),
		DaysUntilPM:   days,
		AbsDays:       days,
		Overdue:       days < 0,
		WONumber:      wo.WONumber,
		Priority:      string(wo.Priority),
		PriorityClass: "status-" + strings.ToLower(string(wo.Priority)),
		Status:        strings.ReplaceAll(string(wo.Status), "_", " "),
		CreatedAt:     wo.CreatedAt.Format("2006-01-02 15:04"),
		ApprovedBy:    wo.ApprovedBy,
		Notes:         wo.Notes,
		Year:          time.Now().Year(),
	}
	if data.Overdue {
		data.AbsDays = -days
	}
	if wo.ApprovedAt != nil {
		data.ApprovedAt = wo.ApprovedAt.Format("2006-01-02 15:04")
	}
	if wo.CompletedDate != nil {
		data.CompletedAt = wo.CompletedDate.Format("2006-01-02")
	}
	if ai != nil {
		data.AIExplanation = ai.Explanation
		if ai.Confidence != nil {
			data.AIConfidence = fmt.Sprintf("%.2f", *ai.Confidence)
		}
	}
	return data
}
