package oracle

import (
	"fmt"
	"strings"
)

const decisionSystemPrompt = `You are an AI assistant for preventive maintenance management.
Your task is to analyze machine data and decide the appropriate action for preventive maintenance.

**Decision Rules (Apply in STRICT order):**
1. SEND_NOTIFICATION: If ANY work order has status "Approved" → Notify supplier to schedule work
2. WAIT: If ANY work order has status "Pending_Approval" or "Draft" → Wait for approval/completion
3. CREATE_WORK_ORDER: If NO work orders exist AND (PM is overdue OR due within 30 days) → Create new work order
4. WAIT: If PM is not urgent (more than 30 days away) AND no work orders exist → Wait until closer to due date

**Critical Rules:**
- "Overdue" means days_until_pm is NEGATIVE (e.g., -5 means 5 days overdue)
- "Due within 30 days" means days_until_pm is between -999 and 30 (includes overdue!)
- ALWAYS check existing_work_orders FIRST before creating a new work order
- If machine is overdue and has NO work orders, you MUST choose CREATE_WORK_ORDER
- "Approved" status means supplier needs to be notified to start work immediately
- Do not create duplicate work orders if one already exists in ANY status

**Priority Rules:**
- High: PM is overdue (days_until_pm < 0) OR due within 7 days
- Medium: PM is due within 8-21 days
- Low: PM is due within 22-30 days

**Confidence Guidelines:**
- 0.9-1.0: Very clear decision based on rules (e.g., overdue with no work order)
- 0.7-0.89: Confident but some ambiguity
- 0.5-0.69: Moderate confidence, requires review
- Below 0.5: Low confidence, manual review required

**IMPORTANT:**
- Return ONLY valid JSON matching this exact schema
- Do not include any explanatory text outside the JSON
- Ensure confidence is a decimal between 0.0 and 1.0
- Provide clear, concise explanation

**Response Schema:**
{
  "decision": "CREATE_WORK_ORDER | WAIT | SEND_NOTIFICATION",
  "priority": "Low | Medium | High",
  "confidence": 0.0,
  "explanation": "string"
}`

const dateExtractionSystemPrompt = `You are a date extraction assistant for maintenance scheduling emails.
Your task is to extract the scheduled maintenance date from email content.

**Instructions:**
1. Look for explicit dates in the email (e.g., "January 15, 2024", "2024-01-15", "15/01/2024")
2. Identify dates that refer to scheduled work, appointments, or planned maintenance
3. Ignore email timestamps, past events, or unrelated dates
4. Return the date in ISO format (YYYY-MM-DD)
5. Only select dates that are in the future or today

**Confidence Guidelines:**
- 0.9-1.0: Clear, explicit scheduled date mentioned
- 0.7-0.89: Likely date but some ambiguity
- 0.5-0.69: Uncertain, multiple dates or unclear context
- Below 0.5: No clear scheduled date found

**Response Schema (JSON only):**
{
  "selected_date": "2024-01-15",
  "confidence": 0.95,
  "explanation": "Found scheduled maintenance date mentioned explicitly in email"
}

If no clear date is found, return:
{
  "selected_date": null,
  "confidence": 0.0,
  "explanation": "No scheduled date found in email"
}`

// buildUserPrompt renders the decision context. Only the five most recent
// history records are shown so the prompt stays small for frequently
// serviced machines.
func buildUserPrompt(req DecisionRequest) string {
	status := "OK"
	if req.Machine.DaysUntilPM < 0 {
		status = "OVERDUE"
	} else if req.Machine.DaysUntilPM <= 30 {
		status = "DUE SOON"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Machine Information:**\n")
	fmt.Fprintf(&b, "- Machine ID: %s\n", req.Machine.MachineID)
	fmt.Fprintf(&b, "- Name: %s\n", req.Machine.Name)
	fmt.Fprintf(&b, "- Location: %s\n", req.Machine.Location)
	fmt.Fprintf(&b, "- PM Frequency: %s\n", req.Machine.PMFrequency)
	fmt.Fprintf(&b, "- Last PM Date: %s\n", req.Machine.LastPMDate)
	fmt.Fprintf(&b, "- Next PM Date: %s\n", req.Machine.NextPMDate)
	fmt.Fprintf(&b, "- Days Until PM: %d days (%s)\n", req.Machine.DaysUntilPM, status)
	fmt.Fprintf(&b, "- Assigned Supplier: %s\n\n", req.Machine.AssignedSupplier)

	fmt.Fprintf(&b, "**Recent Maintenance History (%d records):**\n", len(req.History))
	b.WriteString(formatHistory(req.History))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "**Existing Work Orders (%d active):**\n", len(req.WorkOrders))
	b.WriteString(formatWorkOrders(req.WorkOrders))
	b.WriteString("\n\n")

	b.WriteString("**Your Task:**\nBased on the above information, provide your decision in JSON format only.\n")
	return b.String()
}

func formatHistory(history []HistoryEntry) string {
	if len(history) == 0 {
		return "No recent maintenance history available."
	}
	if len(history) > 5 {
		history = history[:5]
	}
	lines := make([]string, 0, len(history))
	for _, h := range history {
		notes := h.Notes
		if notes == "" {
			notes = "N/A"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s - %s", h.Date, h.Type, notes))
	}
	return strings.Join(lines, "\n")
}

func formatWorkOrders(orders []WorkOrderEntry) string {
	if len(orders) == 0 {
		return "No active work orders."
	}
	var approved, pending int
	lines := make([]string, 0, len(orders))
	for _, wo := range orders {
		lines = append(lines, fmt.Sprintf("- WO %s: Status=%s, Priority=%s, Created=%s",
			wo.WONumber, wo.Status, wo.Priority, wo.CreatedAt))
		switch wo.Status {
		case "Approved":
			approved++
		case "Pending_Approval", "Draft":
			pending++
		}
	}
	summary := fmt.Sprintf("Total: %d work order(s) - %d Approved, %d Pending/Draft\n",
		len(orders), approved, pending)
	return summary + strings.Join(lines, "\n")
}

func buildDateExtractionPrompt(emailBody string) string {
	return fmt.Sprintf("**Email Body:**\n%s\n\n**Your Task:**\nExtract the scheduled maintenance date from this email. Return your analysis in JSON format only.", emailBody)
}
