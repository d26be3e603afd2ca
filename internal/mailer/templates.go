package mailer

import (
	"bytes"
	"html/template"
)

type emailData struct {
	Supplier      string
	MachineID     string
	MachineName   string
	Location      string
	PMFrequency   string
	NextPMDate    string
	DaysUntilPM   int
	AbsDays       int
	Overdue       bool
	WONumber      string
	Priority      string
	PriorityClass string
	Status        string
	CreatedAt     string
	ApprovedBy    string
	ApprovedAt    string
	CompletedAt   string
	Notes         string
	AIExplanation string
	AIConfidence  string
	Year          int
}

const notesBlock = `{{if .Notes}}
<div style="background-color: #fff3cd; padding: 15px; margin: 15px 0; border-left: 4px solid #ffc107;">
    <p><strong>Notes:</strong></p>
    <p>{{.Notes}}</p>
</div>
{{end}}`

const aiBlock = `{{if .AIExplanation}}
<div style="background-color: #e3f2fd; padding: 15px; margin: 15px 0; border-left: 4px solid #2196f3;">
    <p><strong>AI Decision:</strong></p>
    <p>{{.AIExplanation}}</p>
    {{if .AIConfidence}}<p><em>Confidence: {{.AIConfidence}}</em></p>{{end}}
</div>
{{end}}`

const createdHTML = `<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #1976d2; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .info-table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        .info-table th { background-color: #e0e0e0; padding: 10px; text-align: left; }
        .info-table td { padding: 10px; border-bottom: 1px solid #ddd; }
        .footer { text-align: center; padding: 20px; font-size: 12px; color: #666; }
        .status-badge {
            display: inline-block;
            padding: 5px 10px;
            border-radius: 4px;
            font-weight: bold;
        }
        .status-urgent { background-color: #f44336; color: white; }
        .status-medium { background-color: #ff9800; color: white; }
        .status-low { background-color: #4caf50; color: white; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Preventive Maintenance Work Order</h1>
        </div>

        <div class="content">
            <p>Dear {{.Supplier}},</p>

            <p>This is an automated notification regarding preventive maintenance for the following machine:</p>

            <table class="info-table">
                <tr>
                    <th>Machine Information</th>
                    <th>Details</th>
                </tr>
                <tr>
                    <td><strong>Machine ID</strong></td>
                    <td>{{.MachineID}}</td>
                </tr>
                <tr>
                    <td><strong>Machine Name</strong></td>
                    <td>{{.MachineName}}</td>
                </tr>
                <tr>
                    <td><strong>Location</strong></td>
                    <td>{{.Location}}</td>
                </tr>
                <tr>
                    <td><strong>PM Frequency</strong></td>
                    <td>{{.PMFrequency}}</td>
                </tr>
                <tr>
                    <td><strong>Next PM Date</strong></td>
                    <td>{{.NextPMDate}}</td>
                </tr>
                <tr>
                    <td><strong>Days Until PM</strong></td>
                    <td>{{.AbsDays}} days {{if .Overdue}}overdue{{else}}remaining{{end}}</td>
                </tr>
            </table>

            <table class="info-table">
                <tr>
                    <th>Work Order Information</th>
                    <th>Details</th>
                </tr>
                <tr>
                    <td><strong>Work Order Number</strong></td>
                    <td>{{.WONumber}}</td>
                </tr>
                <tr>
                    <td><strong>Priority</strong></td>
                    <td><span class="status-badge {{.PriorityClass}}">{{.Priority}}</span></td>
                </tr>
                <tr>
                    <td><strong>Status</strong></td>
                    <td>{{.Status}}</td>
                </tr>
                <tr>
                    <td><strong>Created</strong></td>
                    <td>{{.CreatedAt}}</td>
                </tr>
            </table>

            {{template "notes" .}}

            {{template "ai" .}}

            <p><strong>Action Required:</strong></p>
            <p>Please schedule the preventive maintenance for this machine at your earliest convenience.</p>

            <p>If you have any questions, please contact the maintenance team.</p>

            <p>Best regards,<br>
            <strong>PM - AI-Assisted Demo</strong></p>
        </div>

        <div class="footer">
            <p>This is an automated message from the AI-Assisted Preventive Maintenance System.</p>
            <p>&copy; {{.Year}} PM - AI-Assisted Demo System. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

const approvedHTML = `<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4caf50; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .info-box { background-color: white; padding: 15px; margin: 15px 0; border-left: 4px solid #4caf50; }
        .footer { text-align: center; padding: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>&#10003; Work Order Approved</h1>
        </div>

        <div class="content">
            <p>Dear Admin/Support,</p>

            <p>The work order for preventive maintenance has been approved and is ready for execution.</p>

            <div class="info-box">
                <p><strong>Work Order:</strong> {{.WONumber}}</p>
                <p><strong>Machine:</strong> {{.MachineID}} - {{.MachineName}}</p>
                <p><strong>Location:</strong> {{.Location}}</p>
                <p><strong>Approved By:</strong> {{.ApprovedBy}}</p>
                <p><strong>Approved At:</strong> {{.ApprovedAt}}</p>
            </div>

            <p>You may now proceed with the scheduled maintenance.</p>

            <p>Best regards,<br>
            <strong>PM - AI-Assisted Demo</strong></p>
        </div>

        <div class="footer">
            <p>This is an automated message from the AI-Assisted Preventive Maintenance System.</p>
        </div>
    </div>
</body>
</html>`

const completedHTML = `<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #2196f3; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .info-box { background-color: white; padding: 15px; margin: 15px 0; border-left: 4px solid #2196f3; }
        .success-badge {
            display: inline-block;
            background-color: #4caf50;
            color: white;
            padding: 8px 15px;
            border-radius: 4px;
            font-weight: bold;
            margin: 10px 0;
        }
        .footer { text-align: center; padding: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>&#10003; Work Order Completed</h1>
        </div>

        <div class="content">
            <p>Dear {{.Supplier}},</p>

            <p>Thank you for completing the preventive maintenance work order.</p>

            <div class="success-badge">&#10003; COMPLETED</div>

            <div class="info-box">
                <p><strong>Work Order:</strong> {{.WONumber}}</p>
                <p><strong>Machine:</strong> {{.MachineID}} - {{.MachineName}}</p>
                <p><strong>Location:</strong> {{.Location}}</p>
                <p><strong>Completed At:</strong> {{.CompletedAt}}</p>
                <p><strong>Priority:</strong> {{.Priority}}</p>
            </div>

            <div class="info-box">
                <p><strong>Maintenance Schedule Updated:</strong></p>
                <p>Next PM Date: {{.NextPMDate}}</p>
                <p>PM Frequency: {{.PMFrequency}}</p>
            </div>

            {{template "notes" .}}

            <p>This work order has been marked as completed in our system. The machine's next preventive maintenance schedule has been updated accordingly.</p>

            <p>If you have any questions or concerns about this work order, please contact the maintenance team.</p>

            <p>Best regards,<br>
            <strong>PM - AI-Assisted Demo</strong></p>
        </div>

        <div class="footer">
            <p>This is an automated message from the AI-Assisted Preventive Maintenance System.</p>
            <p>&copy; {{.Year}} PM - AI-Assisted Demo System. All rights reserved.</p>
        </div>
    </div>
</body>
</html>`

var (
	createdTmpl   = mustParse("created", createdHTML)
	approvedTmpl  = mustParse("approved", approvedHTML)
	completedTmpl = mustParse("completed", completedHTML)
)

func mustParse(name, body string) *template.Template {
	t := template.New(name)
	template.Must(t.New("notes").Parse(notesBlock))
	template.Must(t.New("ai").Parse(aiBlock))
	return template.Must(t.Parse(body))
}

func renderCreated(data emailData) (string, error) {
	return render(createdTmpl, data)
}

func renderApproved(data emailData) (string, error) {
	return render(approvedTmpl, data)
}

func renderCompleted(data emailData) (string, error) {
	return render(completedTmpl, data)
}

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
