package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/zedbites/backoffice/models"
	"github.com/zedbites/backoffice/utils"
)

// RenderedReport is the subject and HTML body for one recipient.
type RenderedReport struct {
	Subject string
	HTML    string
}

var reportFuncs = template.FuncMap{
	"currency": utils.FormatCurrency,
	"decimal":  utils.FormatDecimal,
	"pct": func(v float64) string {
		if v > 0 {
			return fmt.Sprintf("+%.1f%%", v)
		}
		return fmt.Sprintf("%.1f%%", v)
	},
}

const reportLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="font-family:Arial,sans-serif;color:#222;max-width:640px;margin:0 auto">
<h2 style="color:#c0392b">ZedBites</h2>
<p>Hello {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
{{template "body" .}}
<p style="color:#888;font-size:12px">You are receiving this because you subscribed to the {{.Type}} report.</p>
</body>
</html>`

const dailyBody = `{{define "body"}}{{with .Data}}
<p>Here is the summary for <strong>{{.Date}}</strong>.</p>
<table cellpadding="6" style="border-collapse:collapse">
<tr><td>Orders</td><td><strong>{{.OrderCount}}</strong></td></tr>
<tr><td>Revenue</td><td><strong>{{currency .Revenue}}</strong></td></tr>
<tr><td>Low stock items</td><td><strong>{{.InventoryAlerts}}</strong></td></tr>
<tr><td>Active recipes</td><td><strong>{{.ActiveRecipes}}</strong></td></tr>
</table>
{{end}}{{end}}`

const weeklyBody = `{{define "body"}}{{with .Data}}
<p>Here is the summary for the week <strong>{{.WeekStart}}</strong> to <strong>{{.WeekEnd}}</strong>.</p>
<table cellpadding="6" style="border-collapse:collapse">
<tr><td>Orders</td><td><strong>{{.TotalOrders}}</strong></td></tr>
<tr><td>Revenue</td><td><strong>{{currency .TotalRevenue}}</strong></td></tr>
<tr><td>Average order</td><td><strong>{{currency .AverageOrderValue}}</strong></td></tr>
<tr><td>Inventory turnover</td><td><strong>{{decimal .InventoryTurnover}}</strong></td></tr>
<tr><td>Growth vs last week</td><td><strong>{{pct .GrowthPercent}}</strong></td></tr>
{{if .SatisfactionScore}}<tr><td>Customer satisfaction</td><td><strong>{{decimal .SatisfactionScore}} / 5</strong></td></tr>{{end}}
</table>
{{if .TopItems}}<h3>Top sellers</h3>
<ol>{{range .TopItems}}<li>{{.Name}}: {{.Quantity}} sold, {{currency .Revenue}}</li>{{end}}</ol>
{{end}}{{end}}{{end}}`

var (
	dailyTemplate  = template.Must(template.Must(template.New("daily").Funcs(reportFuncs).Parse(reportLayout)).Parse(dailyBody))
	weeklyTemplate = template.Must(template.Must(template.New("weekly").Funcs(reportFuncs).Parse(reportLayout)).Parse(weeklyBody))
)

type reportView struct {
	Subject string
	Name    string
	Type    models.ReportType
	Data    interface{}
}

// ReportSubject is the email subject line for a snapshot.
func ReportSubject(reportType models.ReportType, snapshot interface{}) string {
	switch s := snapshot.(type) {
	case *DailyMetrics:
		return fmt.Sprintf("ZedBites Daily Report - %s", s.Date)
	case *WeeklyMetrics:
		return fmt.Sprintf("ZedBites Weekly Report - %s to %s", s.WeekStart, s.WeekEnd)
	}
	return fmt.Sprintf("ZedBites %s report", reportType)
}

// RenderReport renders the snapshot personalised for one recipient.
func RenderReport(reportType models.ReportType, snapshot interface{}, recipientName string) (*RenderedReport, error) {
	var tmpl *template.Template
	switch reportType {
	case models.ReportDaily:
		if _, ok := snapshot.(*DailyMetrics); !ok {
			return nil, fmt.Errorf("daily report needs *DailyMetrics, got %T", snapshot)
		}
		tmpl = dailyTemplate
	case models.ReportWeekly:
		if _, ok := snapshot.(*WeeklyMetrics); !ok {
			return nil, fmt.Errorf("weekly report needs *WeeklyMetrics, got %T", snapshot)
		}
		tmpl = weeklyTemplate
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, reportType)
	}

	view := reportView{
		Subject: ReportSubject(reportType, snapshot),
		Name:    recipientName,
		Type:    reportType,
		Data:    snapshot,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render %s report: %w", reportType, err)
	}
	return &RenderedReport{Subject: view.Subject, HTML: buf.String()}, nil
}
