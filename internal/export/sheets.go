// Package export appends monthly budget reports to a Google spreadsheet.
// Optional: the worker only wires it up when a spreadsheet id is configured.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetpulse/internal/core"
)

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsExporter creates an exporter with inline service-account
// credentials. Pass credentialsJSON empty to fall back to the
// GOOGLE_APPLICATION_CREDENTIALS file.
func NewSheetsExporter(ctx context.Context, spreadsheetID, sheetName, credentialsJSON string) (*SheetsExporter, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(credentialsJSON)))
	case os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "":
		// library picks the file up itself
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsExporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendMonthlyReport appends one row per report: period, budgeted, spent,
// projected, percentage used and the health classification.
func (e *SheetsExporter) AppendMonthlyReport(ctx context.Context, userID string, progress core.MonthlyProgress) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:G", e.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{{
		userID,
		progress.Period.Key(),
		progress.TotalBudgeted.StringFixed(2),
		progress.TotalSpent.StringFixed(2),
		progress.ProjectedSpend.StringFixed(2),
		progress.PercentageUsed,
		string(progress.HealthStatus),
	}}}

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append report row to %s: %w", e.sheetName, err)
	}
	return nil
}
