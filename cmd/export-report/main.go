// export-report writes one employee-month expense workbook to disk without
// going through the HTTP server. Handy for finance backfills.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/export-report -employee 12 -month 2026-01 -out report.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/workflow"
)

func main() {
	employeeId := flag.Int("employee", 0, "employee id (required)")
	monthStr := flag.String("month", "", "month as YYYY-MM (required)")
	out := flag.String("out", "", "output path (default expense-report-<employee>-<month>.xlsx)")
	flag.Parse()

	if *employeeId <= 0 || *monthStr == "" {
		flag.Usage()
		os.Exit(2)
	}
	month, err := time.Parse("2006-01", *monthStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid month %q: %v\n", *monthStr, err)
		os.Exit(2)
	}
	path := *out
	if path == "" {
		path = fmt.Sprintf("expense-report-%d-%s.xlsx", *employeeId, month.Format("2006-01"))
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	data, err := workflow.MonthlyReport(context.Background(), *employeeId, month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "report generation failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d bytes)\n", path, len(data))
}
