// seed-rules loads per diem and EES rule rows from a JSON file into the
// rules tables. Existing rows for the same cost center are overwritten.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-rules rules.json
//
// The file shape:
//   {
//     "per_diem": [{"cost_center": "CC-104", "max_amount": "45.00", "use_actual_amount": true}],
//     "ees":      [{"cost_center": "CC-104", "expected_amount": "25.00"}]
//   }
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/models"
)

type ruleFile struct {
	PerDiem []models.PerDiemRule `json:"per_diem"`
	Ees     []models.EesRule     `json:"ees"`
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: seed-rules <rules.json>")
		os.Exit(2)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	var rules ruleFile
	if err := json.Unmarshal(data, &rules); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	for i := range rules.PerDiem {
		rule := rules.PerDiem[i]
		if rule.CostCenter == "" {
			fmt.Fprintf(os.Stderr, "per_diem[%d]: cost_center is required\n", i)
			os.Exit(1)
		}
		if err := models.UpsertPerDiemRule(ctx, &rule); err != nil {
			fmt.Fprintf(os.Stderr, "failed to upsert per diem rule for %s: %v\n", rule.CostCenter, err)
			os.Exit(1)
		}
		fmt.Printf("per diem rule %s: max=%s use_actual=%v\n", rule.CostCenter, rule.MaxAmount, rule.UseActualAmount)
	}

	for i := range rules.Ees {
		rule := rules.Ees[i]
		if rule.CostCenter == "" {
			fmt.Fprintf(os.Stderr, "ees[%d]: cost_center is required\n", i)
			os.Exit(1)
		}
		if err := models.UpsertEesRule(ctx, &rule); err != nil {
			fmt.Fprintf(os.Stderr, "failed to upsert EES rule for %s: %v\n", rule.CostCenter, err)
			os.Exit(1)
		}
		fmt.Printf("EES rule %s: expected=%s\n", rule.CostCenter, rule.ExpectedAmount)
	}

	fmt.Printf("done: %d per diem, %d EES rules\n", len(rules.PerDiem), len(rules.Ees))
}
