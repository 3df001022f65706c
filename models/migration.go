package models

import (
	"log"

	"github.com/gregweisz-cmd/oxford-mileage-tracker-sub008/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Employee{},
		&ExpenseEntry{}, &DayRecord{},
		&PerDiemRule{}, &EesRule{},
		&AnomalyEvent{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
