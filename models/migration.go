package models

import (
	"log"

	"github.com/commissionedge/crm_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Tenant{}, &User{}, &Setting{},
		&Vendor{}, &Opportunity{}, &OpportunityProduct{}, &Product{},
		&Deposit{}, &DepositLineItem{}, &DepositLineMatch{}, &DepositMatchGroup{},
		&RevenueSchedule{}, &CommissionPayout{},
		&AuditLog{}, &ReconEventRecord{}, &Document{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
