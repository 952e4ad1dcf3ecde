package main

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/propertilaw/propertilaw/internal/models"
)

func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}

	// Auto-migrate to see what GORM creates
	err = db.AutoMigrate(
		&models.LawFirm{},
		&models.FirmUser{},
		&models.FirmSettings{},
		&models.PropertyMgmtClient{},
		&models.ClientUser{},
		&models.Integration{},
		&models.Property{},
		&models.Unit{},
		&models.Tenant{},
		&models.Case{},
		&models.CaseTenant{},
		&models.CaseEvent{},
		&models.Comment{},
		&models.Document{},
		&models.DocumentTemplate{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatal(err)
	}

	// Get the schema
	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table'").Scan(&tables)

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var schema string
		db.Raw(fmt.Sprintf("SELECT sql FROM sqlite_master WHERE name='%s'", table)).Scan(&schema)
		fmt.Println(schema)
	}
}
