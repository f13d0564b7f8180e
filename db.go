package main

import (
	"log"
	"os"
	"strings"

	"pricescan/process/history"
)

// initDB connects the scan history. Schema migration is controlled with env
// DB_AUTO_MIGRATE (default true); migration errors are logged and ignored.
func initDB(dsn string) error {
	gdb, err := history.Open(dsn)
	if err != nil {
		return err
	}
	db = gdb
	if !autoMigrate() {
		return nil
	}
	if err := history.Migrate(db); err != nil {
		log.Printf("migration warning: %v", err)
	}
	return nil
}

func autoMigrate() bool {
	v := os.Getenv("DB_AUTO_MIGRATE")
	if v == "" {
		return true
	}
	switch strings.ToLower(v) {
	case "false", "0", "no":
		return false
	}
	return true
}
