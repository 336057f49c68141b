package models

import (
	"bitbucket.org/siddhisoft/distbooks_backend/config"
)

// MigrateTable runs AutoMigrate for every persisted model. DDL can
// block busy tables, so startup honors SKIP_MIGRATIONS and runs this
// as a separate job instead.
func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Business{},
		&LedgerAccount{},
		&Party{},
		&Item{},
		&Voucher{},
		&VoucherItem{},
		&AccountJournal{},
		&LedgerPosting{},
		&DocumentSeries{},
		&IdempotencyKey{},
	)
	if err != nil {
		config.GetLogger().Panic("migration failed: " + err.Error())
	}
}
