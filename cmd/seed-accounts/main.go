// seed-accounts creates the default chart of accounts for one tenant,
// each account tagged with its system default code so the posting
// engine resolves every role without manual mapping.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/seed-accounts -business <uuid>
//
// Pass -create-business to bootstrap the business row first.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bitbucket.org/siddhisoft/distbooks_backend/config"
	"bitbucket.org/siddhisoft/distbooks_backend/models"
	"bitbucket.org/siddhisoft/distbooks_backend/utils"
)

type seedAccount struct {
	Name      string
	GroupName string
	MainType  models.AccountMainType
	Code      string
}

var defaultChart = []seedAccount{
	{"Sales", "Sales Accounts", models.AccountMainTypeIncome, models.AccountCodeSales},
	{"Purchases", "Purchase Accounts", models.AccountMainTypeExpense, models.AccountCodePurchase},
	{"CGST Output", "Duties & Taxes", models.AccountMainTypeLiability, models.AccountCodeCGSTOutput},
	{"SGST Output", "Duties & Taxes", models.AccountMainTypeLiability, models.AccountCodeSGSTOutput},
	{"IGST Output", "Duties & Taxes", models.AccountMainTypeLiability, models.AccountCodeIGSTOutput},
	{"CGST Input", "Duties & Taxes", models.AccountMainTypeAsset, models.AccountCodeCGSTInput},
	{"SGST Input", "Duties & Taxes", models.AccountMainTypeAsset, models.AccountCodeSGSTInput},
	{"IGST Input", "Duties & Taxes", models.AccountMainTypeAsset, models.AccountCodeIGSTInput},
	{"TDS Payable", "Duties & Taxes", models.AccountMainTypeLiability, models.AccountCodeTDSPayable},
	{"TCS Payable", "Duties & Taxes", models.AccountMainTypeLiability, models.AccountCodeTCSPayable},
	{"Round Off", "Indirect Expenses", models.AccountMainTypeExpense, models.AccountCodeRoundOff},
	{"Bank", "Bank Accounts", models.AccountMainTypeAsset, models.AccountCodeBank},
	{"Cash", "Cash-in-Hand", models.AccountMainTypeAsset, models.AccountCodeCash},
	{"Sundry Debtors", "Sundry Debtors", models.AccountMainTypeAsset, models.AccountCodeDebtors},
	{"Sundry Creditors", "Sundry Creditors", models.AccountMainTypeLiability, models.AccountCodeCreditors},
	{"GST Interest", "Indirect Expenses", models.AccountMainTypeExpense, models.AccountCodeGSTInterest},
	{"GST Penalty", "Indirect Expenses", models.AccountMainTypeExpense, models.AccountCodeGSTPenalty},
	{"GST Late Fee", "Indirect Expenses", models.AccountMainTypeExpense, models.AccountCodeGSTLateFee},
	{"GST Other Charges", "Indirect Expenses", models.AccountMainTypeExpense, models.AccountCodeGSTOther},
}

func main() {
	businessFlag := flag.String("business", "", "business id (uuid); defaults to BUSINESS_ID env")
	createBusiness := flag.Bool("create-business", false, "create the business row if missing")
	businessName := flag.String("name", "Seeded Distributor", "business name when creating")
	stateCode := flag.String("state", "27", "GST state code when creating")
	flag.Parse()

	businessId := strings.TrimSpace(*businessFlag)
	if businessId == "" {
		businessId = strings.TrimSpace(os.Getenv("BUSINESS_ID"))
	}
	if businessId == "" {
		fmt.Fprintln(os.Stderr, "business id is required: pass -business or set BUSINESS_ID")
		os.Exit(2)
	}
	businessUuid, err := uuid.Parse(businessId)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid business id %q: %v\n", businessId, err)
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := utils.SetBusinessIdInContext(context.Background(), businessId)
	ctx = utils.SetUserNameInContext(ctx, "Seed")

	if err := ensureBusiness(ctx, db, businessUuid, *createBusiness, *businessName, *stateCode); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	created, skipped := 0, 0
	for _, acc := range defaultChart {
		_, err := models.CreateLedgerAccount(ctx, &models.NewLedgerAccount{
			Name:              acc.Name,
			GroupName:         acc.GroupName,
			MainType:          acc.MainType,
			SystemDefaultCode: acc.Code,
		})
		if err != nil {
			if errors.Is(err, utils.ErrorDuplicateValue) {
				skipped++
				continue
			}
			fmt.Fprintf(os.Stderr, "failed to create account %q: %v\n", acc.Name, err)
			os.Exit(1)
		}
		created++
	}
	fmt.Printf("seeded chart for business %s: %d created, %d already present\n", businessId, created, skipped)
}

func ensureBusiness(ctx context.Context, db *gorm.DB, businessUuid uuid.UUID, create bool, name string, stateCode string) error {
	_, err := models.GetBusinessById(db.WithContext(ctx), businessUuid.String())
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrRecordNotFound) {
		return fmt.Errorf("failed to lookup business: %w", err)
	}
	if !create {
		return fmt.Errorf("business %s not found; pass -create-business to bootstrap it", businessUuid)
	}
	business := models.Business{
		ID:        businessUuid,
		Name:      name,
		StateCode: stateCode,
		IsActive:  utils.NewTrue(),
	}
	return db.WithContext(ctx).Create(&business).Error
}
