package workflow

import (
	"context"
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

// NumberAllocator hands out gap-free voucher numbers per tenant,
// voucher type, series prefix and fiscal year. ReserveNext must be
// called inside the submission transaction so an aborted voucher
// releases its number with the rollback.
type NumberAllocator interface {
	ReserveNext(ctx context.Context, tx *gorm.DB, businessId string, voucherType models.VoucherType, prefix string, fiscalYear string) (models.DocumentSeries, int64, error)
	Exists(tx *gorm.DB, businessId string, voucherType models.VoucherType, voucherNumber string) (bool, error)
}

type seriesAllocator struct{}

func NewNumberAllocator() NumberAllocator {
	return seriesAllocator{}
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// ReserveNext locks the series row with SELECT ... FOR UPDATE, bumps
// the counter and returns the reserved sequence. A missing series is
// created on the fly starting at 1. Sequence slots already occupied by
// an explicitly numbered voucher are skipped, otherwise the reserved
// number would collide on every retry. Lock or write failures map to
// ErrAllocatorUnavailable so callers can surface a retryable error.
func (a seriesAllocator) ReserveNext(ctx context.Context, tx *gorm.DB, businessId string, voucherType models.VoucherType, prefix string, fiscalYear string) (models.DocumentSeries, int64, error) {
	var series models.DocumentSeries
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_id = ?", businessId).
		Where("voucher_type = ?", voucherType).
		Where("prefix = ?", prefix).
		Where("fiscal_year = ?", fiscalYear).
		First(&series).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		series = models.DocumentSeries{
			BusinessId:   businessId,
			VoucherType:  voucherType,
			FiscalYear:   fiscalYear,
			Prefix:       prefix,
			NextSequence: 1,
			PadWidth:     4,
		}
		if err := tx.WithContext(ctx).Create(&series).Error; err != nil {
			if isDuplicateKeyErr(err) {
				// Lost the creation race; take the row lock on the winner.
				return a.ReserveNext(ctx, tx, businessId, voucherType, prefix, fiscalYear)
			}
			return models.DocumentSeries{}, 0, fmt.Errorf("%w: %v", models.ErrAllocatorUnavailable, err)
		}
	} else if err != nil {
		return models.DocumentSeries{}, 0, fmt.Errorf("%w: %v", models.ErrAllocatorUnavailable, err)
	}

	reserved, err := nextFreeSequence(series.NextSequence, func(seq int64) (bool, error) {
		number := models.FormatVoucherNumber(series.Prefix, fiscalYear, seq, series.PadWidth)
		return a.Exists(tx, businessId, voucherType, number)
	})
	if err != nil {
		return models.DocumentSeries{}, 0, fmt.Errorf("%w: %v", models.ErrAllocatorUnavailable, err)
	}
	if err := tx.WithContext(ctx).Model(&models.DocumentSeries{}).
		Where("id = ?", series.ID).
		Update("next_sequence", reserved+1).Error; err != nil {
		return models.DocumentSeries{}, 0, fmt.Errorf("%w: %v", models.ErrAllocatorUnavailable, err)
	}
	series.NextSequence = reserved + 1
	return series, reserved, nil
}

// nextFreeSequence walks forward from the series counter until it
// finds a sequence whose formatted number is not already taken by an
// explicitly numbered voucher.
func nextFreeSequence(start int64, taken func(int64) (bool, error)) (int64, error) {
	seq := start
	for {
		used, err := taken(seq)
		if err != nil {
			return 0, err
		}
		if !used {
			return seq, nil
		}
		seq++
	}
}

// Exists reports whether a voucher already carries this number. The
// unique index re-checks at commit; this check exists to fail before
// any write happens.
func (seriesAllocator) Exists(tx *gorm.DB, businessId string, voucherType models.VoucherType, voucherNumber string) (bool, error) {
	var count int64
	err := tx.Model(&models.Voucher{}).
		Where("business_id = ?", businessId).
		Where("voucher_type = ?", voucherType).
		Where("voucher_number = ?", voucherNumber).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
