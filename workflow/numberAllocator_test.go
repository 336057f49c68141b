package workflow

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

// fakeAllocator keys sequences the way the storage layer does, so two
// prefixes under one voucher type advance independently.
type fakeAllocator struct {
	next map[string]int64
}

func (f *fakeAllocator) ReserveNext(ctx context.Context, tx *gorm.DB, businessId string, voucherType models.VoucherType, prefix string, fiscalYear string) (models.DocumentSeries, int64, error) {
	if f.next == nil {
		f.next = map[string]int64{}
	}
	key := businessId + "|" + string(voucherType) + "|" + prefix + "|" + fiscalYear
	if f.next[key] == 0 {
		f.next[key] = 1
	}
	seq := f.next[key]
	f.next[key] = seq + 1
	return models.DocumentSeries{
		BusinessId:   businessId,
		VoucherType:  voucherType,
		Prefix:       prefix,
		FiscalYear:   fiscalYear,
		NextSequence: seq + 1,
		PadWidth:     4,
	}, seq, nil
}

func (f *fakeAllocator) Exists(tx *gorm.DB, businessId string, voucherType models.VoucherType, voucherNumber string) (bool, error) {
	return false, nil
}

func TestAssignVoucherNumberKeepsPrefixesIndependent(t *testing.T) {
	alloc := &fakeAllocator{}
	in := baseInput(models.VoucherTypePurchaseInvoice)

	first := &models.Voucher{}
	if err := assignVoucherNumber(context.Background(), nil, alloc, "biz-1", first, in); err != nil {
		t.Fatalf("default prefix: %v", err)
	}
	if first.VoucherNumber != "PI/25-26/0001" {
		t.Fatalf("default prefix number %q, want PI/25-26/0001", first.VoucherNumber)
	}

	in.SeriesPrefix = "BRANCH2"
	second := &models.Voucher{}
	if err := assignVoucherNumber(context.Background(), nil, alloc, "biz-1", second, in); err != nil {
		t.Fatalf("branch prefix: %v", err)
	}
	if second.SeriesPrefix != "BRANCH2" {
		t.Fatalf("series prefix %q, want BRANCH2", second.SeriesPrefix)
	}
	// A caller-supplied prefix must get its own sequence, never fold
	// into the default series for the voucher type.
	if second.VoucherNumber != "BRANCH2/25-26/0001" {
		t.Fatalf("branch prefix number %q, want BRANCH2/25-26/0001", second.VoucherNumber)
	}

	third := &models.Voucher{}
	if err := assignVoucherNumber(context.Background(), nil, alloc, "biz-1", third, in); err != nil {
		t.Fatalf("branch prefix again: %v", err)
	}
	if third.VoucherNumber != "BRANCH2/25-26/0002" {
		t.Fatalf("branch prefix number %q, want BRANCH2/25-26/0002", third.VoucherNumber)
	}
}

func TestNextFreeSequenceSkipsTakenSlots(t *testing.T) {
	// Sequence slots occupied by explicitly numbered vouchers are
	// skipped instead of being reserved into a guaranteed collision.
	taken := map[int64]bool{5: true, 6: true}
	seq, err := nextFreeSequence(5, func(s int64) (bool, error) {
		return taken[s], nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq != 7 {
		t.Fatalf("got sequence %d, want 7", seq)
	}

	seq, err = nextFreeSequence(1, func(s int64) (bool, error) {
		return false, nil
	})
	if err != nil || seq != 1 {
		t.Fatalf("got %d, %v; want 1, nil", seq, err)
	}

	lookupErr := errors.New("lookup failed")
	if _, err := nextFreeSequence(1, func(int64) (bool, error) {
		return false, lookupErr
	}); !errors.Is(err, lookupErr) {
		t.Fatalf("got %v, want lookup error", err)
	}
}
