package workflow

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"

	"bitbucket.org/siddhisoft/distbooks_backend/models"
)

// NOTE: These tests are intentionally DB-free. They validate the
// submission semantics that do not need MySQL: tagged-union input
// validation, place-of-supply derivation, and the serialization plus
// dedupe contract the lock and idempotency key provide together.
// Full DB integration tests need an environment with MySQL + redis.

func baseInput(vt models.VoucherType) SubmitVoucherInput {
	in := SubmitVoucherInput{
		VoucherType: vt,
		VoucherDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		PartyId:     42,
	}
	switch {
	case isItemVoucher(vt):
		in.Lines = []LineRequest{{ItemName: "Widget", Qty: d("1"), Rate: d("100")}}
	case vt == models.VoucherTypeJournal:
		in.Journal = []JournalRow{
			{AccountId: 1, Debit: d("100")},
			{AccountId: 2, Credit: d("100")},
		}
	default:
		in.TaxPayment = &TaxPaymentDetails{Amount: d("100")}
	}
	return in
}

func TestValidateSectionsAcceptsMatchingSection(t *testing.T) {
	for vt := range defaultSeriesPrefix {
		in := baseInput(vt)
		if err := in.validateSections(); err != nil {
			t.Fatalf("%s: unexpected error: %v", vt, err)
		}
	}
}

func TestValidateSectionsRejectsMissingSection(t *testing.T) {
	cases := []models.VoucherType{
		models.VoucherTypePurchaseInvoice,
		models.VoucherTypeJournal,
		models.VoucherTypeGSTPayment,
	}
	for _, vt := range cases {
		in := SubmitVoucherInput{VoucherType: vt, VoucherDate: time.Now()}
		if err := in.validateSections(); !errors.Is(err, models.ErrEmptyDocument) {
			t.Fatalf("%s: got %v, want ErrEmptyDocument", vt, err)
		}
	}
}

func TestValidateSectionsRejectsMixedSections(t *testing.T) {
	in := baseInput(models.VoucherTypePurchaseInvoice)
	in.Journal = []JournalRow{{AccountId: 1, Debit: d("100")}}
	if err := in.validateSections(); !errors.Is(err, models.ErrInvalidLine) {
		t.Fatalf("lines+journal: got %v, want ErrInvalidLine", err)
	}

	in = baseInput(models.VoucherTypeJournal)
	in.TaxPayment = &TaxPaymentDetails{Amount: d("1")}
	if err := in.validateSections(); !errors.Is(err, models.ErrInvalidLine) {
		t.Fatalf("journal+payment: got %v, want ErrInvalidLine", err)
	}

	in = baseInput(models.VoucherTypeGSTPayment)
	in.Lines = []LineRequest{{ItemName: "x", Qty: d("1")}}
	if err := in.validateSections(); !errors.Is(err, models.ErrInvalidLine) {
		t.Fatalf("payment+lines: got %v, want ErrInvalidLine", err)
	}
}

func TestValidateSectionsRejectsUnknownType(t *testing.T) {
	in := SubmitVoucherInput{VoucherType: "ProformaInvoice", VoucherDate: time.Now()}
	if err := in.validateSections(); !errors.Is(err, models.ErrInvalidLine) {
		t.Fatalf("got %v, want ErrInvalidLine", err)
	}
}

func TestResolveInterState(t *testing.T) {
	maharashtra := &models.Business{StateCode: "27"}
	localParty := &models.Party{StateCode: "27"}
	remoteParty := &models.Party{StateCode: "29"}

	if resolveInterState(nil, maharashtra, localParty) {
		t.Fatal("same state derived as inter-state")
	}
	if !resolveInterState(nil, maharashtra, remoteParty) {
		t.Fatal("different states derived as intra-state")
	}

	// Explicit flag wins over state-code derivation.
	yes, no := true, false
	if !resolveInterState(&yes, maharashtra, localParty) {
		t.Fatal("explicit inter-state flag ignored")
	}
	if resolveInterState(&no, maharashtra, remoteParty) {
		t.Fatal("explicit intra-state flag ignored")
	}

	// Unknown state codes default to intra-state.
	if resolveInterState(nil, &models.Business{}, remoteParty) {
		t.Fatal("missing business state treated as inter-state")
	}
	if resolveInterState(nil, maharashtra, nil) {
		t.Fatal("missing party treated as inter-state")
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	if !isDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1062}) {
		t.Fatal("1062 not detected as duplicate key")
	}
	if isDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1213}) {
		t.Fatal("deadlock misdetected as duplicate key")
	}
	if isDuplicateKeyErr(errors.New("boom")) {
		t.Fatal("plain error misdetected as duplicate key")
	}
	wrapped := fmt.Errorf("create voucher: %w", &mysqlDriver.MySQLError{Number: 1062})
	if !isDuplicateKeyErr(wrapped) {
		t.Fatal("wrapped 1062 not detected")
	}
}

func TestBuildPostingsSalesInvoicePostsNothing(t *testing.T) {
	resolver := newResolver(t, fullChart())
	v := intraVoucher(models.VoucherTypeSalesInvoice)
	postings, err := buildPostings(resolver, "biz-1", v, &models.Party{ID: 42}, baseInput(models.VoucherTypeSalesInvoice))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 0 {
		t.Fatalf("sales invoice produced %d postings, want 0", len(postings))
	}
}

// fakeSubmitter mimics the lock + idempotency layering: serialize per
// business, then process each request id at most once.
type fakeSubmitter struct {
	muByBiz map[string]*sync.Mutex
	mu      sync.Mutex
	done    map[string]bool
	posted  int
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{
		muByBiz: map[string]*sync.Mutex{},
		done:    map[string]bool{},
	}
}

func (s *fakeSubmitter) submit(businessId, requestId string, post func()) {
	s.mu.Lock()
	bm := s.muByBiz[businessId]
	if bm == nil {
		bm = &sync.Mutex{}
		s.muByBiz[businessId] = bm
	}
	s.mu.Unlock()

	bm.Lock()
	defer bm.Unlock()

	key := businessId + "|" + submitHandlerName + "|" + requestId
	s.mu.Lock()
	if s.done[key] {
		s.mu.Unlock()
		return
	}
	s.done[key] = true
	s.mu.Unlock()

	post()

	s.mu.Lock()
	s.posted++
	s.mu.Unlock()
}

func TestDuplicateSubmissionPostsOnce(t *testing.T) {
	s := newFakeSubmitter()
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.submit("biz-1", "req-1", func() {})
		}()
	}
	wg.Wait()
	if s.posted != 1 {
		t.Fatalf("expected exactly 1 posting, got %d", s.posted)
	}
}

func TestDistinctRequestsAllPost(t *testing.T) {
	for run := 0; run < 50; run++ {
		s := newFakeSubmitter()
		var wg sync.WaitGroup
		ids := []string{"req-1", "req-2", "req-3"}
		for _, id := range ids {
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(id string) {
					defer wg.Done()
					s.submit("biz-1", id, func() {})
				}(id)
			}
		}
		wg.Wait()
		if s.posted != len(ids) {
			t.Fatalf("run %d: expected %d postings, got %d", run, len(ids), s.posted)
		}
	}
}
