package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

func TestService_CashBook(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	svc := env.LedgerSvc

	day := func(n int) core.Date { return core.DateOf(core.Today().AddDate(0, 0, -n)) }
	record := func(date core.Date, category, amount string) ledger.Entry {
		t.Helper()
		ne := ledger.NewEntry{EntryDate: date, Category: category, Amount: decimal.RequireFromString(amount), Description: category}
		require.NoError(t, ne.Validate(env.Validate))
		e, err := svc.Record(ctx, "admin", ne)
		require.NoError(t, err)
		return e
	}

	record(day(30), ledger.CategoryRegistration, "1000000")
	record(day(20), ledger.CategoryRent, "400000")
	record(day(10), ledger.CategoryTuition, "600000.50")
	utilities := record(day(10), ledger.CategoryUtilities, "100000")
	record(day(1), ledger.CategorySupplies, "50000")

	tests := []struct {
		name        string
		from, to    core.Date
		wantOpening string
		wantLines   int
		wantClosing string
	}{
		{name: "everything", wantOpening: "0", wantLines: 5, wantClosing: "1050000.5"},
		{name: "from", from: day(20), wantOpening: "1000000", wantLines: 4, wantClosing: "1050000.5"},
		{name: "to", to: day(20), wantOpening: "0", wantLines: 2, wantClosing: "600000"},
		{name: "one day", from: day(10), to: day(10), wantOpening: "600000", wantLines: 2, wantClosing: "1100000.5"},
		{name: "quiet period", from: day(5), to: day(3), wantOpening: "1100000.5", wantLines: 0, wantClosing: "1100000.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, err := svc.CashBook(ctx, tt.from, tt.to)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantOpening).Equal(book.OpeningBalance), "opening %s", book.OpeningBalance)
			assert.Len(t, book.Lines, tt.wantLines)
			assert.True(t, decimal.RequireFromString(tt.wantClosing).Equal(book.ClosingBalance), "closing %s", book.ClosingBalance)
			assert.True(t, book.OpeningBalance.Add(book.TotalIncome).Sub(book.TotalExpense).Equal(book.ClosingBalance))
		})
	}

	_, err := svc.CashBook(ctx, day(1), day(2))
	assert.True(t, core.IsValidation(err))

	require.NoError(t, svc.Delete(ctx, utilities.ID))
	_, err = svc.Get(ctx, utilities.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestService_RecordTx(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	_, err := env.LedgerSvc.RecordTx(ctx, ledger.Entry{EntryDate: core.Today(), Category: "lol", Amount: decimal.NewFromInt(1)}, nil)
	assert.Error(t, err, "unknown category")
	_, err = env.LedgerSvc.RecordTx(ctx, ledger.Entry{EntryDate: core.Today(), Category: ledger.CategoryPayroll}, nil)
	assert.Error(t, err, "zero amount")

	e, err := env.LedgerSvc.RecordTx(ctx, ledger.Entry{
		EntryDate: core.Today(), Category: ledger.CategoryPayroll, Amount: decimal.NewFromInt(1), RefType: ledger.RefPayroll,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, ledger.KindExpense, e.Kind)

	err = env.LedgerSvc.Delete(ctx, e.ID)
	assert.True(t, core.IsConflict(err), "system entries are only removed with their source")
}
