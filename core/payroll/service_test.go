package payroll_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

// completePackages logs n full packages for n students of one class and returns the pending entries.
func completePackages(t *testing.T, env *testutil.Env, teacher user.User, n int) []payroll.Entry {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, testutil.CreateStudent(t, env.StudentRepo, "Student", "").ID)
	}
	cls := testutil.CreateClass(t, env.ClassRepo, "Math A", teacher.ID, 600000, 40000, ids...)
	for _, id := range ids {
		testutil.LogSessions(t, env.AttendanceSvc, teacher, cls.ID, id, env.Conf.Academy.SessionsPerPackage)
	}
	entries, err := env.PayrollSvc.Query(ctx, &payroll.QueryFilter{Statuses: []string{payroll.StatusPending}})
	require.NoError(t, err)
	require.Len(t, entries, n)
	return entries
}

func TestService_Approve_allOrNothing(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	entries := completePackages(t, env, teacher, 2)

	_, err := env.PayrollSvc.Approve(ctx, admin.ID, entries[0].ID, "3e9f2a4c-0d5b-4c1e-8f7a-6b2d9c1e0a55")
	assert.True(t, core.IsNotFound(err), "unexpected error: %v", err)

	pending, err := env.PayrollSvc.Query(ctx, &payroll.QueryFilter{Statuses: []string{payroll.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, pending, 2, "nothing is approved when one entry fails")

	approved, err := env.PayrollSvc.Approve(ctx, admin.ID, entries[0].ID, entries[1].ID)
	require.NoError(t, err)
	require.Len(t, approved, 2)
	for _, e := range approved {
		assert.Equal(t, payroll.StatusApproved, e.Status)
		assert.Equal(t, admin.ID, e.ApprovedBy)
		assert.False(t, e.ApprovedAt.IsZero())
	}
}

func TestService_PayAndCancel(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	entries := completePackages(t, env, teacher, 3)
	toPay, toCancel := entries[0], entries[1]

	assert.True(t, decimal.NewFromInt(240000).Equal(toPay.Amount), toPay.Amount.String())
	assert.Equal(t, core.Today().Period(), toPay.Period)

	_, err := env.PayrollSvc.Approve(ctx, admin.ID, toPay.ID, toCancel.ID)
	require.NoError(t, err)

	pe := payroll.PayEntry{Notes: " cash "}
	require.NoError(t, pe.Validate(env.Validate))
	paid, err := env.PayrollSvc.Pay(ctx, admin.ID, toPay.ID, pe)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusPaid, paid.Status)
	assert.True(t, core.Today().Equal(paid.PaidOn))
	assert.Equal(t, "cash", paid.Notes)

	le, err := env.LedgerSvc.Get(ctx, paid.LedgerEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.KindExpense, le.Kind)
	assert.Equal(t, paid.ID, le.RefID)
	assert.True(t, paid.Amount.Equal(le.Amount))

	_, err = env.PayrollSvc.Pay(ctx, admin.ID, toPay.ID, pe)
	assert.True(t, core.IsConflict(err), "paying twice")

	cancelled, err := env.PayrollSvc.Cancel(ctx, toCancel.ID, "left early")
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusCancelled, cancelled.Status)
	assert.Contains(t, cancelled.Notes, "left early")
	_, err = env.PayrollSvc.Cancel(ctx, toCancel.ID, "")
	assert.True(t, core.IsConflict(err), "cancelling twice")

	sum, err := env.PayrollSvc.Summary(ctx, teacher.ID, core.Today().Period())
	require.NoError(t, err)
	counts := map[string]int{}
	for _, total := range sum.Totals {
		counts[total.Status] = total.Count
	}
	assert.Equal(t, map[string]int{
		payroll.StatusPending:   1,
		payroll.StatusApproved:  0,
		payroll.StatusPaid:      1,
		payroll.StatusCancelled: 1,
	}, counts)

	empty, err := env.PayrollSvc.Summary(ctx, teacher.ID, "1999-01")
	require.NoError(t, err)
	require.Len(t, empty.Totals, len(payroll.AllStatuses))
	for _, total := range empty.Totals {
		assert.Zero(t, total.Count)
		assert.True(t, total.Amount.IsZero())
	}
}

// racingRepository runs afterRead once, right after the service has read entries.
type racingRepository struct {
	payroll.Repository
	afterRead func()
}

func (repo *racingRepository) race() {
	if repo.afterRead != nil {
		fn := repo.afterRead
		repo.afterRead = nil
		fn()
	}
}

func (repo *racingRepository) GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (payroll.Entry, error) {
	e, err := repo.Repository.GetEntry(ctx, id, exec...)
	repo.race()
	return e, err
}

func (repo *racingRepository) QueryEntries(ctx context.Context, filter *payroll.QueryFilter, exec ...core.DBExecutor) ([]payroll.Entry, error) {
	entries, err := repo.Repository.QueryEntries(ctx, filter, exec...)
	repo.race()
	return entries, err
}

func TestService_Cancel_paidMeanwhile(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	entries := completePackages(t, env, teacher, 2)
	_, err := env.PayrollSvc.Approve(ctx, admin.ID, entries[0].ID, entries[1].ID)
	require.NoError(t, err)

	repo := &racingRepository{Repository: env.PayrollRepo}
	svc := payroll.NewService(repo, env.Tx, env.LedgerSvc, env.Logger)

	// another admin pays the entry between the read and the write
	payMeanwhile := func(id string) func() {
		return func() {
			e, err := env.PayrollRepo.GetEntry(ctx, id)
			require.NoError(t, err)
			e.Status = payroll.StatusPaid
			e.PaidOn = core.Today()
			e.PaidBy = admin.ID
			e.LedgerEntryID = "5f0c7a52-3d4e-4f8b-9a61-2b7c8d9e0f13"
			_, err = env.PayrollRepo.UpdateEntry(ctx, e, payroll.StatusApproved)
			require.NoError(t, err)
		}
	}

	tests := []struct {
		name   string
		entry  payroll.Entry
		cancel func(e payroll.Entry) error
	}{
		{
			name:  "cancel",
			entry: entries[0],
			cancel: func(e payroll.Entry) error {
				_, err := svc.Cancel(ctx, e.ID, "left early")
				return err
			},
		},
		{
			name:  "cancel package",
			entry: entries[1],
			cancel: func(e payroll.Entry) error {
				return env.Tx.WithinTx(ctx, func(exec core.DBExecutor) error {
					return svc.CancelPackage(ctx, e.PackageID, exec)
				})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo.afterRead = payMeanwhile(tt.entry.ID)
			err := tt.cancel(tt.entry)
			assert.True(t, core.IsConflict(err), "unexpected error: %v", err)

			// the in-memory rollback also drops the concurrent write; what matters is that nothing was cancelled
			e, err := env.PayrollSvc.Get(ctx, tt.entry.ID)
			require.NoError(t, err)
			assert.NotEqual(t, payroll.StatusCancelled, e.Status)
		})
	}
}

func TestService_Cancel_afterPay(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	entry := completePackages(t, env, teacher, 1)[0]
	_, err := env.PayrollSvc.Approve(ctx, admin.ID, entry.ID)
	require.NoError(t, err)
	paid, err := env.PayrollSvc.Pay(ctx, admin.ID, entry.ID, payroll.PayEntry{PaidOn: core.Today()})
	require.NoError(t, err)

	_, err = env.PayrollSvc.Cancel(ctx, entry.ID, "")
	assert.ErrorIs(t, err, payroll.ErrNotCancellable)
	err = env.Tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		return env.PayrollSvc.CancelPackage(ctx, entry.PackageID, exec)
	})
	assert.ErrorIs(t, err, payroll.ErrAlreadyPaid)

	_, err = env.LedgerSvc.Get(ctx, paid.LedgerEntryID)
	assert.NoError(t, err, "the payroll expense stays in the ledger")
}
