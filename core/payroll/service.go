package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("payroll entry not found")
	ErrAlreadyPaid    = core.NewConflictError("payroll of this package is already paid")
	ErrNotPending     = core.NewConflictError("only pending entries can be approved")
	ErrNotApproved    = core.NewConflictError("only approved entries can be paid")
	ErrNotCancellable = core.NewConflictError("only pending or approved entries can be cancelled")
	ErrStatusChanged  = core.NewConflictError("payroll entry was changed meanwhile, reload it and try again")
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
		GetEntry(ctx context.Context, id string, exec ...core.DBExecutor) (Entry, error)
		// QueryEntries orders by creation time, newest first.
		QueryEntries(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Entry, error)
		// UpdateEntry saves e only while the stored status still equals prevStatus, else ErrStatusChanged.
		UpdateEntry(ctx context.Context, e Entry, prevStatus string, exec ...core.DBExecutor) (Entry, error)
	}

	LedgerRecorder interface {
		RecordTx(ctx context.Context, e ledger.Entry, exec core.DBExecutor) (ledger.Entry, error)
	}

	Service struct {
		repo   Repository
		tx     core.Transactor
		ledger LedgerRecorder
		logger core.Logger
	}
)

func NewService(repo Repository, tx core.Transactor, ledger LedgerRecorder, logger core.Logger) *Service {
	return &Service{repo: repo, tx: tx, ledger: ledger, logger: logger}
}

// EnqueuePackage queues one pending entry per teacher who taught sessions of a completed package.
// It runs inside the caller's transaction.
func (svc *Service) EnqueuePackage(ctx context.Context, c class.Class, pkg attendance.Package, sessions []attendance.Session, exec core.DBExecutor) error {
	now := time.Now().UTC()
	period := core.DateOf(pkg.CompletedAt).Period()
	if pkg.CompletedAt.IsZero() {
		period = core.Today().Period()
	}

	teacherIDs, counts := attendance.TeacherSessions(sessions)
	for _, teacherID := range teacherIDs {
		n := counts[teacherID]
		_, err := svc.repo.CreateEntry(ctx, Entry{
			TeacherID: teacherID,
			PackageID: pkg.ID,
			ClassID:   c.ID,
			StudentID: pkg.StudentID,
			Sessions:  n,
			Rate:      c.TeacherFee,
			Amount:    c.TeacherFee.Mul(decimal.NewFromInt(int64(n))),
			Status:    StatusPending,
			Period:    period,
			CreatedAt: now,
			UpdatedAt: now,
		}, exec)
		if err != nil {
			return errors.Wrapf(err, "creating payroll entry for teacher %s", teacherID)
		}
	}
	return nil
}

// CancelPackage cancels the unpaid entries of a package. It runs inside the caller's transaction.
func (svc *Service) CancelPackage(ctx context.Context, packageID string, exec core.DBExecutor) error {
	entries, err := svc.repo.QueryEntries(ctx, &QueryFilter{PackageID: packageID}, exec)
	if err != nil {
		return errors.Wrap(err, "querying package entries")
	}
	for _, e := range entries {
		if e.Status == StatusPaid {
			return ErrAlreadyPaid
		}
	}

	now := time.Now().UTC()
	for _, e := range entries {
		if e.Status == StatusCancelled {
			continue
		}
		prev := e.Status
		e.Status = StatusCancelled
		e.Notes = appendNote(e.Notes, "package reopened")
		e.UpdatedAt = now
		if _, err := svc.repo.UpdateEntry(ctx, e, prev, exec); err != nil {
			return errors.Wrap(err, "cancelling entry")
		}
	}
	return nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, id string) (Entry, error) {
	return svc.repo.GetEntry(ctx, id)
}

// Approve moves pending entries to approved. Either all of them are approved or none.
func (svc *Service) Approve(ctx context.Context, approvedBy string, ids ...string) ([]Entry, error) {
	approved := make([]Entry, 0, len(ids))
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		now := time.Now().UTC()
		for _, id := range ids {
			e, err := svc.repo.GetEntry(ctx, id, exec)
			if err != nil {
				return err
			}
			if e.Status != StatusPending {
				return ErrNotPending
			}
			e.Status = StatusApproved
			e.ApprovedAt = now
			e.ApprovedBy = approvedBy
			e.UpdatedAt = now
			if e, err = svc.repo.UpdateEntry(ctx, e, StatusPending, exec); err != nil {
				return errors.Wrap(err, "approving entry")
			}
			approved = append(approved, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

// Pay marks an approved entry as paid and records the matching ledger expense.
func (svc *Service) Pay(ctx context.Context, paidBy, id string, pe PayEntry) (Entry, error) {
	var entry Entry
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		e, err := svc.repo.GetEntry(ctx, id, exec)
		if err != nil {
			return err
		}
		if e.Status != StatusApproved {
			return ErrNotApproved
		}

		le, err := svc.ledger.RecordTx(ctx, ledger.Entry{
			EntryDate:   pe.PaidOn,
			Kind:        ledger.KindExpense,
			Category:    ledger.CategoryPayroll,
			Amount:      e.Amount,
			Description: fmt.Sprintf("Payroll %s, %d sessions", e.Period, e.Sessions),
			RefType:     ledger.RefPayroll,
			RefID:       e.ID,
			CreatedBy:   paidBy,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "recording ledger expense")
		}

		e.Status = StatusPaid
		e.PaidOn = pe.PaidOn
		e.PaidBy = paidBy
		e.LedgerEntryID = le.ID
		e.Notes = appendNote(e.Notes, pe.Notes)
		e.UpdatedAt = time.Now().UTC()
		entry, err = svc.repo.UpdateEntry(ctx, e, StatusApproved, exec)
		return errors.Wrap(err, "paying entry")
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (svc *Service) Cancel(ctx context.Context, id, reason string) (Entry, error) {
	var entry Entry
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		e, err := svc.repo.GetEntry(ctx, id, exec)
		if err != nil {
			return err
		}
		if e.Status != StatusPending && e.Status != StatusApproved {
			return ErrNotCancellable
		}
		prev := e.Status
		e.Status = StatusCancelled
		e.Notes = appendNote(e.Notes, core.CleanString(reason))
		e.UpdatedAt = time.Now().UTC()
		entry, err = svc.repo.UpdateEntry(ctx, e, prev, exec)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Summary counts and sums entries per status. Empty teacherID or period means all.
func (svc *Service) Summary(ctx context.Context, teacherID, period string) (Summary, error) {
	entries, err := svc.repo.QueryEntries(ctx, &QueryFilter{TeacherID: teacherID, Period: period})
	if err != nil {
		return Summary{}, err
	}

	totals := make(map[string]*StatusTotal, len(AllStatuses))
	sum := Summary{TeacherID: teacherID, Period: period, Totals: make([]StatusTotal, 0, len(AllStatuses))}
	for _, status := range AllStatuses {
		totals[status] = &StatusTotal{Status: status, Amount: decimal.Zero}
	}
	for _, e := range entries {
		if t, ok := totals[e.Status]; ok {
			t.Count++
			t.Amount = t.Amount.Add(e.Amount)
		}
	}
	for _, status := range AllStatuses {
		sum.Totals = append(sum.Totals, *totals[status])
	}
	return sum, nil
}

func appendNote(notes, note string) string {
	switch {
	case note == "":
		return notes
	case notes == "":
		return note
	}
	return notes + "; " + note
}
