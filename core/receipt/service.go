package receipt

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/class"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("receipt not found")
	ErrAlreadyVoided    = core.NewConflictError("receipt is already voided")
	ErrNoGuardianEmail  = errors.New("the student has no guardian email")
	ErrPackageMismatch  = errors.New("package does not belong to this student")
	ErrCannotSendVoided = core.NewConflictError("a voided receipt cannot be sent")
)

type (
	Repository interface {
		// NextSequence increments and returns the receipt counter of period (YYYYMM).
		NextSequence(ctx context.Context, period string, exec ...core.DBExecutor) (int, error)
		CreateReceipt(ctx context.Context, r Receipt, exec ...core.DBExecutor) (Receipt, error)
		GetReceipt(ctx context.Context, id string, exec ...core.DBExecutor) (Receipt, error)
		GetReceiptByNumber(ctx context.Context, number string, exec ...core.DBExecutor) (Receipt, error)
		// QueryReceipts orders by payment date then number, newest first.
		QueryReceipts(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Receipt, error)
		UpdateReceipt(ctx context.Context, r Receipt, exec ...core.DBExecutor) (Receipt, error)
	}

	Ledger interface {
		RecordTx(ctx context.Context, e ledger.Entry, exec core.DBExecutor) (ledger.Entry, error)
		DeleteTx(ctx context.Context, id string, exec core.DBExecutor) error
	}

	StudentGetter interface {
		Get(ctx context.Context, id string) (student.Student, error)
	}

	PackageGetter interface {
		GetPackage(ctx context.Context, id string) (attendance.Package, error)
	}

	ClassGetter interface {
		Get(ctx context.Context, id string) (class.Class, error)
	}

	Service struct {
		repo     Repository
		tx       core.Transactor
		ledger   Ledger
		students StudentGetter
		packages PackageGetter
		classes  ClassGetter
		mailSvc  core.EmailService
		conf     *core.Config
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	tx core.Transactor,
	ledger Ledger,
	students StudentGetter,
	packages PackageGetter,
	classes ClassGetter,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		students: students,
		packages: packages,
		classes:  classes,
		mailSvc:  mailSvc,
		conf:     conf,
		logger:   logger,
	}
}

func formatNumber(prefix string, paidOn core.Date, seq int) string {
	return fmt.Sprintf("%s/%s/%04d", prefix, paidOn.Format("200601"), seq)
}

// VerifyURL is the public page a receipt's QR code points to.
func (svc *Service) VerifyURL(r Receipt) string {
	return fmt.Sprintf("%s/receipts/verify/%s", svc.conf.FrontendBaseURL, r.Number)
}

// studentPackage returns the package a receipt pays for. It must belong to studentID.
func (svc *Service) studentPackage(ctx context.Context, studentID, packageID string) (attendance.Package, error) {
	pkg, err := svc.packages.GetPackage(ctx, packageID)
	if err != nil {
		if core.IsNotFound(err) {
			return attendance.Package{}, core.NewValidationError(err, core.FieldError{Field: "package_id", Error: err.Error()})
		}
		return attendance.Package{}, errors.Wrap(err, "getting package")
	}
	if pkg.StudentID != studentID {
		return attendance.Package{}, core.NewValidationError(ErrPackageMismatch, core.FieldError{Field: "package_id", Error: ErrPackageMismatch.Error()})
	}
	return pkg, nil
}

func (svc *Service) packageItem(ctx context.Context, pkg attendance.Package) (Item, error) {
	cls, err := svc.classes.Get(ctx, pkg.ClassID)
	if err != nil {
		return Item{}, errors.Wrap(err, "getting class")
	}
	return Item{
		Description: fmt.Sprintf("%s: package of %d sessions", cls.Name, svc.conf.Academy.PackageSize()),
		Quantity:    1,
		UnitPrice:   cls.PackageFee,
		Total:       cls.PackageFee,
	}, nil
}

// Issue numbers a receipt, records its tuition income in the ledger and stores it, in one transaction.
func (svc *Service) Issue(ctx context.Context, receivedBy string, nr NewReceipt) (Receipt, error) {
	std, err := svc.students.Get(ctx, nr.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Receipt{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Receipt{}, errors.Wrap(err, "getting student")
	}

	items := make([]Item, 0, len(nr.Items)+1)
	if nr.PackageID != "" {
		pkg, err := svc.studentPackage(ctx, std.ID, nr.PackageID)
		if err != nil {
			return Receipt{}, err
		}
		if len(nr.Items) == 0 {
			item, err := svc.packageItem(ctx, pkg)
			if err != nil {
				return Receipt{}, err
			}
			items = append(items, item)
		}
	}
	for _, ni := range nr.Items {
		items = append(items, Item{
			Description: ni.Description,
			Quantity:    ni.Quantity,
			UnitPrice:   ni.UnitPrice,
			Total:       ni.UnitPrice.Mul(decimal.NewFromInt(int64(ni.Quantity))),
		})
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	if !total.IsPositive() {
		return Receipt{}, core.NewValidationError(nil, core.FieldError{Field: "items", Error: "the total must be greater than 0"})
	}

	var rct Receipt
	err = svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		seq, err := svc.repo.NextSequence(ctx, nr.PaidOn.Format("200601"), exec)
		if err != nil {
			return errors.Wrap(err, "allocating receipt number")
		}
		number := formatNumber(svc.conf.Academy.ReceiptPrefix, nr.PaidOn, seq)

		le, err := svc.ledger.RecordTx(ctx, ledger.Entry{
			EntryDate:   nr.PaidOn,
			Kind:        ledger.KindIncome,
			Category:    ledger.CategoryTuition,
			Amount:      total,
			Description: fmt.Sprintf("Receipt %s, %s", number, std.Name),
			RefType:     ledger.RefReceipt,
			RefID:       number,
			CreatedBy:   receivedBy,
		}, exec)
		if err != nil {
			return errors.Wrap(err, "recording ledger income")
		}

		rct, err = svc.repo.CreateReceipt(ctx, Receipt{
			Number:        number,
			StudentID:     std.ID,
			StudentName:   std.Name,
			PackageID:     nr.PackageID,
			Items:         items,
			Total:         total,
			Method:        nr.Method,
			PaidOn:        nr.PaidOn,
			ReceivedBy:    receivedBy,
			Notes:         nr.Notes,
			LedgerEntryID: le.ID,
			CreatedAt:     time.Now().UTC(),
		}, exec)
		return errors.Wrap(err, "creating receipt")
	})
	if err != nil {
		return Receipt{}, err
	}
	return rct, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Receipt, error) {
	return svc.repo.GetReceipt(ctx, id)
}

func (svc *Service) GetByNumber(ctx context.Context, number string) (Receipt, error) {
	return svc.repo.GetReceiptByNumber(ctx, strings.TrimSpace(number))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Receipt, error) {
	return svc.repo.QueryReceipts(ctx, filter)
}

// Void cancels a receipt and removes its ledger income. The receipt itself is kept.
func (svc *Service) Void(ctx context.Context, id string, vr VoidReceipt) (Receipt, error) {
	var rct Receipt
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if rct, err = svc.repo.GetReceipt(ctx, id, exec); err != nil {
			return err
		}
		if rct.IsVoided() {
			return ErrAlreadyVoided
		}
		if rct.LedgerEntryID != "" {
			if err := svc.ledger.DeleteTx(ctx, rct.LedgerEntryID, exec); err != nil && !core.IsNotFound(err) {
				return errors.Wrap(err, "removing ledger income")
			}
		}
		rct.LedgerEntryID = ""
		rct.VoidedAt = time.Now().UTC()
		rct.VoidReason = vr.Reason
		rct, err = svc.repo.UpdateReceipt(ctx, rct, exec)
		return errors.Wrap(err, "voiding receipt")
	})
	if err != nil {
		return Receipt{}, err
	}
	return rct, nil
}

// Send emails the receipt to the student's guardian, with its QR code attached.
func (svc *Service) Send(ctx context.Context, rct Receipt) error {
	if rct.IsVoided() {
		return ErrCannotSendVoided
	}
	std, err := svc.students.Get(ctx, rct.StudentID)
	if err != nil {
		return errors.Wrap(err, "getting student")
	}
	if std.GuardianEmail == "" {
		return core.NewValidationError(ErrNoGuardianEmail)
	}

	qr, err := svc.QRCode(rct, qrSize)
	if err != nil {
		return err
	}

	guardian := std.GuardianName
	if guardian == "" {
		guardian = std.Name
	}
	items := make([]map[string]interface{}, 0, len(rct.Items))
	for _, item := range rct.Items {
		items = append(items, map[string]interface{}{
			"Description": item.Description,
			"Quantity":    item.Quantity,
			"Total":       svc.money(item.Total),
		})
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: guardian, Address: std.GuardianEmail}},
		Subject:      fmt.Sprintf("%s receipt %s", svc.conf.Academy.Name, rct.Number),
		TemplateName: "receipt",
		TemplateData: map[string]interface{}{
			"GuardianName": guardian,
			"StudentName":  rct.StudentName,
			"Number":       rct.Number,
			"PaidOn":       rct.PaidOn.String(),
			"Method":       rct.Method,
			"Items":        items,
			"Total":        svc.money(rct.Total),
			"VerifyURL":    svc.VerifyURL(rct),
		},
	}
	if err := msg.Attach(bytes.NewReader(qr), "receipt-qr.png", "image/png"); err != nil {
		return errors.Wrap(err, "attaching QR code")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *Service) money(d decimal.Decimal) string {
	return core.FormatMoney(d, svc.conf.Academy.Currency)
}
