package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	echoapi "github.com/Jati804/internal-web-sanur-akademi-sub000/apps/api/echo"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/receipt"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	emailsvc "github.com/Jati804/internal-web-sanur-akademi-sub000/services/email"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

func Test_receiptApi_lifecycle(t *testing.T) {
	server, env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	std := testutil.CreateStudent(t, env.StudentRepo, "Putu", "", "ibu.putu@test.id")
	noEmail := testutil.CreateStudent(t, env.StudentRepo, "Komang", "")
	cls := testutil.CreateClass(t, env.ClassRepo, "Math A", teacher.ID, 600000, 50000, std.ID)
	sessions := testutil.LogSessions(t, env.AttendanceSvc, teacher, cls.ID, std.ID, 2)

	token := getToken(t, env, admin)
	period := core.Today().Format("200601")

	rec := do(server, http.MethodPost, "/v1/receipts", getToken(t, env, teacher), []byte(`{}`))
	assert.Equal(t, http.StatusForbidden, rec.Code, "admins only")
	rec = do(server, http.MethodPost, "/v1/receipts", token, marchallObj(t, receipt.NewReceipt{StudentID: std.ID, Method: receipt.MethodCash}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nothing to bill")
	rec = do(server, http.MethodPost, "/v1/receipts", token, marchallObj(t, receipt.NewReceipt{
		StudentID: noEmail.ID, PackageID: sessions[0].PackageID, Method: receipt.MethodCash,
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "package of another student")
	rec = do(server, http.MethodPost, "/v1/receipts", token, marchallObj(t, receipt.NewReceipt{
		StudentID: noEmail.ID, PackageID: sessions[0].PackageID, Method: receipt.MethodCash,
		Items: []receipt.NewItem{{Description: "Book", UnitPrice: decimal.NewFromInt(25000)}},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "package of another student billed with items")

	rec = do(server, http.MethodPost, "/v1/receipts", token, marchallObj(t, receipt.NewReceipt{
		StudentID: std.ID, PackageID: sessions[0].PackageID, Method: receipt.MethodTransfer,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first receipt.Receipt
	decode(t, rec, &first)
	assert.Equal(t, "SA/"+period+"/0001", first.Number)
	assert.Equal(t, "Putu", first.StudentName)
	assert.True(t, decimal.NewFromInt(600000).Equal(first.Total), first.Total.String())
	require.NotEmpty(t, first.LedgerEntryID)

	rec = do(server, http.MethodPost, "/v1/receipts", token, marchallObj(t, receipt.NewReceipt{
		StudentID: noEmail.ID,
		Method:    receipt.MethodCash,
		Items: []receipt.NewItem{
			{Description: "Registration", UnitPrice: decimal.NewFromInt(100000)},
			{Description: "Book", Quantity: 2, UnitPrice: decimal.NewFromInt(25000)},
		},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var second receipt.Receipt
	decode(t, rec, &second)
	assert.Equal(t, "SA/"+period+"/0002", second.Number)
	assert.True(t, decimal.NewFromInt(150000).Equal(second.Total), second.Total.String())

	verification := func(rct receipt.Receipt, valid bool) []byte {
		return marchallObj(t, echoapi.ReceiptVerification{
			Academy:     env.Conf.Academy.Name,
			Number:      rct.Number,
			StudentName: rct.StudentName,
			Total:       rct.Total,
			PaidOn:      rct.PaidOn,
			Valid:       valid,
		})
	}
	runHTTPTests(t, server, []httpTest{
		{name: "verify without a token", path: "/v1/receipts/verify/" + first.Number, wantData: verification(first, true)},
		{name: "verify unknown", path: "/v1/receipts/verify/SA/000000/0001", wantCode: http.StatusNotFound},
		{name: "send without guardian email", method: http.MethodPost, path: "/v1/receipts/" + second.ID + "/send", token: token, wantCode: http.StatusBadRequest},
		{name: "qr size too big", path: "/v1/receipts/" + first.ID + "/qr?size=4096", token: token, wantCode: http.StatusBadRequest},
		{name: "void needs a reason", method: http.MethodPost, path: "/v1/receipts/" + first.ID + "/void", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest},
	})

	emailsvc.ClearSentMessages()
	rec = do(server, http.MethodPost, "/v1/receipts/"+first.ID+"/send", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ibu.putu@test.id", msgs[0].To[0].Address)
	assert.Contains(t, msgs[0].Subject, first.Number)
	assert.True(t, msgs[0].HasAttachments())

	rec = do(server, http.MethodGet, "/v1/receipts/"+first.ID+"/print", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), first.Number)
	assert.NotContains(t, rec.Body.String(), "VOID")

	rec = do(server, http.MethodGet, "/v1/receipts/"+first.ID+"/qr?size=128", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(server, http.MethodPost, "/v1/receipts/"+first.ID+"/void", token, []byte(`{"reason":"paid twice"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var voided receipt.Receipt
	decode(t, rec, &voided)
	assert.True(t, voided.IsVoided())
	assert.Empty(t, voided.LedgerEntryID)

	_, err := env.LedgerSvc.Get(ctx, first.LedgerEntryID)
	assert.True(t, core.IsNotFound(err), "the ledger income is removed")

	runHTTPTests(t, server, []httpTest{
		{name: "void twice", method: http.MethodPost, path: "/v1/receipts/" + first.ID + "/void", token: token, body: []byte(`{"reason":"again"}`), wantCode: http.StatusConflict},
		{name: "voided cannot be sent", method: http.MethodPost, path: "/v1/receipts/" + first.ID + "/send", token: token, wantCode: http.StatusConflict},
		{name: "verify voided", path: "/v1/receipts/verify/" + first.Number, wantData: verification(first, false)},
		{name: "voided are hidden", path: "/v1/receipts", token: token, wantData: marchallList(t, second)},
	})
}

func Test_ledgerApi_cashBook(t *testing.T) {
	server, env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	std := testutil.CreateStudent(t, env.StudentRepo, "Putu", "")
	token := getToken(t, env, admin)

	today := core.Today()
	lastWeek := core.DateOf(today.AddDate(0, 0, -7))
	yesterday := core.DateOf(today.AddDate(0, 0, -1))

	record := func(date core.Date, category string, amount int64, desc string) *httptest.ResponseRecorder {
		return do(server, http.MethodPost, "/v1/ledger/entries", token, marchallObj(t, ledger.NewEntry{
			EntryDate: date, Category: category, Amount: decimal.NewFromInt(amount), Description: desc,
		}))
	}
	runHTTPTests(t, server, []httpTest{
		{name: "admins only", path: "/v1/ledger/entries", token: getToken(t, env, teacher), wantCode: http.StatusForbidden},
		{
			name: "unknown category", method: http.MethodPost, path: "/v1/ledger/entries", token: token,
			body: marchallObj(t, ledger.NewEntry{EntryDate: today, Category: "lol", Amount: decimal.NewFromInt(1), Description: "x"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "too many decimals", method: http.MethodPost, path: "/v1/ledger/entries", token: token,
			body:     marchallObj(t, ledger.NewEntry{EntryDate: today, Category: ledger.CategoryRent, Amount: decimal.RequireFromString("1.005"), Description: "x"}),
			wantCode: http.StatusBadRequest,
		},
	})

	require.Equal(t, http.StatusCreated, record(lastWeek, ledger.CategoryRegistration, 500000, "Opening deposit").Code)
	rec := record(yesterday, ledger.CategoryRent, 200000, "Rent")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rent ledger.Entry
	decode(t, rec, &rent)
	assert.Equal(t, ledger.KindExpense, rent.Kind)
	assert.Equal(t, ledger.RefManual, rent.RefType)

	_, err := env.ReceiptSvc.Issue(ctx, admin.ID, receipt.NewReceipt{
		StudentID: std.ID,
		Method:    receipt.MethodCash,
		PaidOn:    today,
		Items:     []receipt.NewItem{{Description: "Tuition", Quantity: 1, UnitPrice: decimal.NewFromInt(300000)}},
	})
	require.NoError(t, err)

	rec = do(server, http.MethodGet, "/v1/ledger/cash-book?from="+yesterday.String()+"&to="+today.String(), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var book ledger.CashBook
	decode(t, rec, &book)
	assert.True(t, decimal.NewFromInt(500000).Equal(book.OpeningBalance), book.OpeningBalance.String())
	require.Len(t, book.Lines, 2)
	assert.True(t, decimal.NewFromInt(300000).Equal(book.Lines[0].Balance), book.Lines[0].Balance.String())
	assert.Equal(t, ledger.RefReceipt, book.Lines[1].RefType)
	assert.True(t, decimal.NewFromInt(300000).Equal(book.TotalIncome))
	assert.True(t, decimal.NewFromInt(200000).Equal(book.TotalExpense))
	assert.True(t, decimal.NewFromInt(600000).Equal(book.ClosingBalance), book.ClosingBalance.String())

	rec = do(server, http.MethodGet, "/v1/ledger/cash-book?from="+today.String()+"&to="+yesterday.String(), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "to before from")

	rec = do(server, http.MethodGet, "/v1/ledger/cash-book/export?from="+yesterday.String(), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cash-book_"+yesterday.String()+"_all.xlsx")
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.NotEmpty(t, rows)

	rec = do(server, http.MethodDelete, "/v1/ledger/entries/"+rent.ID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(server, http.MethodGet, "/v1/ledger/entries/"+rent.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
