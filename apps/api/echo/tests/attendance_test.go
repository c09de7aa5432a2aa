package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/Jati804/internal-web-sanur-akademi-sub000/apps/api/echo"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/ledger"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

func Test_attendanceApi_logSession(t *testing.T) {
	server, env := setup(t)

	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.id", "", []string{user.RoleTeacher}, true)
	portal := testutil.CreateUser(t, env.UserRepo, "Putu", "putu", "putu@test.id", "", []string{user.RoleStudent}, true)
	std := testutil.CreateStudent(t, env.StudentRepo, "Putu", portal.ID)
	outsider := testutil.CreateStudent(t, env.StudentRepo, "Komang", "")
	cls := testutil.CreateClass(t, env.ClassRepo, "Math A", teacher.ID, 600000, 50000, std.ID)

	today := core.Today()
	newSession := func(studentID string, substitute bool, daysAgo int) []byte {
		return marchallObj(t, attendance.NewSession{
			ClassID:     cls.ID,
			StudentID:   studentID,
			SessionDate: core.DateOf(today.AddDate(0, 0, -daysAgo)),
			Substitute:  substitute,
		})
	}
	post := func(token string, body []byte, wantCode int) httpTest {
		return httpTest{method: http.MethodPost, path: "/v1/attendance/sessions", token: token, body: body, wantCode: wantCode}
	}

	teacherToken := getToken(t, env, teacher)
	otherToken := getToken(t, env, other)
	tests := []httpTest{
		post(getToken(t, env, portal), newSession(std.ID, false, 0), http.StatusForbidden),
		post(teacherToken, newSession(outsider.ID, false, 0), http.StatusBadRequest),
		post(teacherToken, newSession(std.ID, false, -1), http.StatusBadRequest),
		post(otherToken, newSession(std.ID, false, 0), http.StatusForbidden),
		post(teacherToken, newSession(std.ID, false, 1), http.StatusCreated),
		post(teacherToken, newSession(std.ID, false, 1), http.StatusConflict),
		post(otherToken, newSession(std.ID, true, 0), http.StatusCreated),
	}
	for i, tt := range tests {
		rec := do(server, tt.method, tt.path, tt.token, tt.body)
		assert.Equal(t, tt.wantCode, rec.Code, "request %d: %s", i, rec.Body.String())
	}

	rec := do(server, http.MethodGet, "/v1/attendance/cycle?class_id="+cls.ID+"&student_id="+std.ID, teacherToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cycle attendance.Cycle
	decode(t, rec, &cycle)
	require.NotNil(t, cycle.Package)
	assert.Equal(t, teacher.ID, cycle.Package.OriginalTeacherID)
	assert.Equal(t, 3, cycle.NextNumber)
	assert.Equal(t, 4, cycle.Remaining)
	require.Len(t, cycle.Sessions, 2)
	assert.False(t, cycle.Sessions[0].IsSubstitute)
	assert.True(t, cycle.Sessions[1].IsSubstitute)
	assert.Equal(t, other.ID, cycle.Sessions[1].TeacherID)

	rec = do(server, http.MethodGet, "/v1/attendance/cycle?class_id="+cls.ID+"&student_id="+outsider.ID, getToken(t, env, admin))
	assert.Equal(t, http.StatusNotFound, rec.Code, "not enrolled")

	// the substitute only sees the session they taught
	rec = do(server, http.MethodGet, "/v1/attendance/sessions", otherToken)
	var visible []attendance.Session
	decode(t, rec, &visible)
	require.Len(t, visible, 1)
	assert.Equal(t, other.ID, visible[0].TeacherID)

	rec = do(server, http.MethodGet, "/v1/me/sessions", getToken(t, env, portal))
	var mine []attendance.Session
	decode(t, rec, &mine)
	assert.Len(t, mine, 2)
}

func Test_attendanceApi_packageCompletion(t *testing.T) {
	server, env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	sub := testutil.CreateUser(t, env.UserRepo, "Sub", "sub", "sub@test.id", "", []string{user.RoleTeacher}, true)
	std := testutil.CreateStudent(t, env.StudentRepo, "Putu", "")
	cls := testutil.CreateClass(t, env.ClassRepo, "Math A", teacher.ID, 600000, 50000, std.ID)

	sessions := testutil.LogSessions(t, env.AttendanceSvc, teacher, cls.ID, std.ID, 5)
	_, err := env.AttendanceSvc.LogSession(ctx, sub, attendance.NewSession{
		ClassID:     cls.ID,
		StudentID:   std.ID,
		SessionDate: core.DateOf(core.Today().AddDate(0, 0, -10)),
		Status:      attendance.StatusPresent,
		Substitute:  true,
	})
	require.NoError(t, err)

	adminToken := getToken(t, env, admin)
	rec := do(server, http.MethodGet, "/v1/attendance/packages/"+sessions[0].PackageID, adminToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pkg attendance.Package
	decode(t, rec, &pkg)
	assert.Equal(t, attendance.PackageCompleted, pkg.Status)
	assert.Equal(t, 6, pkg.SessionsDone)
	assert.Len(t, pkg.Sessions, 6)
	assert.True(t, core.DateOf(core.Today().AddDate(0, 0, -10)).Equal(pkg.StartedOn), "started on the earliest session")

	entries, err := env.PayrollSvc.Query(ctx, &payroll.QueryFilter{PackageID: pkg.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2, "one entry per teacher")
	amounts := map[string]decimal.Decimal{}
	for _, e := range entries {
		assert.Equal(t, payroll.StatusPending, e.Status)
		amounts[e.TeacherID] = e.Amount
	}
	assert.True(t, decimal.NewFromInt(250000).Equal(amounts[teacher.ID]), amounts[teacher.ID].String())
	assert.True(t, decimal.NewFromInt(50000).Equal(amounts[sub.ID]), amounts[sub.ID].String())

	// teachers list the packages they own or taught in
	stranger := testutil.CreateUser(t, env.UserRepo, "Stranger", "stranger", "stranger@test.id", "", []string{user.RoleTeacher}, true)
	listed := func(usr user.User) []string {
		t.Helper()
		rec := do(server, http.MethodGet, "/v1/attendance/packages?class_id="+cls.ID, getToken(t, env, usr))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var packages []attendance.Package
		decode(t, rec, &packages)
		ids := make([]string, 0, len(packages))
		for _, p := range packages {
			ids = append(ids, p.ID)
		}
		return ids
	}
	assert.Equal(t, []string{pkg.ID}, listed(teacher))
	assert.Equal(t, []string{pkg.ID}, listed(sub))
	assert.Empty(t, listed(stranger))

	// the next session opens a new package
	rec = do(server, http.MethodGet, "/v1/attendance/cycle?class_id="+cls.ID+"&student_id="+std.ID, adminToken)
	var cycle attendance.Cycle
	decode(t, rec, &cycle)
	assert.Nil(t, cycle.Package)
	assert.Equal(t, 1, cycle.NextNumber)

	// the substitute may not touch the completed package, the owner may
	rec = do(server, http.MethodDelete, "/v1/attendance/sessions/"+sessions[2].ID, getToken(t, env, sub))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(server, http.MethodDelete, "/v1/attendance/sessions/"+sessions[2].ID, getToken(t, env, teacher))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	reopened, err := env.AttendanceSvc.GetPackage(ctx, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.PackageOpen, reopened.Status)
	assert.Equal(t, 5, reopened.SessionsDone)
	for i, s := range reopened.Sessions {
		assert.Equal(t, i+1, s.SessionNumber, "renumbered")
	}
	entries, err = env.PayrollSvc.Query(ctx, &payroll.QueryFilter{PackageID: pkg.ID, Statuses: []string{payroll.StatusCancelled}})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "unpaid entries are cancelled")
}

func Test_payrollApi_flow(t *testing.T) {
	server, env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.id", "", []string{user.RoleTeacher}, true)
	std := testutil.CreateStudent(t, env.StudentRepo, "Putu", "")
	cls := testutil.CreateClass(t, env.ClassRepo, "Math A", teacher.ID, 600000, 50000, std.ID)
	sessions := testutil.LogSessions(t, env.AttendanceSvc, teacher, cls.ID, std.ID, 6)

	entries, err := env.PayrollSvc.Query(ctx, &payroll.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entry := entries[0]

	adminToken := getToken(t, env, admin)
	teacherToken := getToken(t, env, teacher)
	runHTTPTests(t, server, []httpTest{
		{name: "teacher sees their entry", path: "/v1/payroll", token: teacherToken, wantData: marchallList(t, entry)},
		{name: "others see nothing", path: "/v1/payroll", token: getToken(t, env, other), wantData: marchallList(t)},
		{name: "others cannot read it", path: "/v1/payroll/" + entry.ID, token: getToken(t, env, other), wantCode: http.StatusNotFound},
		{
			name: "teacher cannot approve", method: http.MethodPost, path: "/v1/payroll/approve", token: teacherToken,
			body: marchallObj(t, echoapi.IDsRequest{IDs: []string{entry.ID}}), wantCode: http.StatusForbidden,
		},
		{
			name: "pending cannot be paid", method: http.MethodPost, path: "/v1/payroll/" + entry.ID + "/pay", token: adminToken,
			body: []byte(`{}`), wantCode: http.StatusConflict,
		},
		{
			name: "approve", method: http.MethodPost, path: "/v1/payroll/approve", token: adminToken,
			body: marchallObj(t, echoapi.IDsRequest{IDs: []string{entry.ID}}),
		},
		{
			name: "approve twice", method: http.MethodPost, path: "/v1/payroll/approve", token: adminToken,
			body: marchallObj(t, echoapi.IDsRequest{IDs: []string{entry.ID}}), wantCode: http.StatusConflict,
		},
		{
			name: "pay", method: http.MethodPost, path: "/v1/payroll/" + entry.ID + "/pay", token: adminToken,
			body: []byte(`{"notes":"bank transfer"}`),
		},
		{
			name: "paid cannot be cancelled", method: http.MethodPost, path: "/v1/payroll/" + entry.ID + "/cancel", token: adminToken,
			body: []byte(`{"reason":"oops"}`), wantCode: http.StatusConflict,
		},
		{
			name: "paid package cannot be reopened", method: http.MethodDelete, path: "/v1/attendance/sessions/" + sessions[0].ID,
			token: adminToken, wantCode: http.StatusConflict,
		},
	})

	paid, err := env.PayrollSvc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusPaid, paid.Status)
	assert.Equal(t, admin.ID, paid.ApprovedBy)
	assert.Equal(t, "bank transfer", paid.Notes)
	require.NotEmpty(t, paid.LedgerEntryID)

	le, err := env.LedgerSvc.Get(ctx, paid.LedgerEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.KindExpense, le.Kind)
	assert.Equal(t, ledger.CategoryPayroll, le.Category)
	assert.True(t, decimal.NewFromInt(300000).Equal(le.Amount))

	rec := do(server, http.MethodDelete, "/v1/ledger/entries/"+le.ID, adminToken)
	assert.Equal(t, http.StatusConflict, rec.Code, "system entries cannot be deleted")

	rec = do(server, http.MethodGet, "/v1/payroll/summary", teacherToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var sum payroll.Summary
	decode(t, rec, &sum)
	assert.Equal(t, teacher.ID, sum.TeacherID)
	for _, total := range sum.Totals {
		if total.Status == payroll.StatusPaid {
			assert.Equal(t, 1, total.Count)
		} else {
			assert.Zero(t, total.Count, total.Status)
		}
	}
}
