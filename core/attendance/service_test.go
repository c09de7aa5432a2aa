package attendance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/attendance"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/payroll"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

type fixture struct {
	env     *testutil.Env
	admin   user.User
	teacher user.User
	sub     user.User
	classID string
	stdID   string
}

func newFixture(t *testing.T) fixture {
	env := testutil.NewEnv()
	f := fixture{
		env:     env,
		admin:   testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true),
		teacher: testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true),
		sub:     testutil.CreateUser(t, env.UserRepo, "Sub", "sub", "sub@test.id", "", []string{user.RoleTeacher}, true),
	}
	f.stdID = testutil.CreateStudent(t, env.StudentRepo, "Putu", "").ID
	f.classID = testutil.CreateClass(t, env.ClassRepo, "Math A", f.teacher.ID, 600000, 50000, f.stdID).ID
	return f
}

func daysAgo(n int) core.Date {
	return core.DateOf(core.Today().AddDate(0, 0, -n))
}

func TestService_LogSession_resolveTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive := testutil.CreateUser(t, f.env.UserRepo, "Gone", "gone", "gone@test.id", "", []string{user.RoleTeacher}, false)

	tests := []struct {
		name           string
		actor          user.User
		ns             attendance.NewSession
		wantTeacher    string
		wantSubstitute bool
		wantErr        func(error) bool
	}{
		{
			name:        "class teacher",
			actor:       f.teacher,
			ns:          attendance.NewSession{SessionDate: daysAgo(10)},
			wantTeacher: f.teacher.ID,
		},
		{
			name:        "admin defaults to the class teacher",
			actor:       f.admin,
			ns:          attendance.NewSession{SessionDate: daysAgo(9)},
			wantTeacher: f.teacher.ID,
		},
		{
			name:           "admin names a substitute",
			actor:          f.admin,
			ns:             attendance.NewSession{SessionDate: daysAgo(8), TeacherID: f.sub.ID},
			wantTeacher:    f.sub.ID,
			wantSubstitute: true,
		},
		{
			name:    "admin names an inactive teacher",
			actor:   f.admin,
			ns:      attendance.NewSession{SessionDate: daysAgo(7), TeacherID: inactive.ID},
			wantErr: core.IsValidation,
		},
		{
			name:    "another teacher without the substitute flag",
			actor:   f.sub,
			ns:      attendance.NewSession{SessionDate: daysAgo(7)},
			wantErr: core.IsPermission,
		},
		{
			name:           "another teacher substitutes",
			actor:          f.sub,
			ns:             attendance.NewSession{SessionDate: daysAgo(7), Substitute: true},
			wantTeacher:    f.sub.ID,
			wantSubstitute: true,
		},
		{
			name:    "same date twice",
			actor:   f.teacher,
			ns:      attendance.NewSession{SessionDate: daysAgo(7)},
			wantErr: core.IsConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ns.ClassID = f.classID
			tt.ns.StudentID = f.stdID
			tt.ns.Status = attendance.StatusPresent
			sess, err := f.env.AttendanceSvc.LogSession(ctx, tt.actor, tt.ns)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTeacher, sess.TeacherID)
			assert.Equal(t, tt.wantSubstitute, sess.IsSubstitute)
			assert.Equal(t, f.teacher.ID, sess.OriginalTeacherID)
			assert.Equal(t, tt.actor.ID, sess.LoggedBy)
		})
	}
}

func TestService_packageCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.env.AttendanceSvc

	// every status counts toward the package
	statuses := []string{attendance.StatusPresent, attendance.StatusAbsent, attendance.StatusExcused}
	var first attendance.Session
	for i := 0; i < 5; i++ {
		sess, err := svc.LogSession(ctx, f.teacher, attendance.NewSession{
			ClassID: f.classID, StudentID: f.stdID, SessionDate: daysAgo(20 - i), Status: statuses[i%len(statuses)],
		})
		require.NoError(t, err)
		assert.Equal(t, i+1, sess.SessionNumber)
		if i == 0 {
			first = sess
		}
	}

	cycle, err := svc.CurrentCycle(ctx, f.classID, f.stdID)
	require.NoError(t, err)
	require.NotNil(t, cycle.Package)
	assert.Equal(t, 6, cycle.NextNumber)
	assert.Equal(t, 1, cycle.Remaining)

	entries, err := f.env.PayrollSvc.Query(ctx, &payroll.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries, "no payroll before the package completes")

	last, err := svc.LogSession(ctx, f.teacher, attendance.NewSession{
		ClassID: f.classID, StudentID: f.stdID, SessionDate: daysAgo(14), Status: attendance.StatusAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, last.SessionNumber)

	pkg, err := svc.GetPackage(ctx, first.PackageID)
	require.NoError(t, err)
	assert.Equal(t, attendance.PackageCompleted, pkg.Status)
	assert.False(t, pkg.CompletedAt.IsZero())

	// the 7th session opens a new package owned by the current class teacher
	next, err := svc.LogSession(ctx, f.teacher, attendance.NewSession{
		ClassID: f.classID, StudentID: f.stdID, SessionDate: daysAgo(13), Status: attendance.StatusPresent,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.PackageID, next.PackageID)
	assert.Equal(t, 1, next.SessionNumber)

	entries, err = f.env.PayrollSvc.Query(ctx, &payroll.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].Sessions)
	assert.Equal(t, payroll.StatusPending, entries[0].Status)

	// a completed package cannot be reopened while the pair has another open package
	err = svc.DeleteSession(ctx, f.admin, first.ID)
	assert.True(t, core.IsConflict(err), "unexpected error: %v", err)

	require.NoError(t, svc.DeleteSession(ctx, f.admin, next.ID))
	packages, err := svc.QueryPackages(ctx, attendance.PackageFilter{ClassID: f.classID})
	require.NoError(t, err)
	assert.Len(t, packages, 1, "the emptied package is removed")

	require.NoError(t, svc.DeleteSession(ctx, f.admin, first.ID))
	pkg, err = svc.GetPackage(ctx, first.PackageID)
	require.NoError(t, err)
	assert.True(t, pkg.IsOpen())
	assert.True(t, pkg.CompletedAt.IsZero())
	assert.True(t, daysAgo(19).Equal(pkg.StartedOn), "started on the earliest remaining session")
	require.Len(t, pkg.Sessions, 5)
	for i, s := range pkg.Sessions {
		assert.Equal(t, i+1, s.SessionNumber)
	}

	entries, err = f.env.PayrollSvc.Query(ctx, &payroll.QueryFilter{Statuses: []string{payroll.StatusPending}})
	require.NoError(t, err)
	assert.Empty(t, entries, "the pending entry is cancelled")
}

func TestService_UpdateSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.env.AttendanceSvc

	own := testutil.LogSessions(t, svc, f.teacher, f.classID, f.stdID, 2)
	subbed, err := svc.LogSession(ctx, f.sub, attendance.NewSession{
		ClassID: f.classID, StudentID: f.stdID, SessionDate: daysAgo(5), Status: attendance.StatusPresent, Substitute: true,
	})
	require.NoError(t, err)

	update := attendance.UpdateSession{SessionDate: daysAgo(5), Status: attendance.StatusExcused, Topic: "Fractions"}

	_, err = svc.UpdateSession(ctx, f.sub, own[0].ID, update)
	assert.True(t, core.IsPermission(err), "a substitute cannot edit another teacher's session")

	updated, err := svc.UpdateSession(ctx, f.sub, subbed.ID, update)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusExcused, updated.Status)
	assert.Equal(t, "Fractions", updated.Topic)

	update.SessionDate = own[1].SessionDate
	_, err = svc.UpdateSession(ctx, f.teacher, subbed.ID, update)
	assert.True(t, core.IsConflict(err), "moving onto a logged date")

	// the package starts on its earliest session
	for _, days := range []int{8, 3} {
		update.SessionDate = daysAgo(days)
		_, err = svc.UpdateSession(ctx, f.teacher, subbed.ID, update)
		require.NoError(t, err)
		pkg, err := svc.GetPackage(ctx, subbed.PackageID)
		require.NoError(t, err)
		assert.True(t, daysAgo(days).Equal(pkg.StartedOn), "started on %s", pkg.StartedOn)
	}
}
