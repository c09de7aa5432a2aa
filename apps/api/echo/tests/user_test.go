package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/Jati804/internal-web-sanur-akademi-sub000/apps/api/echo"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	emailsvc "github.com/Jati804/internal-web-sanur-akademi-sub000/services/email"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

const testPwd = "Pwd.123!"

func Test_userApi_login(t *testing.T) {
	server, env := setup(t)

	testutil.CreateUser(t, env.UserRepo, "Wayu", "wayu", "wayu@test.id", testPwd, []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, env.UserRepo, "Gone", "gone", "gone@test.id", testPwd, []string{user.RoleTeacher}, false)

	invalidCreds := marchallObj(t, httpErr{Error: "invalid credentials"})
	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{name: "missing password", body: login("wayu", ""), wantCode: http.StatusBadRequest},
		{name: "unknown user", body: login("nobody", testPwd), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{name: "wrong password", body: login("wayu", "wrong"), wantCode: http.StatusBadRequest, wantData: invalidCreds},
		{
			name: "deactivated", body: login("gone", testPwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", body: login("WAYU ", testPwd), wantCode: http.StatusOK},
		{name: "by email", body: login("wayu@test.id", testPwd), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"
		t.Run(tt.name, func(t *testing.T) {
			rec := do(server, tt.method, tt.path, "", tt.body)
			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusOK {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.Token)
			}
		})
	}

	usr, err := env.UserSvc.GetByUsername(context.Background(), "wayu")
	require.NoError(t, err)
	assert.False(t, usr.LastLogin.IsZero(), "last login is set")
}

func Test_userApi_loginThrottle(t *testing.T) {
	server, env := setup(t)
	testutil.CreateUser(t, env.UserRepo, "Wayu", "wayu", "wayu@test.id", testPwd, []string{user.RoleTeacher}, true)

	login := func(pwd string) int {
		body := marchallObj(t, echoapi.LoginRequest{Username: "wayu", Password: pwd})
		return do(server, http.MethodPost, "/v1/users/login", "", body).Code
	}

	for i := 0; i < env.Conf.Login.MaxAttempts; i++ {
		require.Equal(t, http.StatusBadRequest, login("wrong"), "attempt %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, login(testPwd), "the right password is refused while throttled")
}

func Test_userApi_query(t *testing.T) {
	server, env := setup(t)

	now := time.Now().UTC().Truncate(time.Second)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true, now.Add(-3*time.Hour))
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher Wayan", "wayan", "wayan@test.id", "", []string{user.RoleTeacher}, true, now.Add(-2*time.Hour))
	student := testutil.CreateUser(t, env.UserRepo, "Student Made", "made", "made@test.id", "", []string{user.RoleStudent}, true, now.Add(-1*time.Hour))
	inactive := testutil.CreateUser(t, env.UserRepo, "Ketut", "ketut", "ketut@test.id", "", []string{user.RoleStudent}, false, now)

	adminToken := getToken(t, env, admin)
	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/v1/users?" + v.Encode()
	}

	runHTTPTests(t, server, []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, env, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marchallList(t, inactive, student, teacher, admin)},
		{name: "search (unknown)", path: path("search", "lol"), token: adminToken, wantData: marchallList(t)},
		{name: "search=MAD", path: path("search", "MAD"), token: adminToken, wantData: marchallList(t, student)},
		{name: "role=teacher:", path: path("role", user.RoleTeacher), token: adminToken, wantData: marchallList(t, teacher)},
		{
			name: "role=teacher:,admin:", path: path("role", user.RoleTeacher+","+user.RoleAdmin), token: adminToken,
			wantData: marchallList(t, teacher, admin),
		},
		{name: "is_active=false", path: path("is_active", "false"), token: adminToken, wantData: marchallList(t, inactive)},
		{name: "is_active=lol", path: path("is_active", "lol"), token: adminToken, wantCode: http.StatusBadRequest},
		{name: "order by name", path: path("ordering", "name"), token: adminToken, wantData: marchallList(t, admin, inactive, student, teacher)},
		{name: "order by created_at", path: path("ordering", "created_at"), token: adminToken, wantData: marchallList(t, admin, teacher, student, inactive)},
	})
}

func Test_userApi_detail(t *testing.T) {
	server, env := setup(t)

	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner", "owner@test.id", "", []string{user.RoleAdminOwner}, true)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.id", "", []string{user.RoleTeacher}, true)

	adminToken := getToken(t, env, admin)
	teacherToken := getToken(t, env, teacher)
	notFound := marchallObj(t, httpErr{Error: "not found"})
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	runHTTPTests(t, server, []httpTest{
		{name: "self", path: "/v1/users/" + teacher.ID, token: teacherToken, wantData: marchallObj(t, teacher)},
		{name: "someone else", path: "/v1/users/" + other.ID, token: teacherToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin reads anyone", path: "/v1/users/" + other.ID, token: adminToken, wantData: marchallObj(t, other)},
		{name: "unknown", path: "/v1/users/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "non-admin cannot set roles", method: http.MethodPut, path: "/v1/users/" + teacher.ID, token: teacherToken,
			body: marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}}), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "admin cannot grant owner", method: http.MethodPut, path: "/v1/users/" + other.ID, token: adminToken,
			body: marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdminOwner}}), wantCode: http.StatusBadRequest,
		},
		{name: "teacher cannot delete", method: http.MethodDelete, path: "/v1/users/" + teacher.ID, token: teacherToken, wantCode: http.StatusForbidden},
		{name: "admin cannot delete themselves", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "admin cannot delete the owner", method: http.MethodDelete, path: "/v1/users/" + owner.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "admin deletes a teacher", method: http.MethodDelete, path: "/v1/users/" + other.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted user token is refused", path: "/v1/me", token: getToken(t, env, other), wantCode: http.StatusUnauthorized},
	})

	rec := do(server, http.MethodPut, "/v1/users/"+teacher.ID, teacherToken, marchallObj(t, user.UpdateUser{Name: "Pak Guru", Phone: "+62 812 3456 789"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated user.User
	decode(t, rec, &updated)
	assert.Equal(t, "Pak Guru", updated.Name)
	assert.Equal(t, teacher.Username, updated.Username)
}

func Test_userApi_passwordReset(t *testing.T) {
	server, env := setup(t)
	usr := testutil.CreateUser(t, env.UserRepo, "Wayu", "wayu", "wayu@test.id", testPwd, []string{user.RoleTeacher}, true)

	emailsvc.ClearSentMessages()
	success := marchallObj(t, echoapi.SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	runHTTPTests(t, server, []httpTest{
		{
			name: "unknown email", method: http.MethodPost, path: "/v1/users/password-reset",
			body: marchallObj(t, echoapi.PasswordResetRequest{Email: "nobody@test.id"}), wantData: success,
		},
		{
			name: "known email", method: http.MethodPost, path: "/v1/users/password-reset",
			body: marchallObj(t, echoapi.PasswordResetRequest{Email: "WAYU@test.id"}), wantData: success,
		},
		{
			name: "bad token", method: http.MethodPost, path: "/v1/users/password-reset-confirm",
			body: marchallObj(t, user.ResetUserPassword{
				Token: "lol", UID: user.EncodeUID(usr), Password: "N3w.Passw0rd!", PasswordConfirm: "N3w.Passw0rd!",
			}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid or expired token"}),
		},
	})

	msgs := emailsvc.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "wayu@test.id", msgs[0].To[0].Address)
	assert.Contains(t, msgs[0].TextContent, user.EncodeUID(usr))
}

func Test_userApi_refreshToken(t *testing.T) {
	server, env := setup(t)
	usr := testutil.CreateUser(t, env.UserRepo, "Wayu", "wayu", "wayu@test.id", "", []string{user.RoleTeacher}, true)

	runHTTPTests(t, server, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/users/token-refresh", wantCode: http.StatusUnauthorized},
		{name: "refreshed", method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, env, usr)},
	})

	expired := echoapi.GetUserClaims(env.Conf, usr, time.Now().Add(-env.Conf.Server.JWTRefreshExpirationDelta-time.Minute).Unix())
	token, err := echoapi.GenerateToken(env.Conf, expired)
	require.NoError(t, err)
	rec := do(server, http.MethodPost, "/v1/users/token-refresh", token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
