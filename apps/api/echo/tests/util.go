package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/Jati804/internal-web-sanur-akademi-sub000/apps/api/echo"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/services/throttle"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// setup returns a server backed by a fresh in-memory environment.
func setup(t *testing.T) (*echoapi.Server, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv()
	server := echoapi.NewServer(echoapi.Deps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		Limiter:        throttle.NewMemoryLimiter(env.Conf),
		UserSvc:        env.UserSvc,
		StudentSvc:     env.StudentSvc,
		ClassSvc:       env.ClassSvc,
		AttendanceSvc:  env.AttendanceSvc,
		PayrollSvc:     env.PayrollSvc,
		LedgerSvc:      env.LedgerSvc,
		ReceiptSvc:     env.ReceiptSvc,
		DisableReqLogs: true,
	})
	return server, env
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do sends a request to server and returns the recorded response.
func do(server http.Handler, method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	server.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, env *testutil.Env, usr user.User) string {
	claims := echoapi.GetUserClaims(env.Conf, usr)
	token, err := echoapi.GenerateToken(env.Conf, claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

// decode unmarshals the response body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func runHTTPTests(t *testing.T, server http.Handler, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := do(server, method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}
