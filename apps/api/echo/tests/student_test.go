package tests

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/student"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/core/user"
	"github.com/Jati804/internal-web-sanur-akademi-sub000/tests"
)

func Test_studentApi_visibility(t *testing.T) {
	server, env := setup(t)

	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Teacher", "teacher", "teacher@test.id", "", []string{user.RoleTeacher}, true)
	portal := testutil.CreateUser(t, env.UserRepo, "Putu", "putu", "putu@test.id", "", []string{user.RoleStudent}, true)

	mine := testutil.CreateStudent(t, env.StudentRepo, "Putu", portal.ID)
	notMine := testutil.CreateStudent(t, env.StudentRepo, "Komang", "")
	testutil.CreateClass(t, env.ClassRepo, "Math A", teacher.ID, 600000, 50000, mine.ID)

	teacherToken := getToken(t, env, teacher)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	runHTTPTests(t, server, []httpTest{
		{name: "students cannot list", path: "/v1/students", token: getToken(t, env, portal), wantCode: http.StatusForbidden},
		{name: "admin lists all", path: "/v1/students?ordering=name", token: getToken(t, env, admin), wantData: marchallList(t, notMine, mine)},
		{name: "teacher lists their students", path: "/v1/students", token: teacherToken, wantData: marchallList(t, mine)},
		{name: "teacher reads their student", path: "/v1/students/" + mine.ID, token: teacherToken, wantData: marchallObj(t, mine)},
		{name: "teacher cannot read others", path: "/v1/students/" + notMine.ID, token: teacherToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "teacher cannot update", method: http.MethodPut, path: "/v1/students/" + mine.ID, token: teacherToken,
			body: marchallObj(t, student.UpdateStudent{Name: "Putu"}), wantCode: http.StatusForbidden,
		},
		{name: "portal profile", path: "/v1/me/student", token: getToken(t, env, portal), wantData: marchallObj(t, mine)},
		{name: "no profile for teachers", path: "/v1/me/student", token: teacherToken, wantCode: http.StatusNotFound},
	})
}

func Test_studentApi_crud(t *testing.T) {
	server, env := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	token := getToken(t, env, admin)

	rec := do(server, http.MethodPost, "/v1/students", token, marchallObj(t, student.NewStudent{Name: " "}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "blank name")

	rec = do(server, http.MethodPost, "/v1/students", token, marchallObj(t, student.NewStudent{
		Name:          "  Kadek Ayu \t",
		GuardianPhone: "0812-3456-7890",
		GuardianEmail: "IBU@test.id",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created student.Student
	decode(t, rec, &created)
	assert.Equal(t, "Kadek Ayu", created.Name)
	assert.Equal(t, "ibu@test.id", created.GuardianEmail)
	assert.Equal(t, student.StatusActive, created.Status)
	assert.False(t, created.JoinedOn.IsZero())

	// notes & follow-ups
	rec = do(server, http.MethodPost, "/v1/students/"+created.ID+"/notes", token, marchallObj(t, student.NewNote{Kind: student.NoteKindFollowUp, Body: "call back"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "follow-up date required")

	rec = do(server, http.MethodPost, "/v1/students/"+created.ID+"/notes", token, []byte(`{"kind":"follow_up","body":"call back","follow_up_on":"2020-01-02"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var note student.Note
	decode(t, rec, &note)
	assert.Equal(t, admin.ID, note.AuthorID)

	rec = do(server, http.MethodGet, "/v1/students/follow-ups", token)
	require.Equal(t, http.StatusOK, rec.Code)
	var due []student.Note
	decode(t, rec, &due)
	require.Len(t, due, 1)
	assert.Equal(t, note.ID, due[0].ID)

	rec = do(server, http.MethodPost, "/v1/students/notes/"+note.ID+"/resolve", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(server, http.MethodGet, "/v1/students/follow-ups", token)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(server, http.MethodDelete, "/v1/students/"+created.ID, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(server, http.MethodGet, "/v1/students/"+created.ID, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_studentApi_import(t *testing.T) {
	server, env := setup(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.id", "", []string{user.RoleAdmin}, true)
	token := getToken(t, env, admin)

	rec := do(server, http.MethodGet, "/v1/students/import-template", token)
	require.Equal(t, http.StatusOK, rec.Code)
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	sheet := f.GetSheetName(0)
	rows := map[string][]interface{}{
		"A2": {"Gede", "", "5", "SD 1", "Math", "Bapak Gede", "0812345678", "gede@test.id", ""},
		// row 3 left blank
		"A4": {"", "Nameless"},
		"A5": {"Nyoman", "", "", "", "", "", "", "not-an-email", ""},
	}
	for cell, row := range rows {
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var book bytes.Buffer
	require.NoError(t, f.Write(&book))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "students.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(book.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/students/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res student.ImportResult
	decode(t, rec, &res)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "Gede", res.Created[0].Name)
	assert.Equal(t, "import", res.Created[0].Source)
	assert.Len(t, res.Skipped, 2)
}
