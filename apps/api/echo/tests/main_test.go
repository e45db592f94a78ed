package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/api/echo"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/apps/shared"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/branch"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/document"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/student"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/tenancy"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/core/user"
	"github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/docstore"
	sqlxrepos "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/storage/database/sqlx"
	testutil "github.com/MohammedReshid1/spring-of-knowledge-hub-sub004/tests"
)

const strongPwd = "Kq7#vLm2!xZ"

var (
	errMissingToken   = httpErr{Error: "missing or malformed jwt"}
	errPermission     = httpErr{Error: "permission denied"}
	errNotFound       = httpErr{Error: "not found"}
	errNoBranch       = httpErr{Error: "user is not assigned to a branch"}
	errDeactivated    = httpErr{Error: "account deactivated"}
	superAdminActor   = tenancy.Actor{UserID: "root", Role: tenancy.RoleSuperAdmin}
	backgroundContext = context.Background()
)

type testApp struct {
	*echoapi.Server
	conf     *core.Config
	svcs     *shared.Services
	usrRepo  user.Repository
	branches document.Repository[*branch.Branch]
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)
	validate, translator := testutil.NewValidator()

	svcs, err := shared.NewServices(shared.Options{
		DB:         db,
		Logger:     testutil.Logger{},
		Validate:   validate,
		Translator: translator,
	})
	require.NoError(t, err)

	branchRepo, err := docstore.New(db, branch.Collection, branch.New)
	require.NoError(t, err)

	return &testApp{
		Server: echoapi.NewServer(
			"", /* addr */
			make(chan os.Signal, 1),
			echoapi.NewDeps(conf, testutil.Logger{}, validate, translator, svcs),
		),
		conf:     conf,
		svcs:     svcs,
		usrRepo:  sqlxrepos.NewUserRepository(db),
		branches: branchRepo,
	}
}

// fixtures are two branches with their staff and a superadmin attached to none.
type fixtures struct {
	branchA, branchB *branch.Branch
	super            user.User
	adminA, adminB   user.User
	teacherA         user.User
}

func newFixtures(t *testing.T, app *testApp) fixtures {
	t.Helper()
	f := fixtures{
		branchA: testutil.CreateBranch(t, app.branches, "Main Campus", "MAIN"),
		branchB: testutil.CreateBranch(t, app.branches, "East Campus", "EAST"),
	}
	f.super = testutil.CreateUser(t, app.usrRepo, "Root", "root", "root@test.cd", strongPwd, tenancy.RoleSuperAdmin, "", true)
	f.adminA = testutil.CreateUser(t, app.usrRepo, "Admin A", "admina", "admina@test.cd", strongPwd, tenancy.RoleAdmin, f.branchA.ID, true)
	f.adminB = testutil.CreateUser(t, app.usrRepo, "Admin B", "adminb", "adminb@test.cd", strongPwd, tenancy.RoleAdmin, f.branchB.ID, true)
	f.teacherA = testutil.CreateUser(t, app.usrRepo, "Teacher A", "teachera", "teachera@test.cd", strongPwd, tenancy.RoleTeacher, f.branchA.ID, true)
	return f
}

func createStudent(t *testing.T, app *testApp, branchID, code, firstName string) *student.Student {
	t.Helper()
	s := &student.Student{StudentCode: code, FirstName: firstName, LastName: "Doe", Gender: "female"}
	s.BranchID = branchID
	s, err := app.svcs.Students.Create(backgroundContext, superAdminActor, s)
	require.NoError(t, err)
	return s
}

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
	wantIDs  []string
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

func (app *testApp) do(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// responseIDs extracts the ids of a JSON list of objects.
func responseIDs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	var objs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &objs); err != nil {
		t.Fatalf("responseIDs(%s) failed: %v", rec.Body.String(), err)
	}
	ids := make([]string, 0, len(objs))
	for _, o := range objs {
		ids = append(ids, o.ID)
	}
	return ids
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

// checkResponse checks the code, then the body when wantData is set, or the listed ids when wantIDs is set.
func checkResponse(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
		if err != nil {
			t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
		}
		if !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
		}
	}
	if tt.wantIDs != nil {
		assert.ElementsMatch(t, tt.wantIDs, responseIDs(t, rec))
	}
}

// decode unmarshals a JSON response body onto v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
