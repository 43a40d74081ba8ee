package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/mradi/apps/api/echo"
	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
	emailsvc "github.com/trezcool/mradi/services/email"
	inmemdb "github.com/trezcool/mradi/storage/database/inmem"
	"github.com/trezcool/mradi/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	srv     *echoapi.Server
	conf    *core.Config
	usrRepo user.Repository
	repo    project.Repository

	faculty user.User
	other   user.User // faculty without students
	student user.User
	admin   user.User
}

func setup(t *testing.T) *testApp {
	t.Helper()
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	testutil.ParseTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	// set up DB & repos
	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewProjectRepository(db)

	// set up services
	validate, translator := testutil.NewValidation()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, validate, conf)
	projectSvc := project.NewService(repo, inmemdb.NewProgressRepository(db), usrSvc, mailSvc, validate, logger)

	app := &testApp{
		srv: echoapi.NewServer(echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			ProjectSvc: projectSvc,
			Tokens:     inmemdb.NewTokenBlacklist(),
			Validate:   validate,
			Translator: translator,
		}),
		conf:    conf,
		usrRepo: usrRepo,
		repo:    repo,
	}
	app.faculty = testutil.CreateFaculty(t, usrRepo, "Dr. Achieng", "achieng@uni.ke")
	app.other = testutil.CreateFaculty(t, usrRepo, "Dr. Mwangi", "mwangi@uni.ke")
	app.student = testutil.CreateStudent(t, usrRepo, "Kevin Ouma", "kevin@uni.ke", app.faculty)
	app.admin = testutil.CreateAdmin(t, usrRepo, "Registrar", "admin@uni.ke")
	return app
}

// run serves tests in order against the same app.
func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func (app *testApp) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) getProject(t *testing.T, id string) project.Project {
	t.Helper()
	p, err := app.repo.GetProject(context.Background(), id)
	if err != nil {
		t.Fatalf("getProject() failed: %v", err)
	}
	return p
}

type httpErr struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// fieldErr is the response of a failed validation on a single field.
func fieldErr(field, msg string) httpErr {
	return httpErr{Error: msg, Fields: map[string]string{field: msg}}
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

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	if method == "" {
		method = http.MethodGet
	}
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

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(conf, echoapi.NewClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("unmarchall(%s) failed: %v", rec.Body.String(), err)
	}
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

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, "code")
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func TestServer_home(t *testing.T) {
	app := setup(t)
	rec := app.serve(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Mradi API!", rec.Body.String())
}
