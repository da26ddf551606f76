package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
	"github.com/darasahq/darasa/core/admin"
	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
	"github.com/darasahq/darasa/core/grouprequest"
	"github.com/darasahq/darasa/core/student"
	"github.com/darasahq/darasa/core/subject"
	"github.com/darasahq/darasa/core/teacher"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
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
	extra    interface{}
}

// nopLogger satisfies core.Logger for tests.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type testApp struct {
	server *Server
	conf   *core.Config

	studentSvc *student.Service
	teacherSvc *teacher.Service
	adminSvc   *admin.Service
	subjectSvc *subject.Service
	groupSvc   *group.Service
	enrollSvc  *enrollment.Service
	requestSvc *grouprequest.Service

	groupRepo  group.Repository
	enrollRepo enrollment.Repository
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:             true,
		Env:                  "TEST",
		AppName:              "Darasa",
		SecretKey:            "secret",
		RequestRetention:     90 * 24 * time.Hour,
		DefaultGroupCapacity: 30,
		Server: core.ServerConfig{
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	db := inmemdb.Open()
	studentRepo := inmemdb.NewStudentRepository(db)
	teacherRepo := inmemdb.NewTeacherRepository(db)
	adminRepo := inmemdb.NewAdminRepository(db)
	subjectRepo := inmemdb.NewSubjectRepository(db)
	groupRepo := inmemdb.NewGroupRepository(db)
	enrollRepo := inmemdb.NewEnrollmentRepository(db)
	requestRepo := inmemdb.NewGroupRequestRepository(db)

	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	studentSvc := student.NewService(studentRepo)
	teacherSvc := teacher.NewService(teacherRepo)
	adminSvc := admin.NewService(adminRepo)
	subjectSvc := subject.NewService(subjectRepo)
	groupSvc := group.NewService(groupRepo, subjectRepo, teacherRepo, enrollRepo, conf)
	enrollSvc := enrollment.NewService(enrollRepo, groupRepo, studentRepo, mailSvc)
	requestSvc := grouprequest.NewService(requestRepo, studentRepo, subjectRepo, mailSvc, conf)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	student.InitValidators(validate)
	teacher.InitValidators(validate)
	group.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:          conf,
		Logger:        nopLogger{},
		Validate:      validate,
		Translator:    translator,
		StudentSvc:    studentSvc,
		TeacherSvc:    teacherSvc,
		AdminSvc:      adminSvc,
		SubjectSvc:    subjectSvc,
		GroupSvc:      groupSvc,
		EnrollmentSvc: enrollSvc,
		RequestSvc:    requestSvc,
	})

	return &testApp{
		server:     server,
		conf:       conf,
		studentSvc: studentSvc,
		teacherSvc: teacherSvc,
		adminSvc:   adminSvc,
		subjectSvc: subjectSvc,
		groupSvc:   groupSvc,
		enrollSvc:  enrollSvc,
		requestSvc: requestSvc,
		groupRepo:  groupRepo,
		enrollRepo: enrollRepo,
	}
}

// Seed helpers

func (app *testApp) createStudent(t *testing.T, name, email string) student.Student {
	t.Helper()
	std, err := app.studentSvc.Create(context.Background(), student.NewStudent{
		Name: name, Email: email, Major: "Mathematics", Password: "s3cretz!", PasswordConfirm: "s3cretz!",
	})
	if err != nil {
		t.Fatalf("createStudent(): %v", err)
	}
	return std
}

func (app *testApp) createTeacher(t *testing.T, name, email string) teacher.Teacher {
	t.Helper()
	tch, err := app.teacherSvc.Create(context.Background(), teacher.NewTeacher{
		Name: name, Email: email, Password: "s3cretz!", PasswordConfirm: "s3cretz!",
	})
	if err != nil {
		t.Fatalf("createTeacher(): %v", err)
	}
	return tch
}

func (app *testApp) createAdmin(t *testing.T, name, email string) admin.Admin {
	t.Helper()
	adm, err := app.adminSvc.Create(context.Background(), name, email, "s3cretz!")
	if err != nil {
		t.Fatalf("createAdmin(): %v", err)
	}
	return adm
}

func (app *testApp) createSubject(t *testing.T, name, major string, year int) subject.Subject {
	t.Helper()
	sub, err := app.subjectSvc.Create(context.Background(), subject.NewSubject{
		Name: name, Major: major, CourseYear: year,
	})
	if err != nil {
		t.Fatalf("createSubject(): %v", err)
	}
	return sub
}

func (app *testApp) createGroup(t *testing.T, subjectID int64, teacherID *int64, status string) group.CourseGroup {
	t.Helper()
	grp, err := app.groupSvc.Create(context.Background(), group.NewGroup{
		SubjectID: subjectID, TeacherID: teacherID, Status: status, Type: group.TypeRegular, Price: 100,
	})
	if err != nil {
		t.Fatalf("createGroup(): %v", err)
	}
	return grp
}

func (app *testApp) createRequest(t *testing.T, std student.Student, subjectID int64) grouprequest.GroupRequest {
	t.Helper()
	req, err := app.requestSvc.Create(context.Background(), principalOf(std), grouprequest.NewRequest{
		StudentID: std.ID, SubjectID: subjectID,
	})
	if err != nil {
		t.Fatalf("createRequest(): %v", err)
	}
	return req
}

func (app *testApp) createSession(t *testing.T, groupID int64, day, start, end string) group.GroupSession {
	t.Helper()
	sess, err := app.groupSvc.CreateSession(context.Background(), groupID, group.NewSession{
		Day: group.DayOfWeek(day), Start: tod(t, start), End: tod(t, end),
	})
	if err != nil {
		t.Fatalf("createSession(): %v", err)
	}
	return sess
}

func (app *testApp) enroll(t *testing.T, std student.Student, groupID int64) enrollment.Enrollment {
	t.Helper()
	enr, err := app.enrollSvc.Enroll(context.Background(), principalOf(std), enrollment.NewEnrollment{
		StudentID: std.ID, CourseGroupID: groupID,
	})
	if err != nil {
		t.Fatalf("enroll(): %v", err)
	}
	return enr
}

// Token helpers

func principalOf(std student.Student) account.Principal {
	return account.Principal{ID: std.ID, Role: account.RoleStudent, Name: std.Name, Email: std.Email}
}

func (app *testApp) tokenFor(t *testing.T, prin account.Principal) string {
	t.Helper()
	token, err := app.server.auth.generateToken(app.server.auth.claimsFor(prin))
	if err != nil {
		t.Fatalf("tokenFor(): %v", err)
	}
	return token
}

func (app *testApp) studentToken(t *testing.T, std student.Student) string {
	return app.tokenFor(t, principalOf(std))
}

func (app *testApp) teacherToken(t *testing.T, tch teacher.Teacher) string {
	return app.tokenFor(t, account.Principal{ID: tch.ID, Role: account.RoleTeacher, Name: tch.Name, Email: tch.Email})
}

func (app *testApp) adminToken(t *testing.T, adm admin.Admin) string {
	return app.tokenFor(t, account.Principal{ID: adm.ID, Role: account.RoleAdmin, Name: adm.Name, Email: adm.Email})
}

// Request helpers

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

func (app *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) {
	app.server.ServeHTTP(rec, req)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBody(t *testing.T, obj interface{}) []byte {
	return marchallObj(t, obj)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decodeBody(%s): %v", rec.Body.String(), err)
	}
}

func checkCodeAndError(t *testing.T, rec *httptest.ResponseRecorder, wantCode int, wantError string) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, wantCode, rec.Body.String())
	}
	if wantError != "" {
		var herr httpErr
		decodeBody(t, rec, &herr)
		if herr.Error != wantError {
			t.Errorf("failed! error = %q; wantError %q", herr.Error, wantError)
		}
	}
}
