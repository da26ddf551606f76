package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core/group"
)

func tod(t *testing.T, v string) group.TimeOfDay {
	t.Helper()
	parsed, err := group.ParseTimeOfDay(v)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", v, err)
	}
	return parsed
}

func Test_groupApi_create(t *testing.T) {
	app := newTestApp(t)

	sub := app.createSubject(t, "Calculus I", "Mathematics", 1)
	tch := app.createTeacher(t, "Alan Turing", "alan@darasa.cd")
	adm := app.createAdmin(t, "Jane Roe", "jane@darasa.cd")
	token := app.adminToken(t, adm)

	t.Run("admin only", func(t *testing.T) {
		body := jsonBody(t, group.NewGroup{SubjectID: sub.ID, Type: group.TypeRegular})
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups", app.teacherToken(t, tch), body)
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusForbidden, "permission denied")
	})

	t.Run("defaults applied", func(t *testing.T) {
		body := jsonBody(t, group.NewGroup{SubjectID: sub.ID, Type: group.TypeRegular, Price: 150})
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups", token, body)
		app.do(req, rec)

		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var grp group.CourseGroup
		decodeBody(t, rec, &grp)
		assert.Equal(t, group.StatusPlanned, grp.Status)
		assert.Equal(t, 30, grp.MaxCapacity)
		assert.False(t, grp.TeacherID.Valid, "group starts unassigned")
	})

	t.Run("with teacher", func(t *testing.T) {
		body := jsonBody(t, group.NewGroup{
			SubjectID: sub.ID, TeacherID: &tch.ID, Status: group.StatusActive,
			Type: group.TypeIntensive, Price: 200, MaxCapacity: 10,
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups", token, body)
		app.do(req, rec)

		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var grp group.CourseGroup
		decodeBody(t, rec, &grp)
		assert.True(t, grp.TeacherID.Valid)
		assert.Equal(t, tch.ID, grp.TeacherID.Int64)
		assert.Equal(t, 10, grp.MaxCapacity)
	})

	t.Run("unknown subject", func(t *testing.T) {
		body := jsonBody(t, group.NewGroup{SubjectID: 999, Type: group.TypeRegular})
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups", token, body)
		app.do(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("invalid type", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"subject_id": %d, "type": "WEEKEND"}`, sub.ID))
		req, rec := newAuthRequest(http.MethodPost, "/v1/groups", token, body)
		app.do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}

func Test_groupApi_update(t *testing.T) {
	app := newTestApp(t)

	sub := app.createSubject(t, "Calculus I", "Mathematics", 1)
	tch := app.createTeacher(t, "Alan Turing", "alan@darasa.cd")
	adm := app.createAdmin(t, "Jane Roe", "jane@darasa.cd")
	grp := app.createGroup(t, sub.ID, nil, group.StatusPlanned)
	token := app.adminToken(t, adm)
	path := fmt.Sprintf("/v1/groups/%d", grp.ID)

	t.Run("assign teacher and activate", func(t *testing.T) {
		body := jsonBody(t, group.UpdateGroup{TeacherID: &tch.ID, Status: group.StatusActive})
		req, rec := newAuthRequest(http.MethodPut, path, token, body)
		app.do(req, rec)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated group.CourseGroup
		decodeBody(t, rec, &updated)
		assert.Equal(t, group.StatusActive, updated.Status)
		assert.Equal(t, tch.ID, updated.TeacherID.Int64)
	})

	t.Run("capacity below enrollment count", func(t *testing.T) {
		ada := app.createStudent(t, "Ada Lovelace", "ada@darasa.cd")
		app.enroll(t, ada, grp.ID)
		grace := app.createStudent(t, "Grace Hopper", "grace@darasa.cd")
		app.enroll(t, grace, grp.ID)

		capacity := 1
		body := jsonBody(t, group.UpdateGroup{MaxCapacity: &capacity})
		req, rec := newAuthRequest(http.MethodPut, path, token, body)
		app.do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "max_capacity")
	})

	t.Run("unknown group", func(t *testing.T) {
		body := jsonBody(t, group.UpdateGroup{Status: group.StatusClosed})
		req, rec := newAuthRequest(http.MethodPut, "/v1/groups/999", token, body)
		app.do(req, rec)
		assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

func Test_groupApi_sessions(t *testing.T) {
	app := newTestApp(t)

	sub := app.createSubject(t, "Calculus I", "Mathematics", 1)
	tch := app.createTeacher(t, "Alan Turing", "alan@darasa.cd")
	adm := app.createAdmin(t, "Jane Roe", "jane@darasa.cd")
	g1 := app.createGroup(t, sub.ID, &tch.ID, group.StatusActive)
	g2 := app.createGroup(t, sub.ID, &tch.ID, group.StatusActive)
	token := app.adminToken(t, adm)

	newSess := func(day, start, end, classroom string) []byte {
		return jsonBody(t, group.NewSession{
			Day: group.DayOfWeek(day), Start: tod(t, start), End: tod(t, end), Classroom: classroom,
		})
	}

	var monday group.GroupSession

	t.Run("create", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/%d/sessions", g1.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token, newSess("MONDAY", "10:00", "11:00", "A1"))
		app.do(req, rec)

		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeBody(t, rec, &monday)
		assert.NotZero(t, monday.ID)
		assert.Equal(t, "A1", monday.Classroom.String)
	})

	t.Run("end before start", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/%d/sessions", g1.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token, newSess("MONDAY", "11:00", "10:00", "A2"))
		app.do(req, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("classroom conflict", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/%d/sessions", g2.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token, newSess("MONDAY", "10:30", "11:30", "A1"))
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusConflict, group.ErrClassroomConflict.Error())
	})

	t.Run("teacher conflict", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/%d/sessions", g2.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token, newSess("MONDAY", "10:30", "11:30", "B1"))
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusConflict, group.ErrTeacherConflict.Error())
	})

	t.Run("touching slots do not conflict", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/%d/sessions", g2.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token, newSess("MONDAY", "11:00", "12:00", "A1"))
		app.do(req, rec)
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("list", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/%d/sessions", g1.ID)
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.do(req, rec)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sessions []group.GroupSession
		decodeBody(t, rec, &sessions)
		assert.Len(t, sessions, 1)
	})

	t.Run("update keeps its own slot", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/sessions/%d", monday.ID)
		req, rec := newAuthRequest(http.MethodPut, path, token, newSess("MONDAY", "10:00", "11:00", "A2"))
		app.do(req, rec)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sess group.GroupSession
		decodeBody(t, rec, &sess)
		assert.Equal(t, "A2", sess.Classroom.String)
	})

	t.Run("delete", func(t *testing.T) {
		path := fmt.Sprintf("/v1/groups/sessions/%d", monday.ID)
		req, rec := newAuthRequest(http.MethodDelete, path, token)
		app.do(req, rec)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodDelete, path, token)
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusNotFound, group.ErrSessionNotFound.Error())
	})
}

func Test_groupApi_enrollments(t *testing.T) {
	app := newTestApp(t)

	sub := app.createSubject(t, "Calculus I", "Mathematics", 1)
	owner := app.createTeacher(t, "Alan Turing", "alan@darasa.cd")
	other := app.createTeacher(t, "Edsger Dijkstra", "edsger@darasa.cd")
	adm := app.createAdmin(t, "Jane Roe", "jane@darasa.cd")
	grp := app.createGroup(t, sub.ID, &owner.ID, group.StatusActive)

	ada := app.createStudent(t, "Ada Lovelace", "ada@darasa.cd")
	app.enroll(t, ada, grp.ID)

	path := fmt.Sprintf("/v1/groups/%d/enrollments", grp.ID)

	t.Run("owning teacher reads the roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, app.teacherToken(t, owner))
		app.do(req, rec)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enrollments []map[string]interface{}
		decodeBody(t, rec, &enrollments)
		assert.Len(t, enrollments, 1)
	})

	t.Run("admin reads any roster", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, app.adminToken(t, adm))
		app.do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("another teacher is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, app.teacherToken(t, other))
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusForbidden, "permission denied")
	})

	t.Run("students are rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, app.studentToken(t, ada))
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusForbidden, "permission denied")
	})
}
