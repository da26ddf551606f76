package echoapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/darasahq/darasa/core/group"
	"github.com/darasahq/darasa/core/teacher"
)

func Test_teacherApi_list(t *testing.T) {
	app := newTestApp(t)

	tch := app.createTeacher(t, "Alan Turing", "alan@darasa.cd")
	app.createTeacher(t, "Edsger Dijkstra", "edsger@darasa.cd")
	adm := app.createAdmin(t, "Jane Roe", "jane@darasa.cd")

	t.Run("admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers", app.teacherToken(t, tch))
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusForbidden, "permission denied")
	})

	t.Run("admin lists all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/teachers", app.adminToken(t, adm))
		app.do(req, rec)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var teachers []teacher.Teacher
		decodeBody(t, rec, &teachers)
		assert.Len(t, teachers, 2)
	})
}

func Test_teacherApi_create(t *testing.T) {
	app := newTestApp(t)
	adm := app.createAdmin(t, "Jane Roe", "jane@darasa.cd")

	body := jsonBody(t, teacher.NewTeacher{
		Name: "Alan Turing", Email: "alan@darasa.cd", Password: "s3cretz!", PasswordConfirm: "s3cretz!",
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/teachers", app.adminToken(t, adm), body)
	app.do(req, rec)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tch teacher.Teacher
	decodeBody(t, rec, &tch)
	assert.NotZero(t, tch.ID)
	assert.Empty(t, tch.PasswordHash, "hash must not leak in responses")
}

func Test_teacherApi_detail(t *testing.T) {
	app := newTestApp(t)

	alan := app.createTeacher(t, "Alan Turing", "alan@darasa.cd")
	edsger := app.createTeacher(t, "Edsger Dijkstra", "edsger@darasa.cd")
	alanToken := app.teacherToken(t, alan)

	alanPath := fmt.Sprintf("/v1/teachers/%d", alan.ID)
	edsgerPath := fmt.Sprintf("/v1/teachers/%d", edsger.ID)

	t.Run("teacher reads own profile", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, alanPath, alanToken)
		app.do(req, rec)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("another teacher's profile is hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, edsgerPath, alanToken)
		app.do(req, rec)
		checkCodeAndError(t, rec, http.StatusNotFound, "not found")
	})

	t.Run("teacher updates own name", func(t *testing.T) {
		body := jsonBody(t, teacher.UpdateTeacher{Name: "Alan M. Turing"})
		req, rec := newAuthRequest(http.MethodPut, alanPath, alanToken, body)
		app.do(req, rec)

		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated teacher.Teacher
		decodeBody(t, rec, &updated)
		assert.Equal(t, "Alan M. Turing", updated.Name)
	})
}

func Test_teacherApi_groups(t *testing.T) {
	app := newTestApp(t)

	alan := app.createTeacher(t, "Alan Turing", "alan@darasa.cd")
	sub := app.createSubject(t, "Calculus I", "Mathematics", 1)
	app.createGroup(t, sub.ID, &alan.ID, group.StatusActive)
	app.createGroup(t, sub.ID, nil, group.StatusPlanned)

	path := fmt.Sprintf("/v1/teachers/%d/groups", alan.ID)
	req, rec := newAuthRequest(http.MethodGet, path, app.teacherToken(t, alan))
	app.do(req, rec)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var groups []group.CourseGroup
	decodeBody(t, rec, &groups)
	if assert.Len(t, groups, 1) {
		assert.Equal(t, alan.ID, groups[0].TeacherID.Int64)
	}
}
