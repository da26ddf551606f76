package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/enrollment"
	"github.com/darasahq/darasa/core/group"
)

type groupApi struct {
	svc       *group.Service
	enrollSvc *enrollment.Service
	validate  *validator.Validate
}

func registerGroupAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := groupApi{
		svc:       deps.GroupSvc,
		enrollSvc: deps.EnrollmentSvc,
		validate:  deps.Validate,
	}

	gg := g.Group("/groups", jwt, principalMiddleware(auth))
	gg.GET("", api.query)
	gg.POST("", api.create, adminMiddleware())
	gg.GET("/:id", api.retrieve)
	gg.PUT("/:id", api.update, adminMiddleware())

	// sessions
	gg.GET("/:id/sessions", api.sessions)
	gg.POST("/:id/sessions", api.createSession, adminMiddleware())
	gg.PUT("/sessions/:id", api.updateSession, adminMiddleware())
	gg.DELETE("/sessions/:id", api.destroySession, adminMiddleware())

	// enrollment roster, restricted to admins and the group's teacher
	gg.GET("/:id/enrollments", api.enrollments)
}

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) query(ctx echo.Context) error {
	filter := new(group.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []group.CourseGroup{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	groups, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []group.CourseGroup{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	grp, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data group.UpdateGroup
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGroup")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	grp, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

// Sessions

func (api *groupApi) sessions(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	sessions, err := api.svc.SessionsForGroup(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "listing group sessions")
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *groupApi) createSession(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data group.NewSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.CreateSession(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return ctx.JSON(http.StatusCreated, sess)
}

func (api *groupApi) updateSession(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data group.NewSession
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSession")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.svc.UpdateSession(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *groupApi) destroySession(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteSession(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupApi) enrollments(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	reqCtx := ctx.Request().Context()

	grp, err := api.svc.GetByID(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "finding group by ID")
	}
	ownsGroup := prin.IsTeacher() && grp.TeacherID.Valid && grp.TeacherID.Int64 == prin.ID
	if !prin.IsAdmin() && !ownsGroup {
		return errHttpForbidden
	}

	enrollments, err := api.enrollSvc.ListByGroup(reqCtx, id)
	if err != nil {
		return errors.Wrap(err, "listing group enrollments")
	}
	return ctx.JSON(http.StatusOK, enrollments)
}
