package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/grouprequest"
)

type groupRequestApi struct {
	svc      *grouprequest.Service
	validate *validator.Validate
}

func registerGroupRequestAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := groupRequestApi{svc: deps.RequestSvc, validate: deps.Validate}

	rg := g.Group("/group-requests", jwt, principalMiddleware(auth))
	rg.POST("", api.create)
	rg.GET("", api.query)
	rg.GET("/demand", api.demand, adminMiddleware())
	rg.GET("/:id", api.retrieve)
	rg.PATCH("/:id/status", api.updateStatus, adminMiddleware())
	rg.DELETE("/:id", api.destroy, adminMiddleware())
}

// create opens a PENDING request. Students request for themselves; admins may
// request on a student's behalf.
func (api *groupRequestApi) create(ctx echo.Context) error {
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var data grouprequest.NewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if data.StudentID == 0 && prin.IsStudent() {
		data.StudentID = prin.ID
	}

	reqCtx := ctx.Request().Context()
	if err = data.Validate(reqCtx, api.validate); err != nil {
		return err
	}

	req, err := api.svc.Create(reqCtx, prin, data)
	if err != nil {
		return errors.Wrap(err, "creating group request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

// query lists requests: students see their own, admins see everything.
func (api *groupRequestApi) query(ctx echo.Context) error {
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	filter := new(grouprequest.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []grouprequest.GroupRequest{})
	}
	filter.Clean()
	switch {
	case prin.IsStudent():
		filter.StudentID = prin.ID
	case prin.IsAdmin():
	default:
		return errHttpForbidden
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	requests, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying group requests")
	}
	if requests == nil {
		requests = []grouprequest.GroupRequest{}
	}
	return ctx.JSON(http.StatusOK, requests)
}

func (api *groupRequestApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	req, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding group request by ID")
	}
	if !prin.CanActFor(req.StudentID) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *groupRequestApi) updateStatus(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data grouprequest.ResolveRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}

	reqCtx := ctx.Request().Context()
	if err = data.Validate(reqCtx, api.validate); err != nil {
		return err
	}

	req, err := api.svc.UpdateStatus(reqCtx, id, data)
	if err != nil {
		return errors.Wrap(err, "resolving group request")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *groupRequestApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting group request")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *groupRequestApi) demand(ctx echo.Context) error {
	demand, err := api.svc.Demand(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subject demand")
	}
	return ctx.JSON(http.StatusOK, demand)
}
