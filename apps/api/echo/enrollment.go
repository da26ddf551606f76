package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/enrollment"
)

type enrollmentApi struct {
	svc      *enrollment.Service
	validate *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := enrollmentApi{svc: deps.EnrollmentSvc, validate: deps.Validate}

	eg := g.Group("/enrollments", jwt, principalMiddleware(auth))
	eg.POST("", api.create)
	eg.GET("/:id", api.retrieve)
	eg.PATCH("/:id/payment-status", api.updatePaymentStatus, adminMiddleware())
}

// create enrolls a student in a group. Students enroll themselves; admins may
// enroll anyone. The service enforces ownership, capacity, duplicates and
// schedule conflicts.
func (api *enrollmentApi) create(ctx echo.Context) error {
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var data enrollment.NewEnrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if data.StudentID == 0 && prin.IsStudent() {
		data.StudentID = prin.ID
	}

	reqCtx := ctx.Request().Context()
	if err = data.Validate(reqCtx, api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(reqCtx, prin, data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	prin, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	enr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "finding enrollment by ID")
	}
	if !prin.CanActFor(enr.StudentID) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) updatePaymentStatus(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	var data enrollment.UpdatePayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePayment")
	}

	reqCtx := ctx.Request().Context()
	if err = data.Validate(reqCtx, api.validate); err != nil {
		return err
	}

	enr, err := api.svc.UpdatePaymentStatus(reqCtx, id, data)
	if err != nil {
		return errors.Wrap(err, "updating payment status")
	}
	return ctx.JSON(http.StatusOK, enr)
}
