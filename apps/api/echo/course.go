package echoapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/moodlegw/core"
	"github.com/trezcool/moodlegw/core/course"
)

type courseApi struct {
	svc *course.Service
}

func registerCourseAPI(g *echo.Group, svc *course.Service) {
	api := courseApi{svc: svc}

	g.GET("/moodle-courses", api.list)
	g.POST("/enroll", api.enrol)

	cg := g.Group("/courses/:id")
	cg.GET("", api.retrieve)
	cg.GET("/contents", api.contents)
	cg.GET("/detail", api.detail)
}

// Handlers

func (api *courseApi) list(ctx echo.Context) error {
	courses, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	id, err := courseIDParam(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, c)
}

func (api *courseApi) contents(ctx echo.Context) error {
	id, err := courseIDParam(ctx)
	if err != nil {
		return err
	}
	sections, err := api.svc.Contents(ctx.Request().Context(), id, bearerToken(ctx))
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, sections)
}

func (api *courseApi) detail(ctx echo.Context) error {
	id, err := courseIDParam(ctx)
	if err != nil {
		return err
	}
	d, err := api.svc.Detail(ctx.Request().Context(), id, bearerToken(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *courseApi) enrol(ctx echo.Context) error {
	var data course.EnrolRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrolRequest")
	}

	enr, err := api.svc.Enrol(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling user")
	}
	return ctx.JSON(http.StatusOK, enr)
}

// Helpers

func courseIDParam(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(
			core.ErrInvalidFields,
			core.FieldError{Field: "id", Error: "this field must be a positive integer"},
		)
	}
	return id, nil
}

// bearerToken returns the token of an `Authorization: Bearer <token>` header, if any.
func bearerToken(ctx echo.Context) string {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}
