package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/moodlegw/core/user"
)

type userApi struct {
	svc *user.Service
}

func registerUserAPI(g *echo.Group, svc *user.Service) {
	api := userApi{svc: svc}

	g.POST("/register", api.register)
	g.POST("/login", api.login)
	g.POST("/login-with-token", api.loginWithToken)
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	res, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusOK, res)
}

// login issues an InsecureSessionToken: the password is NOT checked.
func (api *userApi) login(ctx echo.Context) error {
	var data user.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	sess, err := api.svc.Login(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *userApi) loginWithToken(ctx echo.Context) error {
	var data user.TokenCredentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TokenCredentials")
	}

	sess, err := api.svc.LoginWithToken(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "logging in with token")
	}
	return ctx.JSON(http.StatusOK, sess)
}
