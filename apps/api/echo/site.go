package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/moodlegw/core/site"
)

type siteApi struct {
	svc *site.Service
}

func registerSiteAPI(g *echo.Group, svc *site.Service) {
	api := siteApi{svc: svc}

	g.GET("/health", api.health)
	g.GET("/moodle-siteinfo", api.siteInfo)
}

// health only reports that the gateway is up; it does not call Moodle.
func (api *siteApi) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "Backend is running"})
}

func (api *siteApi) siteInfo(ctx echo.Context) error {
	info, err := api.svc.Info(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSONBlob(http.StatusOK, info)
}
