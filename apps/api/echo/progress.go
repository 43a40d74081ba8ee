package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
)

type progressApi struct {
	svc *project.Service
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *project.Service) {
	api := progressApi{svc: svc}

	g.GET("/projects/:id/progress-updates", api.query, jwt)
	g.POST("/projects/:id/progress-updates", api.create, jwt)

	// projectId given in the query / body
	g.GET("/progress-updates", api.queryByProjectID, jwt)
	g.POST("/progress-updates", api.createByProjectID, jwt)
}

type newProgressUpdateRequest struct {
	ProjectID string `json:"projectId"`
	project.NewProgressUpdate
}

func (api *progressApi) list(ctx echo.Context, projectID string) error {
	updates, err := api.svc.QueryProgressUpdates(ctx.Request().Context(), contextSession(ctx), projectID)
	if err != nil {
		return errors.Wrap(err, "querying progress updates")
	}
	if updates == nil {
		updates = []project.ProgressUpdate{}
	}
	return ctx.JSON(http.StatusOK, updates)
}

func (api *progressApi) add(ctx echo.Context, projectID string, data project.NewProgressUpdate) error {
	pu, err := api.svc.AddProgressUpdate(ctx.Request().Context(), contextSession(ctx), projectID, data)
	if err != nil {
		return errors.Wrap(err, "adding progress update")
	}
	return ctx.JSON(http.StatusCreated, pu)
}

// Handlers

func (api *progressApi) query(ctx echo.Context) error {
	return api.list(ctx, ctx.Param("id"))
}

func (api *progressApi) queryByProjectID(ctx echo.Context) error {
	projectID := core.CleanString(ctx.QueryParam("projectId"))
	if projectID == "" {
		return errProjectIDRequired
	}
	return api.list(ctx, projectID)
}

func (api *progressApi) create(ctx echo.Context) error {
	var data project.NewProgressUpdate
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	return api.add(ctx, ctx.Param("id"), data)
}

func (api *progressApi) createByProjectID(ctx echo.Context) error {
	var data newProgressUpdateRequest
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	projectID := core.CleanString(data.ProjectID)
	if projectID == "" {
		return errProjectIDRequired
	}
	return api.add(ctx, projectID, data.NewProgressUpdate)
}
