package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core"
	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
)

type feedbackApi struct {
	svc *project.Service
}

func registerFeedbackAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *project.Service) {
	api := feedbackApi{svc: svc}
	faculty := roleMiddleware(user.RoleFaculty)

	g.GET("/projects/:id/feedback", api.query, jwt)
	g.POST("/projects/:id/feedback", api.create, jwt, faculty)

	// projectId given in the query / body
	g.GET("/feedback", api.queryByProjectID, jwt)
	g.POST("/feedback", api.createByProjectID, jwt, faculty)
}

type newFeedbackRequest struct {
	ProjectID string `json:"projectId"`
	project.NewFeedback
}

func (api *feedbackApi) list(ctx echo.Context, projectID string) error {
	events, err := api.svc.QueryFeedback(ctx.Request().Context(), contextSession(ctx), projectID)
	if err != nil {
		return errors.Wrap(err, "querying feedback")
	}
	return ctx.JSON(http.StatusOK, events)
}

func (api *feedbackApi) add(ctx echo.Context, projectID string, data project.NewFeedback) error {
	evt, err := api.svc.AddFeedback(ctx.Request().Context(), contextSession(ctx), projectID, data)
	if err != nil {
		return errors.Wrap(err, "adding feedback")
	}
	return ctx.JSON(http.StatusCreated, evt)
}

// Handlers

func (api *feedbackApi) query(ctx echo.Context) error {
	return api.list(ctx, ctx.Param("id"))
}

func (api *feedbackApi) queryByProjectID(ctx echo.Context) error {
	projectID := core.CleanString(ctx.QueryParam("projectId"))
	if projectID == "" {
		return errProjectIDRequired
	}
	return api.list(ctx, projectID)
}

func (api *feedbackApi) create(ctx echo.Context) error {
	var data project.NewFeedback
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	return api.add(ctx, ctx.Param("id"), data)
}

func (api *feedbackApi) createByProjectID(ctx echo.Context) error {
	var data newFeedbackRequest
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	projectID := core.CleanString(data.ProjectID)
	if projectID == "" {
		return errProjectIDRequired
	}
	return api.add(ctx, projectID, data.NewFeedback)
}
