package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
)

type projectApi struct {
	svc *project.Service
}

func registerProjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *project.Service) {
	api := projectApi{svc: svc}

	pg := g.Group("/projects", jwt)
	pg.GET("", api.query)
	pg.POST("", api.create, roleMiddleware(user.RoleStudent))

	// detail endpoints
	pg.GET("/:id", api.retrieve)
	pg.PATCH("/:id", api.update)
	pg.PATCH("/:id/status", api.updateStatus, roleMiddleware(user.RoleFaculty))
	pg.PATCH("/:id/progress", api.updateProgress, roleMiddleware(user.RoleStudent))
	pg.POST("/:id/evaluate", api.evaluate, roleMiddleware(user.RoleFaculty))
}

// Handlers

func (api *projectApi) query(ctx echo.Context) error {
	filter := project.QueryFilter{Status: ctx.QueryParam("status")}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	projects, err := api.svc.Query(ctx.Request().Context(), contextSession(ctx), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying projects")
	}
	if projects == nil {
		projects = []project.Project{}
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *projectApi) create(ctx echo.Context) error {
	var data project.NewProject
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	p, err := api.svc.Create(ctx.Request().Context(), contextSession(ctx), data)
	if err != nil {
		return errors.Wrap(err, "creating project")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *projectApi) retrieve(ctx echo.Context) error {
	p, err := api.svc.Get(ctx.Request().Context(), contextSession(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "retrieving project")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) update(ctx echo.Context) error {
	var data project.UpdateProject
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	p, err := api.svc.Update(ctx.Request().Context(), contextSession(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating project")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) updateStatus(ctx echo.Context) error {
	var data project.StatusUpdate
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	p, err := api.svc.UpdateStatus(ctx.Request().Context(), contextSession(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating project status")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) updateProgress(ctx echo.Context) error {
	var data project.ProgressChange
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	if data.Progress == nil {
		return errProgressRequired
	}
	p, err := api.svc.UpdateProgress(ctx.Request().Context(), contextSession(ctx), ctx.Param("id"), *data.Progress)
	if err != nil {
		return errors.Wrap(err, "updating project progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *projectApi) evaluate(ctx echo.Context) error {
	var data project.NewEvaluation
	if err := bindJSON(ctx, &data); err != nil {
		return err
	}
	p, err := api.svc.SubmitEvaluation(ctx.Request().Context(), contextSession(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting evaluation")
	}
	return ctx.JSON(http.StatusOK, p)
}
