package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/mradi/core/evaluation"
	"github.com/trezcool/mradi/core/project"
	"github.com/trezcool/mradi/core/user"
)

// directoryApi serves the public listings of faculty, students and the rubric.
type directoryApi struct {
	users    *user.Service
	projects *project.Service
}

func registerDirectoryAPI(g *echo.Group, users *user.Service, projects *project.Service) {
	api := directoryApi{users: users, projects: projects}

	g.GET("/faculty", api.queryFaculty)
	g.GET("/faculty/:id/students", api.queryFacultyStudents)
	g.GET("/faculty/:id/students/count", api.countFacultyStudents)
	g.GET("/users/faculty/:id", api.retrieveFaculty)

	g.GET("/students", api.queryStudents)
	g.GET("/students/:id", api.retrieveStudent)
	g.GET("/students/:id/projects", api.queryStudentProjects)

	g.GET("/rubric", api.rubric)
}

type (
	FacultyResponse struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		University string `json:"university"`
	}

	CountResponse struct {
		Count int `json:"count"`
	}
)

func newFacultyResponse(usr user.User) FacultyResponse {
	return FacultyResponse{ID: usr.ID, Name: usr.Name, Email: usr.Email, University: usr.University}
}

func profiles(users []user.User) []user.Profile {
	res := make([]user.Profile, 0, len(users))
	for _, usr := range users {
		res = append(res, usr.Profile())
	}
	return res
}

// Handlers

func (api *directoryApi) queryFaculty(ctx echo.Context) error {
	facs, err := api.users.QueryFaculty(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying faculty")
	}
	res := make([]FacultyResponse, 0, len(facs))
	for _, fac := range facs {
		res = append(res, newFacultyResponse(fac))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *directoryApi) retrieveFaculty(ctx echo.Context) error {
	fac, err := api.users.GetFaculty(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding faculty")
	}
	return ctx.JSON(http.StatusOK, newFacultyResponse(fac))
}

func (api *directoryApi) queryFacultyStudents(ctx echo.Context) error {
	fac, err := api.users.GetFaculty(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding faculty")
	}
	students, err := api.users.QueryStudents(ctx.Request().Context(), fac.ID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, profiles(students))
}

func (api *directoryApi) countFacultyStudents(ctx echo.Context) error {
	fac, err := api.users.GetFaculty(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding faculty")
	}
	count, err := api.users.CountStudents(ctx.Request().Context(), fac.ID)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: count})
}

func (api *directoryApi) queryStudents(ctx echo.Context) error {
	students, err := api.users.QueryStudents(ctx.Request().Context(), ctx.QueryParam("facultyId"))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, profiles(students))
}

func (api *directoryApi) retrieveStudent(ctx echo.Context) error {
	student, err := api.users.GetStudent(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, student.Profile())
}

func (api *directoryApi) queryStudentProjects(ctx echo.Context) error {
	projects, err := api.projects.QueryStudentProjects(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying student projects")
	}
	return ctx.JSON(http.StatusOK, projects)
}

func (api *directoryApi) rubric(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, evaluation.Rubric)
}
