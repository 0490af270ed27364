package server

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Bhardin04/brianhardin.info/internal/demo"
	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

const relatedProjectLimit = 3

func (s *Server) registerPageRoutes() {
	s.echo.GET("/", s.handleHome)
	s.echo.GET("/about", s.handleAbout)
	s.echo.GET("/projects", s.handleProjects)
	s.echo.GET("/projects/:id", s.handleProjectDetail)
}

func (s *Server) handleHome(c echo.Context) error {
	return s.renderTemplate(c, "home.html", map[string]any{
		"DemoTypes": demo.Types(),
		"Featured":  siteProjects.Featured(3),
	})
}

func (s *Server) handleAbout(c echo.Context) error {
	return s.renderTemplate(c, "about.html", map[string]any{
		"Title": "About",
	})
}

func (s *Server) handleProjects(c echo.Context) error {
	return s.renderTemplate(c, "projects.html", map[string]any{
		"Title":    "Projects",
		"Projects": siteProjects.All(),
	})
}

func (s *Server) handleProjectDetail(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return apperrors.NotFoundError("project not found").WithContext("project_id", c.Param("id"))
	}
	project, ok := siteProjects.ByID(id)
	if !ok {
		return apperrors.NotFoundError("project not found").WithContext("project_id", c.Param("id"))
	}
	return s.renderTemplate(c, "project_detail.html", map[string]any{
		"Title":   project.Title,
		"Project": project,
		"Related": siteProjects.Related(id, relatedProjectLimit),
	})
}
