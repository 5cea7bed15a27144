package agent

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/gjson"

	"Vista"
	authentication "Vista/agent/Auth"
	"Vista/agent/repository"
	"Vista/builder"
	"Vista/convert"
	"Vista/dashboard"
	"Vista/events"
	"Vista/plugins/parsers"
	"Vista/token"
	"Vista/tracker"
)

func (s *Server) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(200, "OK")
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) Login(ctx echo.Context) error {
	creds := &credentials{}
	if err := ctx.Bind(creds); err != nil {
		return ctx.JSON(400, "invalid request")
	}
	if !s.cfg.Auth.Enabled {
		return ctx.JSON(404, "authentication disabled")
	}
	if creds.Username != s.cfg.Auth.Username || creds.Password != s.cfg.Auth.Password {
		return ctx.JSON(401, "unauthorized")
	}
	tokenString, err := authentication.GenerateJWT(creds.Username)
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	return ctx.JSON(200, echo.Map{"token": tokenString})
}

// parserFor picks the parser for an explicitly named dialect, or sniffs
// one: valid JSON is treated as studio, everything else as markup.
func parserFor(format string, raw []byte) (Vista.DashboardParser, error) {
	if format == "" {
		if gjson.ValidBytes(raw) {
			format = "studio"
		} else {
			format = "simplexml"
		}
	}
	creator, ok := parsers.Parsers[format]
	if !ok {
		return nil, errors.New("unknown source format " + format)
	}
	parser := creator()
	if initializer, ok := parser.(Vista.Initializer); ok {
		if err := initializer.Init(); err != nil {
			return nil, err
		}
	}
	return parser, nil
}

func (s *Server) ImportDashboard(ctx echo.Context) error {
	namespace := ctx.QueryParam("namespace")
	if namespace == "" {
		namespace = "search"
	}
	name := ctx.QueryParam("name")
	if name == "" {
		return ctx.JSON(400, "query parameter name is required")
	}

	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil || len(raw) == 0 {
		return ctx.JSON(400, "empty request body")
	}

	parser, err := parserFor(ctx.QueryParam("format"), raw)
	if err != nil {
		return ctx.JSON(400, err.Error())
	}
	doc, err := parser.Parse(raw)
	if err != nil {
		return ctx.JSON(400, echo.Map{"error": err.Error()})
	}
	m, err := convert.ToStudio(doc)
	if err != nil {
		return ctx.JSON(422, echo.Map{"error": err.Error()})
	}

	// An unchanged source skips the rebuild entirely.
	hash := builder.Hash(raw)
	if existing, err := s.dashboards.ContentHash(ctx.Request().Context(), namespace, name); err == nil && existing == hash {
		return ctx.JSON(200, echo.Map{
			"namespace":   namespace,
			"name":        name,
			"contentHash": hash,
			"unchanged":   true,
		})
	}

	graph, err := s.builder.Build(ctx.Request().Context(), m, builder.Key{Namespace: namespace, Name: name}, raw)
	if err != nil {
		var buildErr *Vista.BuildError
		if errors.As(err, &buildErr) {
			return ctx.JSON(422, echo.Map{"error": buildErr.Error()})
		}
		return ctx.JSON(500, "internal server error")
	}
	s.setRuntime(graph.Key(), token.ExtractDefinitions(doc))

	return ctx.JSON(201, echo.Map{
		"namespace":      namespace,
		"name":           name,
		"contentHash":    graph.ContentHash,
		"dataSources":    len(graph.DataSources),
		"visualizations": len(graph.Visualizations),
		"inputs":         len(graph.Inputs),
	})
}

func (s *Server) ListDashboards(ctx echo.Context) error {
	dashboards, err := s.dashboards.GetDashboards(ctx.Request().Context())
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	summaries := make([]echo.Map, 0, len(dashboards))
	for _, d := range dashboards {
		summaries = append(summaries, echo.Map{
			"namespace":   d.Namespace,
			"name":        d.Name,
			"title":       d.Title,
			"contentHash": d.ContentHash,
			"updatedAt":   d.UpdatedAt.Time().UTC(),
		})
	}
	return ctx.JSON(200, summaries)
}

func (s *Server) GetDashboard(ctx echo.Context) error {
	graph, err := s.dashboards.Get(ctx.Request().Context(), ctx.Param("namespace"), ctx.Param("name"))
	if errors.Is(err, repository.ErrNotFound) {
		return ctx.JSON(404, "not found")
	}
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	return ctx.JSON(200, graph)
}

func (s *Server) DeleteDashboard(ctx echo.Context) error {
	namespace, name := ctx.Param("namespace"), ctx.Param("name")
	err := s.dashboards.Delete(ctx.Request().Context(), namespace, name)
	if errors.Is(err, repository.ErrNotFound) {
		return ctx.JSON(404, "not found")
	}
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	s.dropRuntime(namespace + "/" + name)
	return ctx.JSON(200, "OK")
}

type runRequest struct {
	TimeoutSeconds int `json:"timeoutSeconds"`
}

func (s *Server) RunDashboard(ctx echo.Context) error {
	namespace, name := ctx.Param("namespace"), ctx.Param("name")
	graph, err := s.dashboards.Get(ctx.Request().Context(), namespace, name)
	if errors.Is(err, repository.ErrNotFound) {
		return ctx.JSON(404, "not found")
	}
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}

	// The body is optional; defaults apply when it is absent.
	req := &runRequest{}
	_ = ctx.Bind(req)

	rt := s.runtime(graph.Key())
	started, err := s.orchestrator.RunDashboard(ctx.Request().Context(), graph, rt.catalog, rt.defs, tracker.RunOptions{
		Timeout: time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	return ctx.JSON(202, echo.Map{"executions": started})
}

type tokenRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Server) SetToken(ctx echo.Context) error {
	namespace, name := ctx.Param("namespace"), ctx.Param("name")
	req := &tokenRequest{}
	if err := ctx.Bind(req); err != nil || req.Name == "" {
		return ctx.JSON(400, "invalid request")
	}

	key := namespace + "/" + name
	rt := s.runtime(key)
	rt.catalog.SetValue(req.Name, req.Value)
	s.bus.Publish(events.Event{
		Type:        events.TokenValueChanged,
		DashboardID: key,
		Token:       req.Name,
		Value:       req.Value,
	})
	return ctx.JSON(200, "OK")
}

// studioEnvelope is the studio wire document emitted by Convert.
type studioEnvelope struct {
	Version string `json:"version"`
	*dashboard.StudioModel
}

func (s *Server) Convert(ctx echo.Context) error {
	raw, err := io.ReadAll(ctx.Request().Body)
	if err != nil || len(raw) == 0 {
		return ctx.JSON(400, "empty request body")
	}

	parser, err := parserFor(ctx.QueryParam("from"), raw)
	if err != nil {
		return ctx.JSON(400, err.Error())
	}
	doc, err := parser.Parse(raw)
	if err != nil {
		return ctx.JSON(400, echo.Map{"error": err.Error()})
	}

	switch target := ctx.QueryParam("to"); target {
	case "", "studio":
		m, err := convert.ToStudio(doc)
		if err != nil {
			return ctx.JSON(422, echo.Map{"error": err.Error()})
		}
		return ctx.JSON(200, &studioEnvelope{Version: "1.1", StudioModel: m})
	case "document":
		return ctx.JSON(200, doc)
	default:
		return ctx.JSON(400, "unknown target format "+target)
	}
}

type startExecutionRequest struct {
	DashboardID    string            `json:"dashboardId"`
	SourceID       string            `json:"sourceId"`
	Query          string            `json:"query"`
	Earliest       string            `json:"earliest"`
	Latest         string            `json:"latest"`
	Tokens         map[string]string `json:"tokens"`
	TimeoutSeconds int               `json:"timeoutSeconds"`
}

func (s *Server) StartExecution(ctx echo.Context) error {
	req := &startExecutionRequest{}
	if err := ctx.Bind(req); err != nil || req.Query == "" {
		return ctx.JSON(400, "invalid request")
	}

	query := req.Query
	if req.DashboardID != "" {
		rt := s.runtime(req.DashboardID)
		for name, value := range req.Tokens {
			rt.catalog.SetValue(name, value)
		}
		query, _ = rt.catalog.Resolve(query, rt.defs)
	}

	id, err := s.tracker.Start(ctx.Request().Context(), tracker.StartRequest{
		DashboardID:   req.DashboardID,
		SourceID:      req.SourceID,
		Query:         query,
		Earliest:      req.Earliest,
		Latest:        req.Latest,
		TokenSnapshot: req.Tokens,
		Timeout:       time.Duration(req.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	return ctx.JSON(202, echo.Map{"executionId": id})
}

func (s *Server) GetExecution(ctx echo.Context) error {
	id := ctx.Param("id")
	record, err := s.tracker.Get(id)
	if errors.Is(err, tracker.ErrExecutionNotFound) {
		// Fall back to the store for executions from earlier runs.
		record, err = s.executions.Get(ctx.Request().Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			return ctx.JSON(404, "not found")
		}
	}
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	return ctx.JSON(200, record)
}

func (s *Server) ListExecutions(ctx echo.Context) error {
	dashboardID := ctx.QueryParam("dashboard")
	sourceID := ctx.QueryParam("source")
	if dashboardID == "" || sourceID == "" {
		return ctx.JSON(400, "query parameters dashboard and source are required")
	}
	limit := 0
	if rawLimit := ctx.QueryParam("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			return ctx.JSON(400, "invalid limit")
		}
		limit = parsed
	}
	records, err := s.executions.ListBySource(ctx.Request().Context(), dashboardID, sourceID, limit)
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	return ctx.JSON(200, records)
}

func (s *Server) CancelExecution(ctx echo.Context) error {
	err := s.tracker.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if errors.Is(err, tracker.ErrExecutionNotFound) {
		return ctx.JSON(404, "not found")
	}
	if err != nil {
		return ctx.JSON(500, "internal server error")
	}
	return ctx.JSON(200, "OK")
}
