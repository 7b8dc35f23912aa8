package transport

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avvvet/toywonder-assistant/internal/catalog"
	"github.com/avvvet/toywonder-assistant/internal/handlers"
	"github.com/avvvet/toywonder-assistant/internal/logger"
	"github.com/avvvet/toywonder-assistant/internal/models"
)

type HTTPServer struct {
	app     *fiber.App
	handler *handlers.AssistantHandler
	catalog catalog.Repository
	logger  logger.Logger
}

func NewHTTPServer(serviceName string, handler *handlers.AssistantHandler, products catalog.Repository, log logger.Logger) *HTTPServer {
	s := &HTTPServer{
		app: fiber.New(fiber.Config{
			AppName:               serviceName,
			DisableStartupMessage: true,
		}),
		handler: handler,
		catalog: products,
		logger:  log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	s.RegisterRoutes(s.app)
	return s
}

func (s *HTTPServer) App() *fiber.App {
	return s.app
}

func (s *HTTPServer) RegisterRoutes(app *fiber.App) {
	app.Get("/healthz", s.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/products", s.getProducts)
	api.Get("/products/:id", s.getProduct)

	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.resetSession)
	api.Post("/sessions/:id/messages", s.postMessage)
	api.Post("/sessions/:id/feedback", s.postFeedback)
	api.Post("/sessions/:id/messages/:index/rating", s.postRating)
	api.Post("/sessions/:id/views", s.postView)
	api.Get("/sessions/:id/recommendations", s.getRecommendations)
}

func (s *HTTPServer) Listen(addr string) error {
	s.logger.Info("HTTP server listening", map[string]interface{}{"addr": addr})
	return s.app.Listen(addr)
}

func (s *HTTPServer) Shutdown() error {
	return s.app.Shutdown()
}

func (s *HTTPServer) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *HTTPServer) getProducts(c *fiber.Ctx) error {
	return c.JSON(s.catalog.List())
}

func (s *HTTPServer) getProduct(c *fiber.Ctx) error {
	p, err := s.catalog.GetByID(c.Params("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse(models.ErrorNotFound, "Product not found"))
	}
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *HTTPServer) createSession(c *fiber.Ctx) error {
	req := &models.AssistantRequest{SessionID: uuid.NewString(), Locale: c.Query("locale")}
	return s.reply(c, s.handler.Snapshot(c.UserContext(), req), fiber.StatusCreated)
}

func (s *HTTPServer) getSession(c *fiber.Ctx) error {
	req := &models.AssistantRequest{SessionID: c.Params("id"), Locale: c.Query("locale")}
	return s.reply(c, s.handler.Snapshot(c.UserContext(), req), fiber.StatusOK)
}

func (s *HTTPServer) resetSession(c *fiber.Ctx) error {
	req := &models.AssistantRequest{SessionID: c.Params("id")}
	return s.reply(c, s.handler.Reset(c.UserContext(), req), fiber.StatusOK)
}

type messageBody struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

func (s *HTTPServer) postMessage(c *fiber.Ctx) error {
	var body messageBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	req := &models.AssistantRequest{SessionID: c.Params("id"), Text: body.Text, Locale: body.Locale}
	return s.reply(c, s.handler.Submit(c.UserContext(), req), fiber.StatusOK)
}

type feedbackBody struct {
	ProductID string         `json:"productId"`
	Verdict   models.Verdict `json:"verdict"`
}

func (s *HTTPServer) postFeedback(c *fiber.Ctx) error {
	var body feedbackBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	req := &models.AssistantRequest{SessionID: c.Params("id"), ProductID: body.ProductID, Verdict: body.Verdict}
	return s.reply(c, s.handler.Feedback(c.UserContext(), req), fiber.StatusOK)
}

type ratingBody struct {
	Rating models.Rating `json:"rating"`
}

func (s *HTTPServer) postRating(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return badRequest(c, "message index must be a number")
	}
	var body ratingBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	req := &models.AssistantRequest{SessionID: c.Params("id"), MessageIndex: index, Rating: body.Rating}
	return s.reply(c, s.handler.Rate(c.UserContext(), req), fiber.StatusOK)
}

type viewBody struct {
	ProductName string `json:"productName"`
}

func (s *HTTPServer) postView(c *fiber.Ctx) error {
	var body viewBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	req := &models.AssistantRequest{SessionID: c.Params("id"), ProductName: body.ProductName}
	return s.reply(c, s.handler.RecordView(c.UserContext(), req), fiber.StatusOK)
}

func (s *HTTPServer) getRecommendations(c *fiber.Ctx) error {
	req := &models.AssistantRequest{SessionID: c.Params("id")}
	return s.reply(c, s.handler.Recommendations(c.UserContext(), req), fiber.StatusOK)
}

// reply writes resp with a status code derived from its error code
func (s *HTTPServer) reply(c *fiber.Ctx, resp *models.AssistantResponse, success int) error {
	status := success
	switch resp.Status {
	case models.StatusBusy:
		status = fiber.StatusConflict
	case models.StatusError:
		status = statusFor(resp.ErrorCode)
	}
	return c.Status(status).JSON(resp)
}

func statusFor(code *string) int {
	if code == nil {
		return fiber.StatusInternalServerError
	}
	switch *code {
	case models.ErrorInvalidInput, models.ErrorParseError:
		return fiber.StatusBadRequest
	case models.ErrorNotFound:
		return fiber.StatusNotFound
	case models.ErrorBusy:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(errorResponse(models.ErrorParseError, msg))
}
