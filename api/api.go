package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

func NewAPIServer(listenAddress string) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "student-records",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			BodyLimit:    1 * 1024 * 1024,
			ErrorHandler: ErrorHandler,
		}),
		listenAddress: listenAddress,
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Infow("starting API server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests up to timeout
func (s *APIServer) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

// ErrorHandler renders errors that escape the handlers in the standard envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return response.NotFound(c, "Route not found")
		case fiber.StatusMethodNotAllowed:
			return response.Error(c, fiberErr.Code, "Method not allowed", "METHOD_NOT_ALLOWED")
		case fiber.StatusRequestEntityTooLarge:
			return response.Error(c, fiberErr.Code, "Request body too large", "PAYLOAD_TOO_LARGE")
		}
		if fiberErr.Code < fiber.StatusInternalServerError {
			return response.Error(c, fiberErr.Code, fiberErr.Message, "REQUEST_ERROR")
		}
	}

	log.Errorw("unhandled request error", "path", c.Path(), "error", err)
	return response.InternalServerError(c, "")
}
