// Package api exposes the tip wizard over a local JSON API.
package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/crypto-power/tipwizard/libtipper"
	"github.com/crypto-power/tipwizard/listeners"
	"github.com/gofiber/fiber/v2"
)

const (
	stepListenerID = "api"

	// maxEventWait caps the long poll of /api/v1/events.
	maxEventWait = 30 * time.Second
)

// Server serves the wizard of one TipManager.
type Server struct {
	mgr   *libtipper.TipManager
	app   *fiber.App
	steps *listeners.StepNotificationListener

	mtx     sync.RWMutex
	logPath string
}

// New builds the API routes for mgr. The manager must already be started.
func New(mgr *libtipper.TipManager) (*Server, error) {
	s := &Server{
		mgr:   mgr,
		steps: listeners.NewStepNotificationListener(),
	}
	if err := mgr.AddStepListener(s.steps, stepListenerID); err != nil {
		return nil, err
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "Tip Wizard API",
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	s.app.Use("/api/v1/", func(c *fiber.Ctx) error {
		c.Accepts("application/json")
		start := time.Now()
		err := c.Next()
		c.Append("Server-timing", fmt.Sprintf("app;dur=%v", time.Since(start).String()))
		return err
	})

	s.app.Get("/healthcheck", s.healthCheck)

	v1 := s.app.Group("/api/v1")
	v1.Get("/chains", s.getChains)
	v1.Put("/chain", s.putChain)
	v1.Get("/account", s.getAccount)
	v1.Put("/account", s.putAccount)
	v1.Get("/account/qr", s.getAccountQR)
	v1.Get("/rate", s.getRate)
	v1.Put("/ratesource", s.putRateSource)
	v1.Put("/loglevel", s.putLogLevel)
	v1.Get("/logs", s.getLogs)

	v1.Get("/form", s.getForm)
	v1.Put("/form", s.putForm)
	v1.Delete("/form", s.deleteForm)
	v1.Get("/overview", s.getOverview)
	v1.Get("/preview", s.getPreview)

	v1.Get("/estimate", s.getEstimate)
	v1.Post("/fees", s.postFees)
	v1.Post("/review", s.postReview)
	v1.Post("/submit", s.postSubmit)
	v1.Post("/dismiss", s.postDismiss)
	v1.Get("/step", s.getStep)
	v1.Get("/events", s.getEvents)

	v1.Get("/referenda", s.getReferenda)
	v1.Get("/referenda/:chain/:index", s.getReferendum)

	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	log.Infof("API listening on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and detaches from the manager.
func (s *Server) Shutdown() error {
	s.mgr.RemoveStepListener(stepListenerID)
	s.steps.CloseStepNotifChan()
	return s.app.Shutdown()
}
