package api

import (
	"github.com/fako1024/btweight/pkg/scale"
	"github.com/gofiber/fiber/v2"
)

// API denotes a REST API for a weight acquisition session
type API struct {
	session scale.Session
	router  *fiber.App
}

// statusResponse denotes the JSON representation of a session status
type statusResponse struct {
	State     string `json:"state"`
	Countdown int    `json:"countdown"`
	Weight    string `json:"weight"`
	Stable    bool   `json:"stable"`
	Text      string `json:"text"`
}

// New instantiates a new API
func New(s scale.Session, endpoint string) *API {

	api := newAPI(s)

	// Start to listen in goroutine
	go func() {
		if err := api.router.Listen(endpoint); err != nil {
			panic(err)
		}
	}()

	return api
}

func newAPI(s scale.Session) *API {

	api := API{
		session: s,
		router:  fiber.New(),
	}

	// Setup routes
	api.router.Post("/start", api.handleStart())
	api.router.Post("/cancel", api.handleCancel())
	api.router.Get("/status", api.handleStatus())

	return &api
}

func (api *API) handleStart() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if err := api.session.Start(); err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		return c.SendStatus(fiber.StatusAccepted)
	}
}

func (api *API) handleCancel() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		api.session.Cancel()

		return c.SendStatus(fiber.StatusNoContent)
	}
}

func (api *API) handleStatus() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		status := api.session.Status()

		resp := statusResponse{
			State:     status.State.String(),
			Countdown: status.Countdown,
			Weight:    status.WeightDisplay(),
			Text:      status.Text(),
		}
		if status.LastReading != nil {
			resp.Stable = status.LastReading.Stable
		}

		return c.JSON(resp)
	}
}
