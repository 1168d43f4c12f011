package server

import "github.com/gofiber/fiber/v2"

// Envelope is the JSON shape every endpoint answers with.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Token   string `json:"token,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func respondData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Data: data})
}

func respondList(c *fiber.Ctx, data any, count int) error {
	return c.Status(fiber.StatusOK).JSON(Envelope{Success: true, Data: data, Count: &count})
}
