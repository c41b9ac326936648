package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type HealthHandler struct {
	RabbitMQ     *amqp091.Connection
	PaymentsFile string
	StartTime    time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(rabbitMQ *amqp091.Connection, paymentsFile string) *HealthHandler {
	return &HealthHandler{
		RabbitMQ:     rabbitMQ,
		PaymentsFile: paymentsFile,
		StartTime:    time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)

	// Check RabbitMQ
	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	// Check the intent store file is reachable. Absent is fine (created on
	// first save); an unreadable path is not.
	if _, err := os.Stat(h.PaymentsFile); err != nil && !os.IsNotExist(err) {
		deps["store"] = fmt.Sprintf("unhealthy: %v", err)
	} else {
		deps["store"] = "healthy"
	}

	// External collaborators only get a configured/not-configured check;
	// probing them on every health poll would burn API quota.
	if os.Getenv("AMOCRM_DOMAIN") != "" {
		deps["amocrm"] = "configured"
	} else {
		deps["amocrm"] = "not configured"
	}
	if os.Getenv("SBP_MERCHANT_LOGIN") != "" {
		deps["alfabank"] = "configured"
	} else {
		deps["alfabank"] = "not configured"
	}

	status := "healthy"
	for _, v := range deps {
		if v != "healthy" && v != "configured" && v != "not configured" {
			status = "degraded"
			break
		}
	}

	response := HealthResponse{
		Status:       status,
		Version:      "1.0.0",
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	code := http.StatusOK
	if status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}
