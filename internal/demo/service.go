package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"receptionist-platform/internal/config"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Intake is the submitted demo form.
type Intake struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Company    string `json:"company" validate:"required"`
	Message    string `json:"message" validate:"required"`
	Newsletter bool   `json:"newsletter"`
	DemoDate   string `json:"demo_date" validate:"required,datetime=2006-01-02"`
}

// forwardPayload is the shape the automation webhook expects.
type forwardPayload struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Message    string `json:"message"`
	Email      string `json:"email"`
	Newsletter bool   `json:"newsletter"`
	DemoDate   string `json:"demoDate"`
	Timestamp  string `json:"timestamp"`
}

type Service struct {
	repo       Repository
	webhookURL string
	timeout    time.Duration
	http       *http.Client
	validate   *validator.Validate
	logger     *slog.Logger
	clock      func() time.Time
}

func NewService(repo Repository, cfg config.DemoConfig, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		webhookURL: cfg.WebhookURL,
		timeout:    cfg.ForwardTimeout,
		http:       &http.Client{},
		validate:   validator.New(),
		logger:     logger,
		clock:      time.Now,
	}
}

// Submit validates and stores the request, then forwards it to the booking
// automation. The stored row is the source of truth; a forward failure is
// logged and the submission still succeeds.
func (s *Service) Submit(ctx context.Context, in Intake) (Request, error) {
	if err := s.validate.Struct(in); err != nil {
		return Request{}, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}

	req := Request{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Email:      in.Email,
		Company:    in.Company,
		Message:    in.Message,
		Newsletter: in.Newsletter,
		DemoDate:   in.DemoDate,
		CreatedAt:  s.clock().UTC(),
	}
	if err := s.repo.Insert(ctx, req); err != nil {
		return Request{}, err
	}

	if err := s.forward(ctx, req); err != nil {
		s.logger.Error("demo request forward failed", "request_id", req.ID, "error", err)
	}
	return req, nil
}

func (s *Service) forward(ctx context.Context, req Request) error {
	if s.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(forwardPayload{
		Name:       req.Name,
		Company:    req.Company,
		Message:    req.Message,
		Email:      req.Email,
		Newsletter: req.Newsletter,
		DemoDate:   req.DemoDate,
		Timestamp:  req.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
