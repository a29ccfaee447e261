package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"receptionist-platform/internal/assistant"
	"receptionist-platform/internal/voice"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrBackDisabled    = errors.New("cannot go back from the test step")
)

const (
	defaultLanguage    = "en-US"
	defaultTemperature = 0.7

	greetingTemplate = "It's a great day at %s! How can I help you?"

	createFailedMessage = "Failed to create your AI assistant"
)

// systemPromptTemplate turns the wizard answers into the receptionist's
// instructions. Spacing and line breaks are part of the prompt contract.
const systemPromptTemplate = "You are an AI phone receptionist for %s. \n" +
	"The business phone number is %s. \n" +
	"This business specializes in %s, serving %s. \n" +
	"Please greet callers with the phrase: \"%s\" \n" +
	"Additional details: %s"

// Step field requirements, validated when the user advances.
type stepOneInput struct {
	CompanyName string `validate:"required"`
	PhoneNumber string `validate:"required"`
}

type stepTwoInput struct {
	BusinessDescription string `validate:"required"`
	TargetCustomers     string `validate:"required"`
}

type stepThreeInput struct {
	GreetingPhrase string `validate:"required"`
	VoiceID        string `validate:"required"`
}

var stepMessages = map[string]string{
	"CompanyName":         "Please enter your company name",
	"PhoneNumber":         "Please enter your phone number",
	"BusinessDescription": "Please describe what your business does",
	"TargetCustomers":     "Please describe your target customers",
	"GreetingPhrase":      "Please enter a greeting phrase",
	"VoiceID":             "Please select a voice for your assistant",
}

// AssistantCreator is the control-plane dependency; satisfied by voice.Client.
type AssistantCreator interface {
	CreateAssistant(ctx context.Context, req voice.AssistantRequest) (voice.CreatedAssistant, error)
}

// Updates carries a partial form edit. Nil fields are left untouched.
type Updates struct {
	CompanyName         *string `json:"company_name"`
	PhoneNumber         *string `json:"phone_number"`
	BusinessDescription *string `json:"business_description"`
	TargetCustomers     *string `json:"target_customers"`
	GreetingPhrase      *string `json:"greeting_phrase"`
	VoiceID             *string `json:"voice_id"`
	AdditionalDetails   *string `json:"additional_details"`
}

type Service struct {
	store      Store
	creator    AssistantCreator
	assistants *assistant.Service
	validate   *validator.Validate
	logger     *slog.Logger
	clock      func() time.Time
}

func NewService(store Store, creator AssistantCreator, assistants *assistant.Service, logger *slog.Logger) *Service {
	return &Service{
		store:      store,
		creator:    creator,
		assistants: assistants,
		validate:   validator.New(),
		logger:     logger,
		clock:      time.Now,
	}
}

// Start resets the user's wizard to a blank step 1.
func (s *Service) Start(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return State{}, ErrInvalidArgument
	}
	st := State{
		UserID:    userID,
		Step:      FirstStep,
		UpdatedAt: s.clock().UTC(),
	}
	if err := s.store.Put(ctx, st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *Service) Get(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return State{}, ErrInvalidArgument
	}
	return s.store.Get(ctx, userID)
}

// Update applies a partial form edit. While the greeting is empty it follows
// the company name with a suggested phrase; a greeting the user typed is
// never overwritten.
func (s *Service) Update(ctx context.Context, userID string, u Updates) (State, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return State{}, err
	}

	applyString(&st.Form.CompanyName, u.CompanyName)
	applyString(&st.Form.PhoneNumber, u.PhoneNumber)
	applyString(&st.Form.BusinessDescription, u.BusinessDescription)
	applyString(&st.Form.TargetCustomers, u.TargetCustomers)
	applyString(&st.Form.GreetingPhrase, u.GreetingPhrase)
	applyString(&st.Form.VoiceID, u.VoiceID)
	applyString(&st.Form.AdditionalDetails, u.AdditionalDetails)

	if st.Form.CompanyName != "" && st.Form.GreetingPhrase == "" {
		st.Form.GreetingPhrase = fmt.Sprintf(greetingTemplate, st.Form.CompanyName)
	}

	st.UpdatedAt = s.clock().UTC()
	if err := s.store.Put(ctx, st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Next validates the current step and advances. Advancing from step 4 builds
// the assistant: platform creation, then local persistence, then the test
// step. Any failure keeps the user on step 4 with the platform's message.
func (s *Service) Next(ctx context.Context, userID string) (State, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return State{}, err
	}

	if msg := s.validateStep(st); msg != "" {
		st.ErrorMessage = msg
		st.UpdatedAt = s.clock().UTC()
		if err := s.store.Put(ctx, st); err != nil {
			return State{}, err
		}
		return st, nil
	}
	st.ErrorMessage = ""

	if st.Step == buildStep {
		st = s.buildAssistant(ctx, st)
	} else if st.Step < TestStep {
		st.Step++
	}

	st.UpdatedAt = s.clock().UTC()
	if err := s.store.Put(ctx, st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Back returns to the previous step. The test step is a point of no return:
// the assistant already exists.
func (s *Service) Back(ctx context.Context, userID string) (State, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return State{}, err
	}
	if st.Step == TestStep {
		return st, ErrBackDisabled
	}
	if st.Step > FirstStep {
		st.Step--
	}
	st.ErrorMessage = ""
	st.UpdatedAt = s.clock().UTC()
	if err := s.store.Put(ctx, st); err != nil {
		return State{}, err
	}
	return st, nil
}

func (s *Service) validateStep(st State) string {
	var err error
	switch st.Step {
	case 1:
		err = s.validate.Struct(stepOneInput{
			CompanyName: st.Form.CompanyName,
			PhoneNumber: st.Form.PhoneNumber,
		})
	case 2:
		err = s.validate.Struct(stepTwoInput{
			BusinessDescription: st.Form.BusinessDescription,
			TargetCustomers:     st.Form.TargetCustomers,
		})
	case 3:
		err = s.validate.Struct(stepThreeInput{
			GreetingPhrase: st.Form.GreetingPhrase,
			VoiceID:        st.Form.VoiceID,
		})
	}
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := stepMessages[fieldErrs[0].StructField()]; ok {
			return msg
		}
	}
	return "Please fill in the required fields"
}

func (s *Service) buildAssistant(ctx context.Context, st State) State {
	prompt := SystemPrompt(st.Form)

	created, err := s.creator.CreateAssistant(ctx, voice.NewAssistantRequest(voice.AssistantParams{
		Name:         st.Form.CompanyName,
		FirstMessage: st.Form.GreetingPhrase,
		SystemPrompt: prompt,
		Language:     defaultLanguage,
		VoiceID:      st.Form.VoiceID,
		Temperature:  defaultTemperature,
	}))
	if err != nil {
		s.logger.Error("assistant creation failed", "user_id", st.UserID, "error", err)
		st.ErrorMessage = createErrorMessage(err)
		return st
	}

	if _, err := s.assistants.Create(ctx, st.UserID, assistant.NewAssistant{
		PlatformID:   created.ID,
		Name:         st.Form.CompanyName,
		FirstMessage: st.Form.GreetingPhrase,
		SystemPrompt: prompt,
		Language:     defaultLanguage,
		VoiceID:      st.Form.VoiceID,
		Temperature:  defaultTemperature,
	}); err != nil {
		s.logger.Error("assistant persistence failed", "user_id", st.UserID, "error", err)
		st.ErrorMessage = createFailedMessage
		return st
	}

	st.AssistantID = created.ID
	st.Step = TestStep
	return st
}

// SystemPrompt renders the receptionist instructions for the given answers.
func SystemPrompt(f Form) string {
	return fmt.Sprintf(systemPromptTemplate,
		f.CompanyName,
		f.PhoneNumber,
		f.BusinessDescription,
		f.TargetCustomers,
		f.GreetingPhrase,
		f.AdditionalDetails,
	)
}

func createErrorMessage(err error) string {
	var apiErr *voice.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return createFailedMessage
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
