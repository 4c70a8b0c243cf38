package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/medicare-wellness/clinic-scheduler/internal/scheduling"
	"github.com/medicare-wellness/clinic-scheduler/pkg/logging"
)

// BookingIntent is the structured request the assistant extracts when a
// visitor asks to book. Actual availability checks and booking go through
// the scheduling services, never through the model.
type BookingIntent struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"` // YYYY-MM-DD
	Time     string `json:"time"` // HH:MM, clinic local
}

// Valid reports whether the intent carries enough to act on.
func (i *BookingIntent) Valid() bool {
	return i != nil && i.DoctorID != "" && i.Date != "" && i.Time != ""
}

// StartsAt resolves the intent to a concrete time in the clinic's location.
func (i *BookingIntent) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", i.Date+" "+i.Time, loc)
}

// ServiceConfig carries the assistant's prompt context.
type ServiceConfig struct {
	ClinicName  string
	ClinicPhone string
	Temperature float32
	MaxTokens   int32
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.ClinicName == "" {
		c.ClinicName = "MediCare Allergy & Wellness Center"
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.4
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}
	return c
}

// DoctorLister provides the roster for the system prompt.
type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]scheduling.Doctor, error)
}

// Reply is the assistant's answer to one visitor turn.
type Reply struct {
	Text   string
	Intent *BookingIntent
	Usage  TokenUsage
}

// Service runs the scheduling chat assistant.
type Service struct {
	llm     LLMClient
	doctors DoctorLister
	cfg     ServiceConfig
	logger  *logging.Logger
	now     func() time.Time
}

// NewService creates a chat assistant.
func NewService(llm LLMClient, doctors DoctorLister, cfg ServiceConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		llm:     llm,
		doctors: doctors,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
	}
}

// Respond sends the visitor's message plus history to the model and returns
// the reply with any extracted booking intent.
func (s *Service) Respond(ctx context.Context, history []ChatMessage, userMsg string) (*Reply, error) {
	prompt, err := s.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: userMsg})

	resp, err := s.llm.Complete(ctx, LLMRequest{
		System:      []string{prompt},
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: respond: %w", err)
	}

	text, intent := extractIntent(resp.Text)
	if intent != nil {
		s.logger.Info("booking intent extracted",
			"doctor_id", intent.DoctorID, "date", intent.Date, "time", intent.Time)
	}
	return &Reply{Text: text, Intent: intent, Usage: resp.Usage}, nil
}

func (s *Service) systemPrompt(ctx context.Context) (string, error) {
	var roster strings.Builder
	if s.doctors != nil {
		doctors, err := s.doctors.ListDoctors(ctx)
		if err != nil {
			return "", fmt.Errorf("assistant: load roster: %w", err)
		}
		for _, d := range doctors {
			fmt.Fprintf(&roster, "- %s: %s (%s)\n", d.ID, d.Name, d.Specialty)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the scheduling assistant for %s.", s.cfg.ClinicName)
	if s.cfg.ClinicPhone != "" {
		fmt.Fprintf(&b, " Patients can also call %s.", s.cfg.ClinicPhone)
	}
	b.WriteString(" Help visitors find appointment availability and book visits. Be brief and warm.\n\n")
	if roster.Len() > 0 {
		b.WriteString("Doctors:\n")
		b.WriteString(roster.String())
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Today's date is %s.\n\n", s.now().Format("Monday, January 2, 2006"))
	b.WriteString("When, and only when, the visitor has settled on a specific doctor, date, and time, " +
		"end your reply with a single line of the form:\n" +
		"INTENT: {\"doctor_id\": \"...\", \"date\": \"YYYY-MM-DD\", \"time\": \"HH:MM\"}\n" +
		"Never invent availability; the system checks the calendar before anything is booked.")
	return b.String(), nil
}

const intentMarker = "INTENT:"

// extractIntent strips a trailing intent line from the model reply and
// parses it. Malformed intent JSON is dropped rather than surfaced to the
// visitor.
func extractIntent(text string) (string, *BookingIntent) {
	idx := strings.LastIndex(text, intentMarker)
	if idx < 0 {
		return text, nil
	}
	payload := strings.TrimSpace(text[idx+len(intentMarker):])
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	payload = strings.TrimSpace(payload)

	var intent BookingIntent
	if err := json.Unmarshal([]byte(payload), &intent); err != nil || !intent.Valid() {
		return strings.TrimSpace(text[:idx]), nil
	}
	return strings.TrimSpace(text[:idx]), &intent
}
