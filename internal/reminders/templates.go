package reminders

import (
	"fmt"
	"strings"
	"time"
)

// TemplateConfig carries clinic branding and link bases for rendered
// reminder messages.
type TemplateConfig struct {
	ClinicName  string
	ClinicPhone string
	// FormBaseURL is the intake form page; the patient's form token is
	// appended as a query parameter.
	FormBaseURL string
	Location    *time.Location
}

func (c TemplateConfig) withDefaults() TemplateConfig {
	if c.ClinicName == "" {
		c.ClinicName = "MediCare Allergy & Wellness Center"
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// Message is a rendered reminder ready for a sender.
type Message struct {
	Subject string
	HTML    string
	SMS     string
}

// Renderer turns a reminder plus its dispatch context into channel bodies.
type Renderer struct {
	cfg TemplateConfig
}

// NewRenderer creates a message renderer.
func NewRenderer(cfg TemplateConfig) *Renderer {
	return &Renderer{cfg: cfg.withDefaults()}
}

// Render produces the message for a reminder tier. Tiers flagged with
// action questions ask about intake forms and confirmation; the final tier
// adds the SMS body.
func (r *Renderer) Render(rem Reminder, info DispatchInfo) Message {
	when := info.StartsAt.In(r.cfg.Location)
	dateLine := when.Format("Monday, January 2, 2006")
	timeLine := when.Format("3:04 PM")

	var subject string
	switch rem.Tier {
	case TierThreeDay:
		subject = fmt.Sprintf("Upcoming appointment at %s on %s", r.cfg.ClinicName, when.Format("Jan 2"))
	case TierOneDay:
		subject = fmt.Sprintf("Your appointment is tomorrow - %s", r.cfg.ClinicName)
	case TierTwoHour:
		subject = fmt.Sprintf("Appointment today at %s - %s", timeLine, r.cfg.ClinicName)
	default:
		subject = fmt.Sprintf("Appointment reminder - %s", r.cfg.ClinicName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p>Hi %s,</p>", info.PatientFirstName)
	fmt.Fprintf(&b, "<p>This is a reminder of your appointment with %s (%s) on <strong>%s</strong> at <strong>%s</strong>.</p>",
		info.DoctorName, info.Specialty, dateLine, timeLine)

	if rem.ActionQuestions {
		b.WriteString("<p>Before your visit, please take a moment to answer:</p><ul>")
		if info.FormsCompleted {
			b.WriteString("<li>Your intake forms are complete - thank you!</li>")
		} else if link := r.formLink(info.FormToken); link != "" {
			fmt.Fprintf(&b, `<li>Have you completed your intake forms? <a href="%s">Complete them here</a>.</li>`, link)
		} else {
			b.WriteString("<li>Have you completed your intake forms?</li>")
		}
		fmt.Fprintf(&b, "<li>Is your visit still confirmed? If you need to reschedule, call us at %s.</li>", r.cfg.ClinicPhone)
		b.WriteString("</ul>")
	} else {
		fmt.Fprintf(&b, "<p>If you need to reschedule, call us at %s.</p>", r.cfg.ClinicPhone)
	}
	fmt.Fprintf(&b, "<p>See you soon,<br>%s</p>", r.cfg.ClinicName)

	msg := Message{Subject: subject, HTML: b.String()}
	if rem.Tier == TierTwoHour {
		msg.SMS = fmt.Sprintf("%s: reminder for your appointment with %s today at %s. Questions? Call %s.",
			r.cfg.ClinicName, info.DoctorName, timeLine, r.cfg.ClinicPhone)
	}
	return msg
}

func (r *Renderer) formLink(token string) string {
	if r.cfg.FormBaseURL == "" || token == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(r.cfg.FormBaseURL, "?") {
		sep = "&"
	}
	return r.cfg.FormBaseURL + sep + "patient_id=" + token
}
