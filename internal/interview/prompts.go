package interview

import (
	"fmt"
	"strings"
	"time"
)

// Fixed lines spoken by the interviewer.
const (
	// RetryMessage is spoken when a candidate answer could not be transcribed.
	RetryMessage = "I couldn't hear that clearly. Could you please repeat your answer?"

	// ClosingPreamble precedes the spoken final feedback.
	ClosingPreamble = "Thank you for the interview. Here is your final feedback: "
)

const technicalIntro = "Hello! I'm your technical interviewer today."

const firstTechnicalQuestion = "Let's start with a simple question: Can you briefly introduce yourself and tell me about your programming background?"

// jsonInstruction closes both live system prompts.
const jsonInstruction = `Respond in JSON format:
{"evaluation": "brief feedback here", "next_question": "your next question"}`

// OpeningQuestion is the first line spoken in a session.
func OpeningQuestion(p Profile) string {
	if p.IsTechnical() {
		if len(p.Categories) == 0 {
			return technicalIntro + " " + firstTechnicalQuestion
		}
		return fmt.Sprintf("%s We'll be focusing on %s. %s", technicalIntro, upperList(p.Categories), firstTechnicalQuestion)
	}

	r, ok := roleIndex[p.Role]
	if !ok {
		r = roleIndex[RoleGeneral]
	}
	title := p.RoleTitle
	if title == "" {
		title = r.DefaultTitle
	}
	if r.opensWithCompany {
		return fmt.Sprintf(r.opening, title, companyOrDefault(p.Company))
	}
	return fmt.Sprintf(r.opening, title)
}

// Nudges returns the messages spoken, in rotation, when the candidate stays
// silent. The slice is never empty.
func Nudges(p Profile) []string {
	if p.IsTechnical() {
		return append([]string(nil), technicalNudges...)
	}
	if r, ok := roleIndex[p.Role]; ok && len(r.nudges) > 0 {
		return append([]string(nil), r.nudges...)
	}
	return append([]string(nil), roleIndex[RoleGeneral].nudges...)
}

// SystemPrompt is the system message for the per-turn question generator.
func SystemPrompt(p Profile) string {
	var sb strings.Builder

	if p.IsTechnical() {
		sb.WriteString("You are a professional technical interviewer conducting a coding/technical interview.\n")
		sb.WriteString("Focus on these technical areas:\n")
		names := p.Categories
		if len(names) == 0 {
			names = CategoryNames()
		}
		for _, n := range names {
			if c, ok := categoryIndex[n]; ok {
				fmt.Fprintf(&sb, "- %s\n", c.Description)
			}
		}
		sb.WriteString("\nBased on the conversation context and candidate's latest response, provide:\n")
		sb.WriteString("1. Brief evaluation of their answer (2-3 sentences max)\n")
		sb.WriteString("2. Next appropriate technical question from the focus areas (concise, clear)\n\n")
		sb.WriteString(jsonInstruction)
		return sb.String()
	}

	r, ok := roleIndex[p.Role]
	if !ok {
		r = roleIndex[RoleGeneral]
	}
	title := p.RoleTitle
	if title == "" {
		title = r.DefaultTitle
	}

	// ── Role and company ──────────────────────────────────────────────────
	fmt.Fprintf(&sb, "You are a professional interviewer conducting an interview for a %s position at %s.\n\n", title, companyOrDefault(p.Company))

	// ── Guidance ──────────────────────────────────────────────────────────
	sb.WriteString(r.guidance)
	if len(p.Skills) > 0 {
		fmt.Fprintf(&sb, "\n\nPay special attention to these skills: %s.", strings.Join(p.Skills, ", "))
	}
	if len(p.FocusAreas) > 0 {
		fmt.Fprintf(&sb, "\n\nFocus areas for this interview: %s.", strings.Join(p.FocusAreas, ", "))
	}

	// ── Response contract ─────────────────────────────────────────────────
	sb.WriteString("\n\nBased on the conversation context and candidate's latest response, provide:\n")
	sb.WriteString("1. Brief evaluation of their answer (2-3 sentences max)\n")
	fmt.Fprintf(&sb, "2. Next appropriate question for this %s role (concise, clear, and relevant to the position)\n\n", r.Name)
	sb.WriteString("Make questions progressively more specific and role-relevant as the interview continues.\n\n")
	sb.WriteString(jsonInstruction)
	return sb.String()
}

// FinalSystemPrompt is the system message for the end-of-session assessment.
func FinalSystemPrompt(p Profile) string {
	if p.IsTechnical() {
		return "You are a senior technical interviewer providing final comprehensive feedback."
	}
	return fmt.Sprintf("You are a senior interviewer providing final comprehensive feedback for a %s position.", p.SummaryTitle())
}

// FinalUserPrompt asks for the end-of-session assessment. history is the
// conversation log already rendered as JSON.
func FinalUserPrompt(p Profile, elapsed time.Duration, exchanges int, history string) string {
	var sb strings.Builder
	minutes := elapsed.Minutes()

	if p.IsTechnical() {
		focus := "general technical topics"
		if len(p.Categories) > 0 {
			focus = upperList(p.Categories)
		}
		sb.WriteString("Technical Interview Summary:\n")
		fmt.Fprintf(&sb, "Duration: %.1f minutes\n", minutes)
		fmt.Fprintf(&sb, "Total exchanges: %d\n", exchanges)
		fmt.Fprintf(&sb, "Technical Focus: %s\n\n", focus)
		fmt.Fprintf(&sb, "Conversation history:\n%s\n\n", history)
		sb.WriteString("Please provide comprehensive final feedback for this technical interview, including:\n")
		sb.WriteString("1. Overall technical performance assessment\n")
		sb.WriteString("2. Strengths demonstrated in the focus areas\n")
		sb.WriteString("3. Areas for technical improvement\n")
		sb.WriteString("4. Recommendation (hire/no hire/needs more evaluation)\n")
		sb.WriteString("Keep it concise but thorough.")
		return sb.String()
	}

	title := p.SummaryTitle()
	fmt.Fprintf(&sb, "%s Interview Summary:\n", title)
	fmt.Fprintf(&sb, "Company: %s\n", companyOrDefault(p.Company))
	fmt.Fprintf(&sb, "Role Type: %s\n", p.Role)
	fmt.Fprintf(&sb, "Duration: %.1f minutes\n", minutes)
	fmt.Fprintf(&sb, "Total exchanges: %d\n", exchanges)
	fmt.Fprintf(&sb, "Skills Focus: %s\n", joinOr(p.Skills, "general skills"))
	fmt.Fprintf(&sb, "Interview Focus: %s\n\n", joinOr(p.FocusAreas, "overall qualifications"))
	fmt.Fprintf(&sb, "Conversation history:\n%s\n\n", history)
	fmt.Fprintf(&sb, "Please provide comprehensive final feedback for this %s interview, including:\n", title)
	sb.WriteString("1. Overall performance assessment for the role\n")
	fmt.Fprintf(&sb, "2. Strengths demonstrated relevant to %s\n", p.Role)
	sb.WriteString("3. Areas for improvement in the context of this role\n")
	sb.WriteString("4. Recommendation (hire/no hire/needs more evaluation)\n")
	sb.WriteString("Keep it concise but thorough.")
	return sb.String()
}

func upperList(items []string) string {
	up := make([]string, len(items))
	for i, s := range items {
		up[i] = strings.ToUpper(s)
	}
	return strings.Join(up, ", ")
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func companyOrDefault(c string) string {
	if strings.TrimSpace(c) == "" {
		return DefaultCompany
	}
	return c
}
