package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jansaakshi/backend/config"
	"github.com/jansaakshi/backend/model"
	"github.com/jansaakshi/backend/query"
)

const maxNarratedRecords = 10

const narratorSystemPrompt = "You are a helpful municipal governance assistant. Provide clear, factual " +
	"information about projects and meetings. Always cite specific numbers, dates, and responsible people."

const defaultInstructions = `Provide a clear, conversational answer that:
1. Directly answers their question
2. Highlights key information, especially delays, budgets and responsible people
3. Uses simple language citizens can understand
4. Mentions specific numbers and dates
5. If projects are delayed, clearly states who is responsible (corporator, contractor)

Keep it concise but informative (3-5 sentences).`

// LLMNarrator writes answers with a chat-completion model
type LLMNarrator struct {
	chat        *chatClient
	temperature float64
	maxTokens   int
}

var _ query.Narrator = (*LLMNarrator)(nil)

func NewLLMNarrator(cfg *config.LLMConfig) *LLMNarrator {
	return &LLMNarrator{
		chat:        newChatClient(cfg),
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Summarize answers the question from the given records. A caller-supplied
// prompt replaces the default instructions.
func (n *LLMNarrator) Summarize(ctx context.Context, req query.SummaryRequest) (string, error) {
	return n.chat.complete(ctx, narratorSystemPrompt, BuildSummaryPrompt(req), n.temperature, n.maxTokens)
}

// BuildSummaryPrompt renders the user message sent to the model
func BuildSummaryPrompt(req query.SummaryRequest) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant for JanSaakshi, a municipal accountability platform.\n\n")
	fmt.Fprintf(&b, "User asked: %q\n\n", req.Question)

	if len(req.Projects) > 0 {
		b.WriteString("Here are the relevant projects found:\n\n")
		for i, p := range limitProjects(req.Projects) {
			writeProject(&b, i+1, &p)
		}
	}
	if len(req.Meetings) > 0 {
		b.WriteString("Here are the relevant meetings found:\n\n")
		for i, m := range limitMeetings(req.Meetings) {
			writeMeeting(&b, i+1, &m)
		}
	}

	instructions := strings.TrimSpace(req.Prompt)
	if instructions == "" {
		instructions = defaultInstructions
	}
	b.WriteString(instructions)
	b.WriteString("\n")
	return b.String()
}

func writeProject(b *strings.Builder, n int, p *model.Project) {
	fmt.Fprintf(b, "Project %d: %s\n", n, p.ProjectName)
	fmt.Fprintf(b, "Ward: %s - %s\n", valueOr(p.WardNo, "unknown"), valueOr(p.WardName, "unknown"))
	fmt.Fprintf(b, "Budget: ₹%.2f lakhs\n", p.BudgetLakhs())
	fmt.Fprintf(b, "Type: %s\n", valueOr(p.ProjectType, "other"))
	fmt.Fprintf(b, "Status: %s\n", valueOr(p.Status, "unknown"))
	fmt.Fprintf(b, "Approved: %s\n", valueOr(p.ApprovalDate, "not recorded"))
	fmt.Fprintf(b, "Expected Completion: %s\n", valueOr(p.ExpectedCompletion, "not recorded"))
	fmt.Fprintf(b, "Corporator: %s\n", valueOr(p.CorporatorName, "not recorded"))
	fmt.Fprintf(b, "Contractor: %s\n", valueOr(p.ContractorName, "Not assigned"))
	fmt.Fprintf(b, "Delay: %d days\n\n", p.DelayDays)
}

func writeMeeting(b *strings.Builder, n int, m *model.Meeting) {
	fmt.Fprintf(b, "Meeting %d: %s on %s\n", n, m.ID, valueOr(m.MeetDate, "unknown date"))
	fmt.Fprintf(b, "Ward: %s - %s\n", valueOr(m.WardNo, "unknown"), valueOr(m.WardName, "unknown"))
	fmt.Fprintf(b, "Type: %s\n", valueOr(m.MeetType, "not recorded"))
	fmt.Fprintf(b, "Venue: %s\n", valueOr(m.Venue, "not recorded"))
	fmt.Fprintf(b, "Objective: %s\n", valueOr(m.Objective, "not recorded"))
	if m.ProjectName != "" {
		fmt.Fprintf(b, "Project discussed: %s (budget ₹%.2f lakhs, contractor %s)\n",
			m.ProjectName, m.Budget/100000, valueOr(m.ContractorName, "not assigned"))
	}
	if len(m.Attendees) > 0 {
		fmt.Fprintf(b, "Attendees: %s\n", strings.Join(m.Attendees, ", "))
	}
	b.WriteString("\n")
}

func limitProjects(p []model.Project) []model.Project {
	if len(p) > maxNarratedRecords {
		return p[:maxNarratedRecords]
	}
	return p
}

func limitMeetings(m []model.Meeting) []model.Meeting {
	if len(m) > maxNarratedRecords {
		return m[:maxNarratedRecords]
	}
	return m
}

func valueOr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
