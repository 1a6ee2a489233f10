package tools

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// qualifiedThreshold is the score at which a lead is worth an agent's time.
const qualifiedThreshold = 70

// Lead is a scored buyer profile captured mid-call.
type Lead struct {
	LeadID    string    `bson:"_id" json:"lead_id"`
	Budget    float64   `bson:"budget" json:"budget"`
	Financing string    `bson:"financing" json:"financing"`
	Timeline  string    `bson:"timeline" json:"timeline"`
	Score     int       `bson:"score" json:"score"`
	Qualified bool      `bson:"qualified" json:"qualified"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

type LeadStore interface {
	Insert(ctx context.Context, l *Lead) error
}

// QualifyLeadHandler implements the qualify_lead tool.
type QualifyLeadHandler struct {
	leads LeadStore
	log   *zap.Logger
}

func NewQualifyLeadHandler(leads LeadStore, log *zap.Logger) *QualifyLeadHandler {
	return &QualifyLeadHandler{leads: leads, log: log}
}

func (h *QualifyLeadHandler) Name() string { return "qualify_lead" }

func (h *QualifyLeadHandler) Execute(ctx context.Context, args map[string]interface{}) (map[string]interface{}, *ToolError) {
	budget, ok := optFloat(args, "budget")
	if !ok {
		return nil, ValidationError("budget must be a number")
	}
	financing := strings.ToLower(stringArg(args, "financing"))
	timeline := strings.ToLower(stringArg(args, "timeline"))

	score := scoreLead(budget, financing, timeline)

	lead := &Lead{
		LeadID:    "LEAD-" + time.Now().Format("20060102150405"),
		Financing: financing,
		Timeline:  timeline,
		Score:     score,
		Qualified: score >= qualifiedThreshold,
		CreatedAt: time.Now().UTC(),
	}
	if budget != nil {
		lead.Budget = *budget
	}
	if err := h.leads.Insert(ctx, lead); err != nil {
		h.log.Error("Failed to persist lead", zap.Error(err))
		return nil, ExecutionError("could not save the lead")
	}

	return map[string]interface{}{
		"leadId":    lead.LeadID,
		"score":     score,
		"qualified": lead.Qualified,
	}, nil
}

// scoreLead applies the qualification rubric: everyone starts at 50,
// budget above 300k adds 20, financing readiness adds up to 30, and a
// timeline measured in months (rather than "someday") adds 15.
func scoreLead(budget *float64, financing, timeline string) int {
	score := 50
	if budget != nil && *budget > 300000 {
		score += 20
	}
	switch financing {
	case "preapproved":
		score += 30
	case "prequalified":
		score += 20
	}
	if strings.Contains(timeline, "month") {
		score += 15
	}
	return score
}
