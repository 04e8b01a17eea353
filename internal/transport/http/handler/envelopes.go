package handler

import (
	"encoding/json"
	"net/http"

	"github.com/neuroscan-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PendingEnvelope answers flows that continue with an OTP step.
type PendingEnvelope struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// AuthEnvelope wraps verify-otp and login responses.
type AuthEnvelope struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    *UserView `json:"user"`
}

// UnverifiedEnvelope tells the client which id to verify before logging in.
type UnverifiedEnvelope struct {
	Error  string `json:"error"`
	UserID string `json:"userId"`
}

type ResendEnvelope struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type PredictEnvelope struct {
	Result string `json:"result"`
}

type VisitorEnvelope struct {
	Success       bool `json:"success"`
	Duplicate     bool `json:"duplicate,omitempty"`
	TotalVisitors int  `json:"totalVisitors"`
}

type HealthEnvelope struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// UserView is the public shape of an account.
type UserView struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func toUserView(a *domain.Account) *UserView {
	if a == nil {
		return nil
	}
	return &UserView{ID: a.AccountID, FirstName: a.FirstName, LastName: a.LastName, Email: a.Email}
}

// PredictionView renders the timestamp as ISO-8601 without a zone suffix.
type PredictionView struct {
	ID        string `json:"id"`
	ImageName string `json:"imageName"`
	Result    string `json:"result"`
	Timestamp string `json:"timestamp"`
}

const timestampLayout = "2006-01-02T15:04:05.000000"

func toPredictionView(p *domain.Prediction) *PredictionView {
	if p == nil {
		return nil
	}
	return &PredictionView{
		ID:        p.PredictionID,
		ImageName: p.ImageName,
		Result:    p.Result,
		Timestamp: p.CreatedAt.UTC().Format(timestampLayout),
	}
}

type PredictionPageEnvelope struct {
	Predictions []*PredictionView `json:"predictions"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	Limit       int               `json:"limit"`
	TotalPages  int               `json:"totalPages"`
}

type StatisticsEnvelope struct {
	TotalPredictions   int             `json:"totalPredictions"`
	TumorPredictions   int             `json:"tumorPredictions"`
	NoTumorPredictions int             `json:"noTumorPredictions"`
	TumorPercentage    float64         `json:"tumorPercentage"`
	NoTumorPercentage  float64         `json:"noTumorPercentage"`
	MostRecent         *PredictionView `json:"mostRecent"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
