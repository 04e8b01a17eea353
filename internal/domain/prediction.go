package domain

import "time"

const (
	ResultTumor   = "Tumor"
	ResultNoTumor = "No Tumor"
)

// Prediction is a stored classification. AccountID is empty for anonymous
// uploads, which keeps them out of the per-account index.
type Prediction struct {
	PredictionID string    `json:"id" dynamodbav:"prediction_id"`
	AccountID    string    `json:"-" dynamodbav:"account_id,omitempty"`
	ImageName    string    `json:"imageName" dynamodbav:"image_name"`
	Result       string    `json:"result" dynamodbav:"result"`
	Confidence   float64   `json:"-" dynamodbav:"confidence"`
	IsAnonymous  bool      `json:"-" dynamodbav:"is_anonymous"`
	CreatedAt    time.Time `json:"timestamp" dynamodbav:"created_at,unixtime"`
}

// Classification is what the model produced for a single image.
type Classification struct {
	Result     string
	Confidence float64 // percent
}

// PredictionTally counts predictions by result.
type PredictionTally struct {
	Total   int
	Tumor   int
	NoTumor int
}

type UserStatistics struct {
	TotalPredictions   int         `json:"totalPredictions"`
	TumorPredictions   int         `json:"tumorPredictions"`
	NoTumorPredictions int         `json:"noTumorPredictions"`
	TumorPercentage    float64     `json:"tumorPercentage"`
	NoTumorPercentage  float64     `json:"noTumorPercentage"`
	MostRecent         *Prediction `json:"mostRecent"`
}

type PublicStatistics struct {
	TotalUsers         int `json:"totalUsers"`
	TotalVisitors      int `json:"totalVisitors"`
	TotalPredictions   int `json:"totalPredictions"`
	TumorPredictions   int `json:"tumorPredictions"`
	NoTumorPredictions int `json:"noTumorPredictions"`
}
