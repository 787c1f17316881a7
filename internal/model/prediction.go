package model

import "time"

// PredictionStatus tracks a prediction awaiting user review.
type PredictionStatus string

// Prediction status constants.
const (
	PredictionPending   PredictionStatus = "PENDING"
	PredictionConfirmed PredictionStatus = "CONFIRMED"
	PredictionRejected  PredictionStatus = "REJECTED"
)

// TransactionPrediction links a transaction to the pattern that produced it.
// PatternID is nil when the prediction was manually overridden. At most one
// prediction exists per transaction.
type TransactionPrediction struct {
	CreatedAt            time.Time
	PatternID            *string
	ID                   string
	UserID               string
	TransactionID        string
	Status               PredictionStatus
	Confidence           float64
	IsPersonalPrediction bool
}
