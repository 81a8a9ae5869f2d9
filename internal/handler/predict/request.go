package predict

import (
	"fmt"
	"time"

	"frauddetect/internal/data"
	"frauddetect/internal/geo"

	"github.com/AdguardTeam/golibs/errors"
)

const (
	// ErrEmptyRequest is returned for a request with neither features nor a
	// transaction.
	ErrEmptyRequest errors.Error = "request has neither features nor a transaction"

	// ErrFeatureCount is returned when a feature vector has the wrong length.
	ErrFeatureCount errors.Error = "wrong number of features"

	// errBackend wraps failures of the country lookup backend.
	errBackend errors.Error = "country lookup failed"
)

// Request is the body of the predict and explain endpoints.  Exactly one of
// the fields should be set; Transaction takes precedence.
type Request struct {
	// Features is a label-encoded but not standardized feature vector, in
	// the order of [features.Pipeline.Names].
	Features []float64 `json:"features"`

	Transaction *Transaction `json:"transaction"`
}

// Transaction is a raw transaction as sent by clients.  Times use
// [data.TimeLayout] or RFC 3339.
type Transaction struct {
	UserID        string     `json:"user_id"`
	SignupTime    string     `json:"signup_time"`
	PurchaseTime  string     `json:"purchase_time"`
	DeviceID      string     `json:"device_id"`
	Source        string     `json:"source"`
	Browser       string     `json:"browser"`
	Sex           string     `json:"sex"`
	IPAddress     geo.IPText `json:"ip_address"`
	Country       string     `json:"country"`
	PurchaseValue float64    `json:"purchase_value"`
	Age           int        `json:"age"`
}

// toData converts t into a dataset transaction.
func (t *Transaction) toData() (tx data.Transaction, err error) {
	signup, err := parseTime(t.SignupTime)
	if err != nil {
		return tx, fmt.Errorf("signup_time: %w", err)
	}

	purchase, err := parseTime(t.PurchaseTime)
	if err != nil {
		return tx, fmt.Errorf("purchase_time: %w", err)
	}

	return data.Transaction{
		SignupTime:    signup,
		PurchaseTime:  purchase,
		UserID:        t.UserID,
		DeviceID:      t.DeviceID,
		Source:        t.Source,
		Browser:       t.Browser,
		Sex:           t.Sex,
		IPAddress:     string(t.IPAddress),
		Country:       t.Country,
		PurchaseValue: t.PurchaseValue,
		Age:           t.Age,
	}, nil
}

func parseTime(s string) (t time.Time, err error) {
	t, err = time.Parse(data.TimeLayout, s)
	if err == nil {
		return t, nil
	}

	return time.Parse(time.RFC3339, s)
}

// Response is the prediction of one transaction.
type Response struct {
	// Risk is one of the [RiskHigh], [RiskMedium], [RiskLow] and
	// [RiskVeryLow] bands of Score.
	Risk string `json:"risk"`

	Model string `json:"model"`

	// Country is the country used for the prediction, if a transaction was
	// sent.
	Country string `json:"country,omitempty"`

	Score      float64 `json:"score"`
	Prediction int     `json:"prediction"`
}

// Risk bands.
const (
	RiskHigh    = "high"
	RiskMedium  = "medium"
	RiskLow     = "low"
	RiskVeryLow = "very_low"
)

// RiskBand returns the risk band of the fraud probability p.
func RiskBand(p float64) (band string) {
	switch {
	case p >= 0.95:
		return RiskHigh
	case p >= 0.7:
		return RiskMedium
	case p >= 0.5:
		return RiskLow
	default:
		return RiskVeryLow
	}
}

// ExplainResponse is the attribution of a prediction to the features.
type ExplainResponse struct {
	// ShapValues contains one row with the absolute attribution of every
	// feature.
	ShapValues [][]float64 `json:"shap_values"`

	// Values are the signed attributions.
	Values []float64 `json:"values"`

	Features []string `json:"features"`

	BaseValue  float64 `json:"base_value"`
	Prediction float64 `json:"prediction"`
}
