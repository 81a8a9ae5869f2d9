// Package predict contains the scoring and explanation endpoints of the API.
package predict

import (
	"fmt"
	"math"
	"net/http"

	"frauddetect/internal/explain"
	"frauddetect/internal/geo"
	"frauddetect/internal/training"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Observer counts predictions.  [*metrics.Collector] implements it.
type Observer interface {
	ObservePrediction(model string, class int)
}

// emptyObserver is the [Observer] that does nothing.
type emptyObserver struct{}

// type check
var _ Observer = emptyObserver{}

// ObservePrediction implements the [Observer] interface for emptyObserver.
func (emptyObserver) ObservePrediction(_ string, _ int) {}

// Config is the configuration structure for a *Handler.
type Config struct {
	// Artifact is the model used for scoring.  It must not be nil.
	Artifact *training.Artifact

	// Lookup resolves the country of transactions sent without one.  If nil,
	// such transactions get the unknown country.
	Lookup geo.CountryLookup

	// Logger is used for scoring failures.  If nil, logs are discarded.
	Logger *zap.Logger

	// Metrics counts predictions.  If nil, predictions are not counted.
	Metrics Observer

	// ExplainSamples is the number of sampled permutations for explanations
	// of models with many features.
	ExplainSamples int
}

// Handler manages the prediction endpoints.
type Handler struct {
	artifact *training.Artifact
	lookup   geo.CountryLookup
	logger   *zap.Logger
	metrics  Observer
	samples  int
}

// NewHandler returns a new properly initialized *Handler.
func NewHandler(c *Config) (h *Handler) {
	h = &Handler{
		artifact: c.Artifact,
		lookup:   c.Lookup,
		logger:   c.Logger,
		metrics:  c.Metrics,
		samples:  c.ExplainSamples,
	}

	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	if h.metrics == nil {
		h.metrics = emptyObserver{}
	}

	return h
}

// Predict scores one transaction or feature vector.
// POST /predict
func (h *Handler) Predict(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})

		return
	}

	x, country, err := h.vector(&req)
	if err != nil {
		h.fail(c, err, -1)

		return
	}

	c.JSON(http.StatusOK, h.respond(h.artifact.Score(x), country))
}

// Batch scores an array of transactions.
// POST /batch
func (h *Handler) Batch(c *gin.Context) {
	var txs []Transaction
	if err := c.ShouldBindJSON(&txs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})

		return
	}

	X := make([][]float64, len(txs))
	countries := make([]string, len(txs))
	for i := range txs {
		var err error
		X[i], countries[i], err = h.vector(&Request{Transaction: &txs[i]})
		if err != nil {
			h.fail(c, err, i)

			return
		}
	}

	ps := h.artifact.Model.PredictProba(X)
	out := make([]Response, len(txs))
	for i, p := range ps {
		out[i] = h.respond(p, countries[i])
	}

	c.JSON(http.StatusOK, out)
}

// Explain returns the Shapley values of the prediction of one transaction
// or feature vector against the mean training row.
// POST /explain
func (h *Handler) Explain(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})

		return
	}

	x, _, err := h.vector(&req)
	if err != nil {
		h.fail(c, err, -1)

		return
	}

	e, err := explain.Shapley(h.artifact.Model, x, h.artifact.Baseline, explain.ShapleyOptions{
		Samples: h.samples,
	})
	if err != nil {
		h.logger.Error("explaining prediction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "explanation failed"})

		return
	}

	abs := make([]float64, len(e.Values))
	for i, v := range e.Values {
		abs[i] = math.Abs(v)
	}

	c.JSON(http.StatusOK, ExplainResponse{
		ShapValues: [][]float64{abs},
		Values:     e.Values,
		Features:   h.artifact.Pipeline.Names(),
		BaseValue:  e.Base,
		Prediction: e.Prediction,
	})
}

// respond builds the response for the probability p and counts it.
func (h *Handler) respond(p float64, country string) (resp Response) {
	class := h.artifact.Classify(p)
	name := h.artifact.Model.Name()
	h.metrics.ObservePrediction(name, class)

	return Response{
		Risk:       RiskBand(p),
		Model:      name,
		Country:    country,
		Score:      p,
		Prediction: class,
	}
}

// vector returns the standardized feature vector of req and the country it
// was scored with.
func (h *Handler) vector(req *Request) (x []float64, country string, err error) {
	p := h.artifact.Pipeline
	if t := req.Transaction; t != nil {
		tx, terr := t.toData()
		if terr != nil {
			return nil, "", terr
		}

		if tx.Country == "" && h.lookup != nil && tx.IPAddress != "" {
			tx.Country, err = h.country(tx.IPAddress)
			if err != nil {
				return nil, "", err
			}
		}

		row := p.Prepare(tx)
		x, err = p.Transform(&row)

		return x, row.Country, err
	}

	if req.Features == nil {
		return nil, "", ErrEmptyRequest
	}

	if want := len(p.Names()); len(req.Features) != want {
		return nil, "", fmt.Errorf("got %d, want %d: %w", len(req.Features), want, ErrFeatureCount)
	}

	x, err = p.Scaler.TransformRow(req.Features)

	return x, "", err
}

// country resolves the country of the address value.  Unknown addresses get
// an empty country.
func (h *Handler) country(value string) (country string, err error) {
	ip, err := geo.ParseIP(value)
	if err != nil {
		return "", &geo.ValidationError{Value: value, Err: err}
	}

	country, _, err = h.lookup.LookupCountry(ip)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBackend, err)
	}

	return country, nil
}

// fail writes the error response for err.  row is the position of the
// failing item in a batch, or -1.
func (h *Handler) fail(c *gin.Context, err error, row int) {
	if errors.Is(err, errBackend) {
		h.logger.Error("scoring transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errBackend.Error()})

		return
	}

	body := gin.H{"error": err.Error()}
	if row >= 0 {
		body["row"] = row
	}

	c.JSON(http.StatusBadRequest, body)
}
