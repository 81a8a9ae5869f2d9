// Package country contains the IP geolocation endpoints.
package country

import (
	"context"
	"net/http"

	"frauddetect/internal/geo"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Mapper maps batches of address values to countries.  [*geo.Mapper]
// implements it.
type Mapper interface {
	MapIPsToCountries(ctx context.Context, values []string) (matches []geo.Match, err error)
}

// type check
var _ Mapper = (*geo.Mapper)(nil)

// BatchRequest is the body of the batch endpoint.
type BatchRequest struct {
	IPs []geo.IPText `json:"ips" binding:"required"`
}

// BatchResponse is the result of the batch endpoint.  Countries has one
// element per requested address, null for addresses outside of every range.
type BatchResponse struct {
	Countries []*string `json:"countries"`
	Matched   int       `json:"matched"`
}

// LookupResponse is the result of the single address endpoint.
type LookupResponse struct {
	IP      string `json:"ip"`
	Country string `json:"country,omitempty"`
	Found   bool   `json:"found"`
}

// Handler manages the geolocation endpoints.
type Handler struct {
	mapper Mapper
	lookup geo.CountryLookup
	logger *zap.Logger
}

// NewHandler returns a new handler.  logger may be nil.
func NewHandler(mapper Mapper, lookup geo.CountryLookup, logger *zap.Logger) (h *Handler) {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		mapper: mapper,
		lookup: lookup,
		logger: logger,
	}
}

// Countries maps a batch of addresses to countries.  The whole batch fails
// if any address is malformed.
// POST /api/v1/geo/countries
func (h *Handler) Countries(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})

		return
	}

	values := make([]string, len(req.IPs))
	for i, ip := range req.IPs {
		values[i] = string(ip)
	}

	matches, err := h.mapper.MapIPsToCountries(c.Request.Context(), values)
	if err != nil {
		h.fail(c, err)

		return
	}

	resp := BatchResponse{Countries: make([]*string, len(matches))}
	for i, m := range matches {
		if m.Found {
			resp.Countries[i] = &m.Country
			resp.Matched++
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Country returns the country of one address.
// GET /api/v1/geo/countries/:ip
func (h *Handler) Country(c *gin.Context) {
	value := c.Param("ip")

	ip, err := geo.ParseIP(value)
	if err != nil {
		h.fail(c, &geo.ValidationError{Value: value, Err: err})

		return
	}

	country, ok, err := h.lookup.LookupCountry(ip)
	if err != nil {
		h.fail(c, err)

		return
	}

	resp := LookupResponse{IP: geo.FormatIP(ip), Country: country, Found: ok}
	if !ok {
		c.JSON(http.StatusNotFound, resp)

		return
	}

	c.JSON(http.StatusOK, resp)
}

// fail writes the error response for err.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *geo.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": verr.Err.Error(),
			"row":   verr.Row,
			"value": verr.Value,
		})

		return
	}

	h.logger.Error("mapping ips to countries", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
}
