// Package stats contains the dataset statistics endpoints used by the
// dashboard.
package stats

import (
	"net/http"

	"frauddetect/internal/data"
	"frauddetect/internal/eda"

	"github.com/gin-gonic/gin"
)

// TopDevices is the number of devices returned by the device endpoint.
const TopDevices = 10

// DeviceBrowser is the number of fraud cases per device and per browser.
type DeviceBrowser struct {
	FraudByDevice  map[string]int `json:"fraud_by_device"`
	FraudByBrowser map[string]int `json:"fraud_by_browser"`
}

// Handler serves statistics computed once from a dataset.
type Handler struct {
	deviceBrowser DeviceBrowser
	trends        []eda.Trend
	summary       eda.Summary
}

// NewHandler computes the statistics of txs.
func NewHandler(txs []data.Transaction) (h *Handler) {
	return &Handler{
		summary: eda.Summarize(txs),
		trends:  eda.FraudTrends(txs),
		deviceBrowser: DeviceBrowser{
			FraudByDevice:  eda.CountMap(eda.FraudByDevice(txs, TopDevices)),
			FraudByBrowser: eda.CountMap(eda.FraudByBrowser(txs)),
		},
	}
}

// Summary returns the number of transactions and fraud cases.
// GET /summary
func (h *Handler) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, h.summary)
}

// FraudTrends returns the number of fraud cases per purchase date.
// GET /fraud_trends
func (h *Handler) FraudTrends(c *gin.Context) {
	c.JSON(http.StatusOK, h.trends)
}

// FraudByDeviceBrowser returns the devices with the most fraud cases and the
// fraud cases per browser.
// GET /fraud_by_device_browser
func (h *Handler) FraudByDeviceBrowser(c *gin.Context) {
	c.JSON(http.StatusOK, h.deviceBrowser)
}
