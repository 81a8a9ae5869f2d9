package dashboard

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"frauddetect/internal/eda"
	"frauddetect/internal/geo"
	"frauddetect/internal/handler/predict"
	"frauddetect/internal/handler/stats"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
)

//go:embed templates/index.html
var templates embed.FS

// API is the part of the fraud detection API used by the dashboard.
// [*Client] implements it.
type API interface {
	Summary(ctx context.Context) (s eda.Summary, err error)
	FraudTrends(ctx context.Context) (trends []eda.Trend, err error)
	FraudByDeviceBrowser(ctx context.Context) (db *stats.DeviceBrowser, err error)
	Predict(ctx context.Context, tx *predict.Transaction) (resp *predict.Response, err error)
}

// type check
var _ API = (*Client)(nil)

// Statuses shown for a prediction.
const (
	StatusFraud    = "Fraud"
	StatusNotFraud = "Not Fraud"
)

// field is an input of the prediction form.
type field struct {
	Name  string
	Label string
	Value string
}

// formFields are the names of the inputs of the prediction form, in order.
var formFields = []string{
	"user_id",
	"signup_time",
	"purchase_time",
	"purchase_value",
	"device_id",
	"source",
	"browser",
	"sex",
	"age",
	"ip_address",
	"country",
}

// result is a prediction shown on the page.
type result struct {
	Status string
	Risk   string
	Score  float64
}

// page is the data of the page template.
type page struct {
	Result  *result
	Error   string
	Fields  []field
	Summary eda.Summary
}

// Config is the configuration structure for a *Server.
type Config struct {
	// API is the fraud detection API.  It must not be nil.
	API API

	// Logger is used for API failures.  If nil, logs are discarded.
	Logger *zap.Logger
}

// Server serves the dashboard.
type Server struct {
	api    API
	logger *zap.Logger
	tmpl   *template.Template
}

// NewServer returns a new properly initialized *Server.
func NewServer(c *Config) (s *Server, err error) {
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s = &Server{
		api:    c.API,
		logger: c.Logger,
		tmpl:   tmpl,
	}

	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	return s, nil
}

// Register adds the dashboard routes to r.
func (s *Server) Register(r gin.IRouter) {
	r.GET("/", s.Index)
	r.GET("/charts/:name", s.Chart)
	r.POST("/predict", s.Predict)
}

// Index renders the dashboard.
// GET /
func (s *Server) Index(c *gin.Context) {
	s.render(c, http.StatusOK, &page{Fields: fields(nil)})
}

// Predict scores the transaction of the submitted form and renders the
// dashboard with the result.
// POST /predict
func (s *Server) Predict(c *gin.Context) {
	values := map[string]string{}
	for _, name := range formFields {
		values[name] = strings.TrimSpace(c.PostForm(name))
	}

	p := &page{Fields: fields(values)}

	tx, err := formTransaction(values)
	if err != nil {
		p.Error = err.Error()
		s.render(c, http.StatusBadRequest, p)

		return
	}

	resp, err := s.api.Predict(c.Request.Context(), tx)
	if err != nil {
		s.logger.Error("predicting", zap.Error(err))
		p.Error = "prediction failed: " + err.Error()
		s.render(c, http.StatusBadGateway, p)

		return
	}

	p.Result = &result{
		Status: StatusNotFraud,
		Risk:   resp.Risk,
		Score:  resp.Score,
	}
	if resp.Prediction == 1 {
		p.Result.Status = StatusFraud
	}

	s.render(c, http.StatusOK, p)
}

// Chart renders one of the charts as a PNG image.
// GET /charts/:name
func (s *Server) Chart(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("name"), ".png")
	if !ok {
		c.Status(http.StatusNotFound)

		return
	}

	p, err := s.chart(c.Request.Context(), name)
	if err != nil {
		s.logger.Error("rendering chart", zap.String("chart", name), zap.Error(err))
		c.Status(http.StatusBadGateway)

		return
	} else if p == nil {
		c.Status(http.StatusNotFound)

		return
	}

	buf := &bytes.Buffer{}
	if err = WritePNG(buf, p); err != nil {
		s.logger.Error("encoding chart", zap.String("chart", name), zap.Error(err))
		c.Status(http.StatusInternalServerError)

		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// chart returns the chart called name, or nil if there is no such chart.
func (s *Server) chart(ctx context.Context, name string) (p *plot.Plot, err error) {
	switch name {
	case ChartTrend:
		trends, terr := s.api.FraudTrends(ctx)
		if terr != nil {
			return nil, terr
		}

		return TrendChart(trends)
	case ChartDevice, ChartBrowser:
		db, derr := s.api.FraudByDeviceBrowser(ctx)
		if derr != nil {
			return nil, derr
		}

		if name == ChartDevice {
			return CountChart("Fraud Cases by Device", "device_id", db.FraudByDevice)
		}

		return CountChart("Fraud Cases by Browser", "browser", db.FraudByBrowser)
	default:
		return nil, nil
	}
}

// render renders the page with the current summary.
func (s *Server) render(c *gin.Context, status int, p *page) {
	summary, err := s.api.Summary(c.Request.Context())
	if err != nil {
		s.logger.Error("getting summary", zap.Error(err))
		if p.Error == "" {
			p.Error = "api unavailable: " + err.Error()
		}
	}

	p.Summary = summary

	buf := &bytes.Buffer{}
	if err = s.tmpl.Execute(buf, p); err != nil {
		s.logger.Error("rendering page", zap.Error(err))
		c.Status(http.StatusInternalServerError)

		return
	}

	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// fields returns the form inputs filled with values.
func fields(values map[string]string) (fs []field) {
	fs = make([]field, len(formFields))
	for i, name := range formFields {
		fs[i] = field{
			Name:  name,
			Label: strings.ReplaceAll(name, "_", " "),
			Value: values[name],
		}
	}

	return fs
}

// formTransaction converts the submitted form into a transaction.
func formTransaction(values map[string]string) (tx *predict.Transaction, err error) {
	tx = &predict.Transaction{
		UserID:       values["user_id"],
		SignupTime:   values["signup_time"],
		PurchaseTime: values["purchase_time"],
		DeviceID:     values["device_id"],
		Source:       values["source"],
		Browser:      values["browser"],
		Sex:          values["sex"],
		IPAddress:    geo.IPText(values["ip_address"]),
		Country:      values["country"],
	}

	if v := values["purchase_value"]; v != "" {
		tx.PurchaseValue, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("purchase value: %w", err)
		}
	}

	if v := values["age"]; v != "" {
		tx.Age, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("age: %w", err)
		}
	}

	return tx, nil
}
