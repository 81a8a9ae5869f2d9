package eda_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"frauddetect/internal/data"
	"frauddetect/internal/eda"
	"frauddetect/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tx(day int, device, browser string, class int) (t data.Transaction) {
	purchase := time.Date(2015, 3, day, 10, 0, 0, 0, time.UTC)

	return data.Transaction{
		SignupTime:    purchase.Add(-time.Hour),
		PurchaseTime:  purchase,
		UserID:        device + browser,
		DeviceID:      device,
		Source:        "SEO",
		Browser:       browser,
		Sex:           "M",
		Country:       "Japan",
		PurchaseValue: float64(10 * day),
		Age:           20 + day,
		Class:         class,
	}
}

func testTransactions() (txs []data.Transaction) {
	return []data.Transaction{
		tx(2, "d1", "Chrome", 1),
		tx(1, "d1", "Chrome", 1),
		tx(1, "d2", "Safari", 0),
		tx(2, "d2", "Safari", 1),
		tx(3, "d3", "Chrome", 0),
		tx(3, "d4", "IE", 0),
	}
}

func TestSummarize(t *testing.T) {
	s := eda.Summarize(testTransactions())
	assert.Equal(t, eda.Summary{
		TotalTransactions: 6,
		FraudCases:        3,
		FraudPercentage:   50,
	}, s)

	s = eda.Summarize(append(testTransactions(), tx(4, "d5", "IE", 0)))
	assert.Equal(t, 42.86, s.FraudPercentage)

	assert.Equal(t, eda.Summary{}, eda.Summarize(nil))
}

func TestFraudTrends(t *testing.T) {
	want := []eda.Trend{
		{Date: "2015-03-01", FraudCases: 1},
		{Date: "2015-03-02", FraudCases: 2},
		{Date: "2015-03-03", FraudCases: 0},
	}
	assert.Equal(t, want, eda.FraudTrends(testTransactions()))
}

func TestFraudByDeviceAndBrowser(t *testing.T) {
	txs := testTransactions()

	assert.Equal(t, []eda.Count{
		{Value: "d1", N: 2},
		{Value: "d2", N: 1},
	}, eda.FraudByDevice(txs, 2))

	assert.Len(t, eda.FraudByDevice(txs, 0), 4)

	browsers := eda.FraudByBrowser(txs)
	assert.Equal(t, map[string]int{"Chrome": 2, "Safari": 1, "IE": 0}, eda.CountMap(browsers))
	assert.Equal(t, "Chrome", browsers[0].Value)
}

func TestCategoricalDistribution(t *testing.T) {
	counts, err := eda.CategoricalDistribution(testTransactions(), data.ColumnBrowser)
	require.NoError(t, err)
	assert.Equal(t, []eda.Count{
		{Value: "Chrome", N: 3},
		{Value: "Safari", N: 2},
		{Value: "IE", N: 1},
	}, counts)

	_, err = eda.CategoricalDistribution(testTransactions(), data.ColumnAge)
	assert.ErrorIs(t, err, eda.ErrUnknownColumn)
}

func TestDescribe(t *testing.T) {
	stats := eda.Describe(map[string][]float64{
		"b": {1, 2, 3, 4, 5},
		"a": {7},
		"c": nil,
	})
	require.Len(t, stats, 3)

	assert.Equal(t, "a", stats[0].Name)
	assert.Equal(t, 7.0, stats[0].Mean)
	assert.Zero(t, stats[0].Std)

	b := stats[1]
	assert.Equal(t, 5, b.Count)
	assert.Equal(t, 3.0, b.Mean)
	assert.InDelta(t, 1.5811, b.Std, 1e-4)
	assert.Equal(t, 1.0, b.Min)
	assert.Equal(t, 5.0, b.Max)
	assert.LessOrEqual(t, b.Min, b.Q25)
	assert.LessOrEqual(t, b.Q25, b.Median)
	assert.LessOrEqual(t, b.Median, b.Q75)
	assert.LessOrEqual(t, b.Q75, b.Max)

	assert.Equal(t, eda.ColumnStats{Name: "c"}, stats[2])
}

func TestCorrelationMatrix(t *testing.T) {
	cols := map[string][]float64{
		"x":   {1, 2, 3, 4},
		"2x":  {2, 4, 6, 8},
		"neg": {4, 3, 2, 1},
	}

	corr, err := eda.CorrelationMatrix([]string{"x", "2x", "neg"}, cols)
	require.NoError(t, err)

	assert.InDelta(t, 1, corr.At(0, 0), 1e-12)
	assert.InDelta(t, 1, corr.At(0, 1), 1e-12)
	assert.InDelta(t, -1, corr.At(0, 2), 1e-12)
	assert.InDelta(t, -1, corr.At(2, 1), 1e-12)

	_, err = eda.CorrelationMatrix([]string{"x", "y"}, cols)
	assert.ErrorIs(t, err, eda.ErrUnknownColumn)

	cols["short"] = []float64{1}
	_, err = eda.CorrelationMatrix([]string{"x", "short"}, cols)
	assert.Error(t, err)
}

func TestOutliersAndClassMeans(t *testing.T) {
	col := []float64{1, 2, 2, 3, 3, 3, 4, 100}
	assert.Equal(t, []int{7}, eda.Outliers(col, 1.5))
	assert.Nil(t, eda.Outliers(nil, 1.5))

	legit, fraud := eda.ClassMeans([]float64{1, 3, 10}, []float64{0, 0, 1})
	assert.Equal(t, 2.0, legit)
	assert.Equal(t, 10.0, fraud)
}

func TestNumericColumns(t *testing.T) {
	rows := features.Engineer(testTransactions())
	cols := eda.NumericColumns(rows)

	assert.Len(t, cols, 7)
	assert.Equal(t, []float64{1, 1, 0, 1, 0, 0}, cols[data.ColumnClass])
	assert.Equal(t, 3600.0, cols[features.FeatureVelocityCheck][0])
	assert.Equal(t, 10.0, cols[features.FeaturePurchaseHour][0])
}

func TestPlots(t *testing.T) {
	dir := t.TempDir()
	rows := features.Engineer(testTransactions())
	cols := eda.NumericColumns(rows)

	path := filepath.Join(dir, "hist.png")
	require.NoError(t, eda.HistogramPlot(path, data.ColumnPurchaseValue, cols[data.ColumnPurchaseValue], 5))
	assertFile(t, path)

	counts, err := eda.CategoricalDistribution(testTransactions(), data.ColumnBrowser)
	require.NoError(t, err)

	path = filepath.Join(dir, "bar.svg")
	require.NoError(t, eda.BarPlot(path, "Browsers", data.ColumnBrowser, counts))
	assertFile(t, path)

	path = filepath.Join(dir, "box.png")
	require.NoError(t, eda.BoxPlotByClass(path, data.ColumnAge, cols[data.ColumnAge], cols[data.ColumnClass]))
	assertFile(t, path)

	names := []string{data.ColumnPurchaseValue, data.ColumnAge, data.ColumnClass}
	corr, err := eda.CorrelationMatrix(names, cols)
	require.NoError(t, err)

	path = filepath.Join(dir, "nested", "corr.png")
	require.NoError(t, eda.HeatMapPlot(path, names, corr))
	assertFile(t, path)

	assert.ErrorIs(t, eda.HeatMapPlot(path, names[:1], corr), eda.ErrUnknownColumn)
}

func assertFile(t *testing.T, path string) {
	t.Helper()

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())
}
