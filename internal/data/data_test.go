package data_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"frauddetect/internal/data"
	"frauddetect/internal/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataset = `user_id,signup_time,purchase_time,purchase_value,device_id,source,browser,sex,age,ip_address,class
22058,2015-02-24 22:55:49,2015-04-18 02:47:11,34,QVPSPJUOCKZAR,SEO,Chrome,M,39,732758368.79972,0
333320,2015-06-07 20:39:50,2015-06-08 01:38:54,16,EOGFQPIZPYXFZ,Ads,Chrome,F,53,350311387.865908,0
1359,2015-01-01 18:52:44,2015-01-01 18:52:45,15,YSSKYOSJHPPLJ,SEO,Opera,M,53,2621473820.11095,1
`

func TestReadTransactions(t *testing.T) {
	txs, err := data.ReadTransactions(strings.NewReader(testDataset))
	require.NoError(t, err)
	require.Len(t, txs, 3)

	tx := txs[2]
	assert.Equal(t, "1359", tx.UserID)
	assert.Equal(t, time.Date(2015, time.January, 1, 18, 52, 44, 0, time.UTC), tx.SignupTime)
	assert.Equal(t, time.Second, tx.PurchaseTime.Sub(tx.SignupTime))
	assert.Equal(t, 15.0, tx.PurchaseValue)
	assert.Equal(t, "YSSKYOSJHPPLJ", tx.DeviceID)
	assert.Equal(t, "Opera", tx.Browser)
	assert.Equal(t, 53, tx.Age)
	assert.Equal(t, "2621473820.11095", tx.IPAddress)
	assert.Empty(t, tx.Country)
	assert.True(t, tx.Fraud())
	assert.False(t, txs[0].Fraud())
}

func TestReadTransactions_errors(t *testing.T) {
	testCases := []struct {
		name       string
		in         string
		wantErrMsg string
	}{{
		name:       "empty",
		in:         "",
		wantErrMsg: "no header",
	}, {
		name:       "missing_column",
		in:         "user_id,signup_time\n1,2015-01-01 00:00:00\n",
		wantErrMsg: `missing column: "purchase_time"`,
	}, {
		name: "bad_time",
		in: "user_id,signup_time,purchase_time,purchase_value,device_id,source,browser,sex,age,ip_address,class\n" +
			"1,yesterday,2015-01-01 00:00:00,10,D,SEO,IE,M,30,1,0\n",
		wantErrMsg: `line 2: column "signup_time"`,
	}, {
		name: "bad_class",
		in: "user_id,signup_time,purchase_time,purchase_value,device_id,source,browser,sex,age,ip_address,class\n" +
			"1,2015-01-01 00:00:00,2015-01-01 00:00:00,10,D,SEO,IE,M,30,1,2\n",
		wantErrMsg: `line 2: column "class": class must be 0 or 1, got 2`,
	}, {
		name: "float_age",
		in: "user_id,signup_time,purchase_time,purchase_value,device_id,source,browser,sex,age,ip_address,class\n" +
			"1,2015-01-01 00:00:00,2015-01-01 00:00:00,10,D,SEO,IE,M,30.5,1,0\n",
		wantErrMsg: `line 2: column "age"`,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := data.ReadTransactions(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErrMsg)
		})
	}
}

func TestWriteTransactions_roundTrip(t *testing.T) {
	txs, err := data.ReadTransactions(strings.NewReader(testDataset))
	require.NoError(t, err)

	txs[0].Country = "Japan"
	txs[1].Country = data.UnknownCountry

	buf := &bytes.Buffer{}
	require.NoError(t, data.WriteTransactions(buf, txs))

	got, err := data.ReadTransactions(buf)
	require.NoError(t, err)
	assert.Equal(t, txs, got)
}

func TestMissingValues(t *testing.T) {
	const in = "a,b,c\n1,,3\n,,3\n1,2\n"

	missing, err := data.MissingValues(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 1}, missing)
}

func TestGenerator(t *testing.T) {
	const n = 2000

	g := data.NewGenerator(42, 0.1)
	txs := g.Transactions(n)
	require.Len(t, txs, n)

	again := data.NewGenerator(42, 0.1).Transactions(n)
	assert.Equal(t, txs, again)

	idx, err := geo.NewIndex(g.Ranges, nil)
	require.NoError(t, err)

	var frauds, located int
	for i := range txs {
		tx := &txs[i]
		assert.False(t, tx.PurchaseTime.Before(tx.SignupTime), "row %d", i)
		assert.GreaterOrEqual(t, tx.Age, 18)

		if tx.Fraud() {
			frauds++
		}

		ip, perr := geo.ParseIP(tx.IPAddress)
		require.NoError(t, perr)

		if _, ok := idx.Lookup(ip); ok {
			located++
		}
	}

	assert.InDelta(t, 0.1, float64(frauds)/n, 0.03)
	assert.Greater(t, located, n/2)
	assert.Less(t, located, n)
}

func TestGenerateSynthetic(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data", "fraud.csv")
	rangesPath := filepath.Join(dir, "data", "ranges.csv")

	err := data.GenerateSynthetic(100, 0.2, 1, dataPath, rangesPath)
	require.NoError(t, err)

	txs, err := data.ReadTransactionsFile(dataPath)
	require.NoError(t, err)
	assert.Len(t, txs, 100)

	records, err := geo.LoadRangesFile(rangesPath)
	require.NoError(t, err)
	assert.Equal(t, data.SyntheticRanges(200), records)
}
