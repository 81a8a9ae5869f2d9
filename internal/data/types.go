package data

import "time"

// TimeLayout is the layout of the signup and purchase times in the dataset.
const TimeLayout = time.DateTime

// Column names of the transaction dataset.
const (
	ColumnUserID        = "user_id"
	ColumnSignupTime    = "signup_time"
	ColumnPurchaseTime  = "purchase_time"
	ColumnPurchaseValue = "purchase_value"
	ColumnDeviceID      = "device_id"
	ColumnSource        = "source"
	ColumnBrowser       = "browser"
	ColumnSex           = "sex"
	ColumnAge           = "age"
	ColumnIPAddress     = "ip_address"
	ColumnClass         = "class"
	ColumnCountry       = "country"
)

// Columns is the column order used when writing transactions.
var Columns = []string{
	ColumnUserID,
	ColumnSignupTime,
	ColumnPurchaseTime,
	ColumnPurchaseValue,
	ColumnDeviceID,
	ColumnSource,
	ColumnBrowser,
	ColumnSex,
	ColumnAge,
	ColumnIPAddress,
	ColumnClass,
	ColumnCountry,
}

// UnknownCountry is the country of a transaction whose IP address is not
// covered by any range.
const UnknownCountry = "Unknown"

// Transaction is one row of the e-commerce dataset.
type Transaction struct {
	SignupTime   time.Time `json:"signup_time"`
	PurchaseTime time.Time `json:"purchase_time"`

	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
	Source   string `json:"source"`
	Browser  string `json:"browser"`
	Sex      string `json:"sex"`

	// IPAddress is the raw text of the ip_address column.  The public
	// dataset stores it as a float.
	IPAddress string `json:"ip_address"`

	// Country is empty until the transaction has been geolocated.
	Country string `json:"country,omitempty"`

	PurchaseValue float64 `json:"purchase_value"`

	Age   int `json:"age"`
	Class int `json:"class"`
}

// Fraud returns true if the transaction is labeled as fraud.
func (t *Transaction) Fraud() (ok bool) {
	return t.Class == 1
}
