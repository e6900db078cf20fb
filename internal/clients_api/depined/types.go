package depined

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// MainnetAPI is the production Depined API base URL
	MainnetAPI = "https://api.depined.org/api"

	EndpointUserDetails   = "/user/details"
	EndpointWidgetConnect = "/user/widget-connect"
	EndpointEpochEarnings = "/stats/epoch-earnings"
)

// UserDetailsResponse - GET /user/details
type UserDetailsResponse struct {
	Data UserDetails `json:"data"`
}

type UserDetails struct {
	Username string `json:"username"`
}

// WidgetConnectRequest - POST /user/widget-connect body
type WidgetConnectRequest struct {
	Connected bool `json:"connected"`
}

// EpochEarningsResponse - GET /stats/epoch-earnings
type EpochEarningsResponse struct {
	Data EpochEarnings `json:"data"`
}

type EpochEarnings struct {
	Earnings Amount `json:"earnings"`
	Epoch    int64  `json:"epoch"`
}

// Amount accepts both JSON numbers and numeric strings.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("earnings %q is not a number: %w", s, err)
		}
		*a = Amount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}
