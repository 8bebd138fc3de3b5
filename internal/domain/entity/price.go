package entity

// SpotPrice is the body of GET /v2/prices/{base}-{quote}/spot.
type SpotPrice struct {
	Data *SpotPriceData `json:"data"`
}

// SpotPriceData holds the quoted amount as a decimal string.
type SpotPriceData struct {
	Amount   string `json:"amount"`
	Base     string `json:"base"`
	Currency string `json:"currency"`
}
