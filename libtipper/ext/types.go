package ext

import "time"

// KrakenTickerResponse is the body of Kraken's public Ticker endpoint.
type KrakenTickerResponse struct {
	Error  []string                      `json:"error"`
	Result map[string]KrakenTickerResult `json:"result"`
}

// KrakenTickerResult holds the fields of one pair. Every field is an array of
// [today, last 24 hours] values encoded as strings.
type KrakenTickerResult struct {
	Ask                []string `json:"a"`
	Bid                []string `json:"b"`
	LastTradeClosed    []string `json:"c"`
	Volume             []string `json:"v"`
	VolumeWeightedAvg  []string `json:"p"`
	NumberOfTrades     []int    `json:"t"`
	Low                []string `json:"l"`
	High               []string `json:"h"`
	TodaysOpeningPrice string   `json:"o"`
}

// Ticker is the last rate fetched for a pair.
type Ticker struct {
	Pair       string    `json:"pair"`
	Rate       float64   `json:"rate"`
	LastUpdate time.Time `json:"lastUpdate"`
}
