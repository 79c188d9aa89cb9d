package ext

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/crypto-power/tipwizard/libtipper/utils"
)

// krakenURL is the public ticker endpoint. The pair is appended as a query.
var krakenURL = "https://api.kraken.com/0/public/Ticker?pair=%s"

// krakenGetRate returns the 24 hour volume weighted average price of pair.
func krakenGetRate(ctx context.Context, pair string) (float64, error) {
	reqCfg := &utils.ReqConfig{
		Method:   http.MethodGet,
		HttpUrl:  fmt.Sprintf(krakenURL, pair),
		IsActive: true,
	}

	resp := new(KrakenTickerResponse)
	if _, _, err := utils.HTTPRequest(ctx, reqCfg, resp); err != nil {
		return 0, fmt.Errorf("%s failed to fetch ticker for %s: %w", Kraken, pair, err)
	}
	if len(resp.Error) > 0 {
		return 0, fmt.Errorf("%s ticker error for %s: %s", Kraken, pair, strings.Join(resp.Error, ", "))
	}

	result, ok := resp.Result[pair]
	if !ok && len(resp.Result) == 1 {
		// Kraken may answer with its internal name for the pair.
		for _, r := range resp.Result {
			result, ok = r, true
		}
	}
	if !ok {
		return 0, fmt.Errorf("%s returned no ticker for %s", Kraken, pair)
	}
	if len(result.VolumeWeightedAvg) < 2 {
		return 0, fmt.Errorf("%s returned a malformed ticker for %s", Kraken, pair)
	}

	rate, err := strconv.ParseFloat(result.VolumeWeightedAvg[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%s returned an invalid price for %s: %w", Kraken, pair, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%s returned a non-positive price for %s", Kraken, pair)
	}
	return rate, nil
}
