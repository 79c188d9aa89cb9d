package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// Default http client timeout in secs.
	defaultHttpClientTimeout = 10 * time.Second
)

type (
	// Client is the base for http/https calls
	Client struct {
		httpClient *http.Client
	}

	// ReqConfig models the configuration options for requests.
	ReqConfig struct {
		Payload []byte
		Method  string
		HttpUrl string
		// IsActive should always be true, signifying that the user has
		// authorised the specific API call to access the internet.
		IsActive bool
	}
)

var (
	clientOnce sync.Once
	client     *Client
)

// NewClient configures and return a new client
func NewClient() (c *Client) {
	return &Client{
		httpClient: &http.Client{
			Timeout:   defaultHttpClientTimeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
	}
}

// HTTPRequest queries the API provided in the ReqConfig object using a shared
// client and decodes the JSON body into respObj.
func HTTPRequest(ctx context.Context, reqConfig *ReqConfig, respObj interface{}) (*http.Response, []byte, error) {
	clientOnce.Do(func() {
		client = NewClient()
	})
	return client.Do(ctx, reqConfig, respObj)
}

func (c *Client) requestFilter(ctx context.Context, reqConfig *ReqConfig) (req *http.Request, err error) {
	req, err = http.NewRequestWithContext(ctx, reqConfig.Method, reqConfig.HttpUrl, bytes.NewBuffer(reqConfig.Payload))
	if err != nil {
		return
	}
	if reqConfig.Method == http.MethodPost || reqConfig.Method == http.MethodPut {
		req.Header.Add("Content-Type", "application/json;charset=utf-8")
	}
	req.Header.Add("Accept", "application/json")
	return
}

// Do prepare and process HTTP request to backend resources. When response is
// nil the raw body is returned to the caller without decoding.
func (c *Client) Do(ctx context.Context, reqConfig *ReqConfig, response interface{}) (*http.Response, []byte, error) {
	if !reqConfig.IsActive {
		return nil, nil, fmt.Errorf("error: API call not allowed: %v", reqConfig.HttpUrl)
	}

	if _, err := url.ParseRequestURI(reqConfig.HttpUrl); err != nil {
		return nil, nil, fmt.Errorf("error: url not properly constituted: %v", err)
	}

	req, err := c.requestFilter(ctx, reqConfig)
	if err != nil {
		return nil, nil, err
	}

	if req == nil {
		return nil, nil, errors.New("error: nil request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return resp, body, fmt.Errorf("error: status: %v resp: %s", resp.Status, body)
	}

	if response == nil {
		return resp, body, nil
	}

	return resp, body, json.Unmarshal(body, response)
}
