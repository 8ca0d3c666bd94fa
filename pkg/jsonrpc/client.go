package jsonrpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync/atomic"

	"github.com/theapemachine/a2a-server/pkg/errors"
	"github.com/theapemachine/a2a-server/pkg/utils"
)

/*
RawResponse is a response envelope as read by a client, with the result
left undecoded.
*/
type RawResponse struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

/*
Decode unmarshals the result into out, or returns the envelope's error.
*/
func (response RawResponse) Decode(out any) error {
	if response.Error != nil {
		return response.Error
	}

	if out == nil || len(response.Result) == 0 {
		return nil
	}

	return json.Unmarshal(response.Result, out)
}

type RPCClient struct {
	URL     string
	Client  *http.Client
	Headers map[string]string
	nextID  atomic.Int64
}

func NewRPCClient(url string) *RPCClient {
	return &RPCClient{
		URL:    url,
		Client: &http.Client{},
	}
}

/*
Call performs a unary request and decodes its result into result. A protocol
error comes back as *errors.RpcError.
*/
func (c *RPCClient) Call(ctx context.Context, method string, params any, result any) error {
	resp, err := c.post(ctx, method, params, "application/json")

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	var envelope RawResponse

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return envelope.Decode(result)
}

/*
Stream performs a streaming request and yields each envelope of the event
stream. It ends when the server closes the stream, on the first read error,
or when the caller stops ranging.
*/
func (c *RPCClient) Stream(ctx context.Context, method string, params any) iter.Seq2[RawResponse, error] {
	return func(yield func(RawResponse, error) bool) {
		resp, err := c.post(ctx, method, params, "text/event-stream")

		if err != nil {
			yield(RawResponse{}, err)
			return
		}

		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)

		for {
			data, err := utils.ReadSSE(reader)

			if err == io.EOF {
				return
			}

			if err != nil {
				yield(RawResponse{}, fmt.Errorf("failed to read event stream: %w", err))
				return
			}

			if data == "" {
				continue
			}

			var envelope RawResponse

			if err := json.Unmarshal([]byte(data), &envelope); err != nil {
				if !yield(RawResponse{}, fmt.Errorf("failed to decode event: %w", err)) {
					return
				}

				continue
			}

			if !yield(envelope, nil) {
				return
			}
		}
	}
}

func (c *RPCClient) post(ctx context.Context, method string, params any, accept string) (*http.Response, error) {
	client := c.Client

	if client == nil {
		client = http.DefaultClient
	}

	request, err := NewRequest(c.nextID.Add(1), method, params)

	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	body, err := json.Marshal(request)

	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))

	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)

	for key, value := range c.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := client.Do(httpReq)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()

		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, snippet)
	}

	return resp, nil
}
