package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/a2a-server/pkg/errors"
)

func TestCall(t *testing.T) {
	Convey("Given a JSON-RPC server", t, func() {
		var received Request

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &received)

			w.Header().Set("Content-Type", "application/json")

			if received.Method == "tasks/cancel" {
				_ = json.NewEncoder(w).Encode(NewErrorResponse(received.ID, errors.ErrTaskNotCancelable))
				return
			}

			_ = json.NewEncoder(w).Encode(NewResponse(received.ID, map[string]string{"id": "task-1"}))
		}))
		defer server.Close()

		client := NewRPCClient(server.URL)

		Convey("When a call succeeds", func() {
			var result struct {
				ID string `json:"id"`
			}

			err := client.Call(context.Background(), "tasks/get", map[string]string{"id": "task-1"}, &result)

			Convey("Then the result is decoded", func() {
				So(err, ShouldBeNil)
				So(result.ID, ShouldEqual, "task-1")
				So(received.JSONRPC, ShouldEqual, Version)
				So(string(received.Params), ShouldEqual, `{"id":"task-1"}`)
			})
		})

		Convey("When the server answers with an error", func() {
			err := client.Call(context.Background(), "tasks/cancel", map[string]string{"id": "task-1"}, nil)

			Convey("Then it is the protocol error", func() {
				rpcErr, ok := err.(*errors.RpcError)
				So(ok, ShouldBeTrue)
				So(rpcErr.Code, ShouldEqual, -32002)
			})
		})
	})
}

func TestStream(t *testing.T) {
	Convey("Given a server that streams three envelopes", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")

			fmt.Fprint(w, ": heartbeat\n\n")

			for i := range 3 {
				data, _ := json.Marshal(NewResponse(json.RawMessage("1"), map[string]int{"n": i}))
				fmt.Fprintf(w, "id: %d\ndata: %s\n\n", i, data)
			}
		}))
		defer server.Close()

		client := NewRPCClient(server.URL)

		Convey("When the stream is read to the end", func() {
			var got []int

			for response, err := range client.Stream(context.Background(), "tasks/sendSubscribe", nil) {
				So(err, ShouldBeNil)

				var result struct {
					N int `json:"n"`
				}

				So(response.Decode(&result), ShouldBeNil)
				got = append(got, result.N)
			}

			Convey("Then every envelope arrives in order", func() {
				So(got, ShouldResemble, []int{0, 1, 2})
			})
		})

		Convey("When the caller stops early", func() {
			count := 0

			for range client.Stream(context.Background(), "tasks/sendSubscribe", nil) {
				count++
				break
			}

			Convey("Then no more envelopes are yielded", func() {
				So(count, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a server that rejects the request", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer server.Close()

		Convey("Then the stream yields the failure", func() {
			var failures int

			for _, err := range NewRPCClient(server.URL).Stream(context.Background(), "tasks/resubscribe", nil) {
				So(err, ShouldNotBeNil)
				failures++
			}

			So(failures, ShouldEqual, 1)
		})
	})
}
