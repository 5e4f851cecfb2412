// Package sortworker sorts room summaries by recency off the interactive
// goroutine. The worker only ever sees serialized copies of the
// collection: requests and responses cross the boundary as JSON bytes.
package sortworker

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/roomlist/pkg/model"
)

// Kind tags a protocol message.
type Kind string

const (
	KindSort   Kind = "sort"   // request: sort the payload
	KindSorted Kind = "sorted" // response: sorted payload
	KindLog    Kind = "log"    // response: diagnostic text
	KindEcho   Kind = "echo"   // response: malformed input handed back
)

// Request asks the worker to sort Payload, which is the JSON text of a
// []model.RoomSummary. Tag correlates the response with the request.
type Request struct {
	Kind    Kind   `json:"kind"`
	Tag     uint64 `json:"flag"`
	Payload string `json:"payload"`
}

// Response is one message from the worker.
type Response struct {
	Kind    Kind                `json:"kind"`
	Tag     uint64              `json:"flag,omitempty"`
	Payload []model.RoomSummary `json:"payload,omitempty"`
	Log     string              `json:"log,omitempty"`
	Raw     string              `json:"raw,omitempty"`
}

// ErrNotSequence is returned when a payload is not a JSON array.
var ErrNotSequence = errors.New("payload is not a sequence")

// WorkerError wraps a protocol failure with the phase it happened in.
type WorkerError struct {
	Phase string // "decode_request", "decode_payload", "decode_response", "encode"
	Cause error
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("sort worker %s failed: %v", e.Phase, e.Cause)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// EncodeRequest serializes a sort request for snapshot.
func EncodeRequest(tag uint64, snapshot []model.RoomSummary) ([]byte, error) {
	if snapshot == nil {
		snapshot = []model.RoomSummary{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, WorkerError{Phase: "encode", Cause: err}
	}
	b, err := json.Marshal(Request{Kind: KindSort, Tag: tag, Payload: string(payload)})
	if err != nil {
		return nil, WorkerError{Phase: "encode", Cause: err}
	}
	return b, nil
}

// DecodeRequest parses a request envelope and its payload. The returned
// Request is populated as far as decoding got, so callers can still
// correlate a failed request by tag.
func DecodeRequest(data []byte) (Request, []model.RoomSummary, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return req, nil, WorkerError{Phase: "decode_request", Cause: err}
	}
	if req.Kind != KindSort {
		return req, nil, WorkerError{Phase: "decode_request", Cause: fmt.Errorf("unexpected kind %q", req.Kind)}
	}
	payload := bytes.TrimSpace([]byte(req.Payload))
	if len(payload) == 0 || payload[0] != '[' {
		return req, nil, WorkerError{Phase: "decode_payload", Cause: ErrNotSequence}
	}
	var summaries []model.RoomSummary
	if err := json.Unmarshal(payload, &summaries); err != nil {
		return req, nil, WorkerError{Phase: "decode_payload", Cause: err}
	}
	return req, summaries, nil
}

// EncodeResponse serializes a worker response.
func EncodeResponse(resp Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, WorkerError{Phase: "encode", Cause: err}
	}
	return b, nil
}

// DecodeResponse parses and validates a worker response.
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, WorkerError{Phase: "decode_response", Cause: err}
	}
	switch resp.Kind {
	case KindSorted, KindLog, KindEcho:
		return resp, nil
	default:
		return resp, WorkerError{Phase: "decode_response", Cause: fmt.Errorf("unexpected kind %q", resp.Kind)}
	}
}
