package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"Fbaccess/internal/core/graph"

	"github.com/google/uuid"
)

// Paging holds the cursors the Graph API returns alongside list results.
type Paging struct {
	Next     string
	Previous string
}

// Response is the decoded outcome of a successful job.
type Response struct {
	JobID      uuid.UUID
	StatusCode int
	Records    []graph.Record
	Paging     Paging
	Body       []byte
}

// First returns the first record, or nil. Single-object fetches decode to one record.
func (r *Response) First() graph.Record {
	if r == nil || len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}

// decodeBody turns a response body into records. It understands the Graph API list
// envelope {"data": [...], "paging": {...}}, plain objects, the legacy REST API's bare
// arrays and both error envelopes. Scalars such as the "true" returned by writes decode
// to no records.
func decodeBody(status int, body []byte) ([]graph.Record, Paging, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, Paging{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '[':
		var items []any
		if err := dec.Decode(&items); err != nil {
			return nil, Paging{}, fmt.Errorf("failed to decode response array: %w", err)
		}
		return toRecords(items), Paging{}, nil

	case '{':
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			return nil, Paging{}, fmt.Errorf("failed to decode response object: %w", err)
		}
		rec := graph.Record(obj)
		if apiErr := apiErrorFromRecord(status, rec); apiErr != nil {
			return nil, Paging{}, apiErr
		}
		if data, ok := obj["data"].([]any); ok {
			paging := rec.Record("paging")
			return toRecords(data), Paging{
				Next:     paging.String("next"),
				Previous: paging.String("previous"),
			}, nil
		}
		return []graph.Record{rec}, Paging{}, nil

	default:
		return nil, Paging{}, nil
	}
}

func toRecords(items []any) []graph.Record {
	out := make([]graph.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, graph.Record(m))
		}
	}
	return out
}

// apiErrorFromRecord recognizes {"error": {"message", "type", "code"}} and the legacy
// {"error_code", "error_msg"} envelope. It returns nil for anything else.
func apiErrorFromRecord(status int, rec graph.Record) *APIError {
	if e := rec.Record("error"); e != nil {
		return &APIError{
			StatusCode: status,
			Code:       e.Int("code"),
			Type:       e.String("type"),
			Message:    e.String("message"),
		}
	}
	if rec.Has("error_code") {
		return &APIError{
			StatusCode: status,
			Code:       rec.Int("error_code"),
			Message:    rec.String("error_msg"),
		}
	}
	return nil
}

// apiErrorFromBody builds the error for a non-2xx response.
func apiErrorFromBody(status int, body []byte) *APIError {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		if apiErr := apiErrorFromRecord(status, graph.Record(obj)); apiErr != nil {
			return apiErr
		}
	}
	return &APIError{StatusCode: status}
}

// progressReader reports every read to a ProgressFunc through the queue's dispatcher.
type progressReader struct {
	r        io.Reader
	read     int64
	total    int64
	fn       ProgressFunc
	dispatch Dispatcher
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		read, total := p.read, p.total
		p.dispatch(func() { p.fn(read, total) })
	}
	return n, err
}
