// Package backend defines the contract between the inference host and the
// model plugins it drives.
//
// A plugin is created once per loaded model. The host calls Initialize once,
// Execute any number of times (never concurrently for the same instance) and
// Finalize once before discarding it.
package backend

import (
	"context"
	"encoding/json"

	"modelhost/internal/tensor"
)

// Model is implemented by every backend plugin.
type Model interface {
	// Initialize loads weights and prepares the model. A failure leaves the
	// model unusable and the host will not call Execute.
	Initialize(ctx context.Context, args InitArgs) error
	// Execute runs one invocation. It must return exactly one Response per
	// Request, in order. A returned error fails the whole invocation; per-request
	// failures go into Response.Err.
	Execute(ctx context.Context, requests []*Request) ([]*Response, error)
	// Finalize releases resources. It is called once, after the last Execute.
	Finalize(ctx context.Context) error
}

// InitArgs is handed to Initialize.
type InitArgs struct {
	ModelName       string
	ModelVersion    string
	ModelRepository string
	// Dir is the version directory holding the model artifacts.
	Dir    string
	Config ModelConfig
}

// RawConfig returns the model configuration serialized as JSON, the form in
// which hosts traditionally pass it to plugins.
func (a InitArgs) RawConfig() (string, error) {
	b, err := json.Marshal(a.Config)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Request is one inference request within an invocation.
type Request struct {
	ID               string
	Inputs           []*tensor.Tensor
	RequestedOutputs []string
	Parameters       map[string]any
}

// InputByName returns the named input tensor or nil.
func (r *Request) InputByName(name string) *tensor.Tensor {
	for _, in := range r.Inputs {
		if in != nil && in.Name == name {
			return in
		}
	}
	return nil
}

// Wants reports whether the caller asked for the named output. An empty
// RequestedOutputs list means every output.
func (r *Request) Wants(name string) bool {
	if len(r.RequestedOutputs) == 0 {
		return true
	}
	for _, n := range r.RequestedOutputs {
		if n == name {
			return true
		}
	}
	return false
}

// Response carries the outputs for one Request, or the error that request hit.
type Response struct {
	Outputs []*tensor.Tensor
	Err     error
}

// OutputByName returns the named output tensor or nil.
func (r *Response) OutputByName(name string) *tensor.Tensor {
	for _, out := range r.Outputs {
		if out != nil && out.Name == name {
			return out
		}
	}
	return nil
}

// Filter drops outputs the request did not ask for.
func (r *Response) Filter(req *Request) *Response {
	if r == nil || req == nil || len(req.RequestedOutputs) == 0 {
		return r
	}
	out := &Response{Err: r.Err}
	for _, t := range r.Outputs {
		if req.Wants(t.Name) {
			out.Outputs = append(out.Outputs, t)
		}
	}
	return out
}

// ErrorResponse builds a Response that only carries err.
func ErrorResponse(err error) *Response { return &Response{Err: err} }
