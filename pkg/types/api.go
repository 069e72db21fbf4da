package types

import "modelhost/internal/tensor"

// InferRequest is the KServe v2 inference request body.
type InferRequest struct {
	// Optional request id, echoed in the response. Generated when empty.
	// example: 42
	ID string `json:"id,omitempty" example:"42"`
	// Free-form request parameters passed to the backend.
	Parameters map[string]any `json:"parameters,omitempty"`
	// Input tensors.
	Inputs []*tensor.Tensor `json:"inputs"`
	// Outputs to return. All outputs when empty.
	Outputs []RequestedOutput `json:"outputs,omitempty"`
}

// RequestedOutput names one output the caller wants back.
type RequestedOutput struct {
	// example: output
	Name       string         `json:"name" example:"output"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// InferResponse is the KServe v2 inference response body.
type InferResponse struct {
	// example: t5-small
	ModelName string `json:"model_name" example:"t5-small"`
	// example: 1
	ModelVersion string `json:"model_version,omitempty" example:"1"`
	// example: 42
	ID         string           `json:"id" example:"42"`
	Parameters map[string]any   `json:"parameters,omitempty"`
	Outputs    []*tensor.Tensor `json:"outputs"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ServerMetadata is returned by GET /v2.
type ServerMetadata struct {
	// example: modelhost
	Name       string   `json:"name" example:"modelhost"`
	Version    string   `json:"version" example:"0.1.0"`
	Extensions []string `json:"extensions"`
}

// TensorMetadata describes a declared input or output.
type TensorMetadata struct {
	// example: input
	Name string `json:"name" example:"input"`
	// example: INT64
	Datatype string  `json:"datatype" example:"INT64"`
	Shape    []int64 `json:"shape"`
}

// ModelMetadata is returned by GET /v2/models/{name}.
type ModelMetadata struct {
	// example: t5-small
	Name     string   `json:"name" example:"t5-small"`
	Versions []string `json:"versions,omitempty"`
	// Backend plugin serving the model.
	// example: summarizer
	Platform string           `json:"platform" example:"summarizer"`
	Inputs   []TensorMetadata `json:"inputs"`
	Outputs  []TensorMetadata `json:"outputs"`
}

// RepositoryIndexRequest is the optional body of POST /v2/repository/index.
type RepositoryIndexRequest struct {
	// Only list models that are ready.
	Ready bool `json:"ready,omitempty"`
}

// RepositoryIndexEntry is one row of the repository index.
type RepositoryIndexEntry struct {
	// example: t5-small
	Name string `json:"name" example:"t5-small"`
	// example: 1
	Version string `json:"version,omitempty" example:"1"`
	// READY, LOADING, UNLOADING, UNAVAILABLE or empty when never loaded.
	// example: READY
	State  string `json:"state,omitempty" example:"READY"`
	Reason string `json:"reason,omitempty"`
}
