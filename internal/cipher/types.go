package cipher

import (
	"context"
	"errors"
	"fmt"
)

// ErrMalformedEncoding is returned when hex or base64 input cannot be decoded.
// Decoders never truncate: a trailing odd nibble or a bad quantum fails.
var ErrMalformedEncoding = errors.New("malformed encoding")

// OperationType groups operations by what they do to their input.
type OperationType string

const (
	OperationTypeEncode  OperationType = "encode"
	OperationTypeDecode  OperationType = "decode"
	OperationTypeEncrypt OperationType = "encrypt"
)

// Operation is a single named byte transform.
type Operation interface {
	Name() string
	Type() OperationType
	Description() string

	// Execute applies the operation. params carries per-operation settings
	// such as the XOR key.
	Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error)

	// Reverse returns the inverse operation if there is one.
	Reverse() (Operation, bool)
}

// OperationConfig names one step of a pipeline.
type OperationConfig struct {
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Pipeline applies operations in order, feeding each output to the next step.
type Pipeline struct {
	Operations []OperationConfig `json:"operations"`
}

// Execute runs the pipeline against the default registry.
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	for i, step := range p.Operations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		op, ok := GetOperation(step.Name)
		if !ok {
			return nil, fmt.Errorf("unknown operation at step %d: %s", i, step.Name)
		}
		out, err := op.Execute(ctx, result, step.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", step.Name, i, err)
		}
		result = out
	}
	return result, nil
}

// Reverse builds the pipeline that undoes p, step parameters included.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	reversed := &Pipeline{Operations: make([]OperationConfig, len(p.Operations))}
	for i, step := range p.Operations {
		op, ok := GetOperation(step.Name)
		if !ok {
			return nil, fmt.Errorf("unknown operation: %s", step.Name)
		}
		inverse, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s is not reversible", step.Name)
		}
		reversed.Operations[len(p.Operations)-1-i] = OperationConfig{
			Name:       inverse.Name(),
			Parameters: step.Parameters,
		}
	}
	return reversed, nil
}

// BaseOperation carries the descriptive fields shared by every operation.
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string {
	return b.NameValue
}

func (b *BaseOperation) Type() OperationType {
	return b.TypeValue
}

func (b *BaseOperation) Description() string {
	return b.DescriptionValue
}

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
