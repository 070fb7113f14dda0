package cipher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestPipelineExecute(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		pipeline Pipeline
		input    []byte
		expected string
		wantErr  string
	}{
		{
			name: "encrypt then hex",
			pipeline: Pipeline{Operations: []OperationConfig{
				{Name: "xor_repeating", Parameters: map[string]interface{}{"key": "ICE"}},
				{Name: "hex_encode"},
			}},
			input:    []byte("Burning 'em"),
			expected: "0b3637272a2b2e63622c2e",
		},
		{
			name: "hex to base64",
			pipeline: Pipeline{Operations: []OperationConfig{
				{Name: "hex_decode"},
				{Name: "base64_encode"},
			}},
			input:    []byte("49434520"),
			expected: "SUNFIA==",
		},
		{
			name:     "empty pipeline",
			pipeline: Pipeline{},
			input:    []byte("unchanged"),
			expected: "unchanged",
		},
		{
			name:     "unknown step",
			pipeline: Pipeline{Operations: []OperationConfig{{Name: "rot13"}}},
			input:    []byte("x"),
			wantErr:  "unknown operation at step 0",
		},
		{
			name: "failing step",
			pipeline: Pipeline{Operations: []OperationConfig{
				{Name: "base64_encode"},
				{Name: "hex_decode"},
			}},
			input:   []byte("abc"),
			wantErr: "hex_decode failed at step 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.pipeline.Execute(ctx, tt.input)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("pipeline failed: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPipelineFailureKeepsCause(t *testing.T) {
	p := &Pipeline{Operations: []OperationConfig{{Name: "hex_decode"}}}
	_, err := p.Execute(context.Background(), []byte("abc"))
	if !errors.Is(err, ErrMalformedEncoding) {
		t.Fatalf("expected ErrMalformedEncoding in chain, got %v", err)
	}
}

func TestPipelineReverse(t *testing.T) {
	ctx := context.Background()
	p := &Pipeline{Operations: []OperationConfig{
		{Name: "xor_repeating", Parameters: map[string]interface{}{"key": "secret"}},
		{Name: "base64_encode"},
	}}

	reversed, err := p.Reverse()
	if err != nil {
		t.Fatalf("reverse failed: %v", err)
	}
	if reversed.Operations[0].Name != "base64_decode" || reversed.Operations[1].Name != "xor_repeating" {
		t.Fatalf("unexpected reversed steps: %+v", reversed.Operations)
	}

	plain := []byte("attack at dawn")
	ct, err := p.Execute(ctx, plain)
	if err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	back, err := reversed.Execute(ctx, ct)
	if err != nil {
		t.Fatalf("reverse execute failed: %v", err)
	}
	if !bytes.Equal(back, plain) {
		t.Errorf("got %q, want %q", back, plain)
	}
}

func TestPipelineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}}
	if _, err := p.Execute(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
