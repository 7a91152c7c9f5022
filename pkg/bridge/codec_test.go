package bridge

import (
	"encoding/json"
	"testing"
)

func TestDecodeOutput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "object",
			input:   `{"ok":true}`,
			wantErr: false,
		},
		{
			name:    "array",
			input:   `[1,2,3]`,
			wantErr: false,
		},
		{
			name:    "bare string",
			input:   `"connected"`,
			wantErr: false,
		},
		{
			name:    "bare number",
			input:   `42`,
			wantErr: false,
		},
		{
			name:    "null document",
			input:   `null`,
			wantErr: false,
		},
		{
			name:    "surrounding whitespace",
			input:   "\n  {\"ok\":true}\n\n",
			wantErr: false,
		},
		{
			name:    "not json",
			input:   `WARNING: something went sideways`,
			wantErr: true,
		},
		{
			name:    "truncated document",
			input:   `{"ok":tr`,
			wantErr: true,
		},
		{
			name:    "two documents",
			input:   `{"a":1} {"b":2}`,
			wantErr: true,
		},
		{
			name:    "document with trailing junk",
			input:   `{"a":1} done`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOutput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeOutput(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestDecodeOutput_NumbersKeepPrecision(t *testing.T) {
	data, err := DecodeOutput(`{"count":9007199254740993,"ratio":0.1,"id":"42"}`)
	if err != nil {
		t.Fatalf("DecodeOutput() error = %v", err)
	}

	obj, ok := data.(map[string]any)
	if !ok {
		t.Fatalf("DecodeOutput() type = %T, want map[string]any", data)
	}

	count, ok := obj["count"].(json.Number)
	if !ok {
		t.Fatalf("count type = %T, want json.Number", obj["count"])
	}
	if count.String() != "9007199254740993" {
		t.Errorf("count = %s, lost integer precision", count)
	}

	ratio, ok := obj["ratio"].(json.Number)
	if !ok {
		t.Fatalf("ratio type = %T, want json.Number", obj["ratio"])
	}
	if ratio.String() != "0.1" {
		t.Errorf("ratio = %s, want 0.1", ratio)
	}

	// A string that looks numeric must stay a string.
	if id, ok := obj["id"].(string); !ok || id != "42" {
		t.Errorf("id = %v (%T), want string \"42\"", obj["id"], obj["id"])
	}
}

func TestLiteralDecodeRoundTrip(t *testing.T) {
	// Values decoded from interpreter output must re-encode to literals
	// without changing their type or representation.
	decoded, err := DecodeOutput(`{"Top":25,"Ratio":0.5,"Name":"O'Brien","Enabled":true,"Tags":["a","b"],"Missing":null}`)
	if err != nil {
		t.Fatalf("DecodeOutput() error = %v", err)
	}

	obj := decoded.(map[string]any)
	tests := []struct {
		key  string
		want string
	}{
		{key: "Top", want: "25"},
		{key: "Ratio", want: "0.5"},
		{key: "Name", want: "'O''Brien'"},
		{key: "Enabled", want: "$true"},
		{key: "Tags", want: "@('a', 'b')"},
		{key: "Missing", want: "$null"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := Literal(obj[tt.key])
			if err != nil {
				t.Fatalf("Literal(%s) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("Literal(%s) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
