package bridge

import (
	"encoding/json"
	"testing"
)

func TestLiteral(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    string
		wantErr bool
	}{
		{
			name:  "nil",
			value: nil,
			want:  "$null",
		},
		{
			name:  "true",
			value: true,
			want:  "$true",
		},
		{
			name:  "false",
			value: false,
			want:  "$false",
		},
		{
			name:  "plain string",
			value: "hello",
			want:  "'hello'",
		},
		{
			name:  "string with single quote",
			value: "O'Brien",
			want:  "'O''Brien'",
		},
		{
			name:  "string with dollar sign is not expanded",
			value: "$env:PATH",
			want:  "'$env:PATH'",
		},
		{
			name:  "string with injection attempt",
			value: "'; Remove-Item -Recurse /; '",
			want:  "'''; Remove-Item -Recurse /; '''",
		},
		{
			name:  "int",
			value: 42,
			want:  "42",
		},
		{
			name:  "negative int",
			value: -7,
			want:  "-7",
		},
		{
			name:  "int64",
			value: int64(9007199254740993),
			want:  "9007199254740993",
		},
		{
			name:  "float",
			value: 3.14,
			want:  "3.14",
		},
		{
			name:  "whole float stays numeric",
			value: float64(2),
			want:  "2",
		},
		{
			name:  "json number passes through",
			value: json.Number("10000000000000001"),
			want:  "10000000000000001",
		},
		{
			name:  "json decimal passes through",
			value: json.Number("0.5"),
			want:  "0.5",
		},
		{
			name:  "slice of any",
			value: []any{1, "two", true},
			want:  "@(1, 'two', $true)",
		},
		{
			name:  "slice of strings",
			value: []string{"a", "b"},
			want:  "@('a', 'b')",
		},
		{
			name:  "empty slice",
			value: []any{},
			want:  "@()",
		},
		{
			name:  "nested map sorted by key",
			value: map[string]any{"beta": 2, "alpha": "x"},
			want:  "@{'alpha' = 'x'; 'beta' = 2}",
		},
		{
			name:  "map with nested slice",
			value: map[string]any{"ids": []any{json.Number("1"), json.Number("2")}},
			want:  "@{'ids' = @(1, 2)}",
		},
		{
			name:    "struct is rejected",
			value:   struct{ X int }{X: 1},
			wantErr: true,
		},
		{
			name:    "typed map is rejected",
			value:   map[string]string{"a": "b"},
			wantErr: true,
		},
		{
			name:    "unsupported kind nested in slice",
			value:   []any{1, struct{}{}},
			wantErr: true,
		},
		{
			name:    "unsupported kind nested in map",
			value:   map[string]any{"ok": 1, "bad": make(chan int)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Literal(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Literal(%v) = %q, want error for unsupported kind", tt.value, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Literal(%v) error = %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("Literal(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestHashtable_Deterministic(t *testing.T) {
	m := map[string]any{"z": 1, "a": 2, "m": 3, "b": 4}

	first, err := hashtable(m)
	if err != nil {
		t.Fatalf("hashtable() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		got, err := hashtable(m)
		if err != nil {
			t.Fatalf("hashtable() error = %v", err)
		}
		if got != first {
			t.Fatalf("hashtable() output changed between calls: %q vs %q", first, got)
		}
	}
	if first != "@{'a' = 2; 'b' = 4; 'm' = 3; 'z' = 1}" {
		t.Errorf("hashtable() = %q, want sorted key order", first)
	}
}
