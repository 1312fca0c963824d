package schemas

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `{
  "type": "object",
  "properties": {
    "url": {"type": "string"},
    "delay_seconds": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

func TestValidateJSONString(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
		field   string
	}{
		{
			name: "valid document",
			doc:  `{"url": "https://example.edu", "delay_seconds": 1}`,
		},
		{
			name:    "wrong type",
			doc:     `{"delay_seconds": "one"}`,
			wantErr: true,
			field:   "delay_seconds",
		},
		{
			name:    "negative delay",
			doc:     `{"delay_seconds": -1}`,
			wantErr: true,
			field:   "delay_seconds",
		},
		{
			name:    "unknown field",
			doc:     `{"pasword": "typo"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSONString(testSchema, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.field == "" {
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %T, want *ValidationError", err)
			}
			if !strings.Contains(ve.Error(), tt.field) {
				t.Errorf("error %q does not name field %q", ve.Error(), tt.field)
			}
		})
	}
}

func TestValidateJSONStringBadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": nonsense}`, `{}`)
	var le *SchemaLoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %T, want *SchemaLoadError", err)
	}
	if le.Unwrap() == nil {
		t.Error("load error carries no cause")
	}
}
