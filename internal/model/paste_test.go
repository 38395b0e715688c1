package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagInput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want TagInput
	}{
		{"string", `{"tags": "go, web"}`, "go, web"},
		{"list", `{"tags": ["go", "web"]}`, "go web"},
		{"empty list", `{"tags": []}`, ""},
		{"null", `{"tags": null}`, ""},
		{"absent", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in NewPaste
			require.NoError(t, json.Unmarshal([]byte(tt.body), &in))
			assert.Equal(t, tt.want, in.Tags)
		})
	}
}

func TestTagInput_RejectsOtherTypes(t *testing.T) {
	var in NewPaste
	err := json.Unmarshal([]byte(`{"tags": 42}`), &in)
	assert.Error(t, err)
}
