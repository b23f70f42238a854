package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactString(t *testing.T) {
	r := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "json token",
			input: `{"access_token": "abc123", "instance_url": "https://x"}`,
			want:  `{"access_token": "[REDACTED]", "instance_url": "https://x"}`,
		},
		{
			name:  "form secret",
			input: "client_secret=s3cr3t&grant_type=client_credentials",
			want:  `client_secret="[REDACTED]"&grant_type=client_credentials`,
		},
		{
			name:  "bearer header",
			input: "Authorization: Bearer eyJhbGciOi.J9.sig",
			want:  "Authorization: Bearer [REDACTED]",
		},
		{
			name:  "soap session",
			input: "<met:sessionId>00Dxx!AQ</met:sessionId>",
			want:  "<met:sessionId>[REDACTED]</met:sessionId>",
		},
		{
			name:  "plain text untouched",
			input: "deploy id 0Af000000000001",
			want:  "deploy id 0Af000000000001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.RedactString(tt.input))
			assert.Equal(t, tt.want, string(r.Redact([]byte(tt.input))))
		})
	}
}

func TestMap(t *testing.T) {
	in := map[string]interface{}{
		"work_dir": "temp_metadata",
		"assistant": map[string]interface{}{
			"client_id":     "codemie",
			"client_secret": "hunter2",
			"api_key":       "",
			"token_url":     "https://login.example.com/token",
		},
		"targets": []interface{}{
			map[string]interface{}{"token": "t"},
		},
	}

	got := Map(in)

	assert.Equal(t, map[string]interface{}{
		"work_dir": "temp_metadata",
		"assistant": map[string]interface{}{
			"client_id":     "codemie",
			"client_secret": Mask,
			"api_key":       "",
			"token_url":     "https://login.example.com/token",
		},
		"targets": []interface{}{
			map[string]interface{}{"token": Mask},
		},
	}, got)
	assert.Equal(t, "hunter2", in["assistant"].(map[string]interface{})["client_secret"], "input untouched")
}
