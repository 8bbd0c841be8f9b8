package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcknowledge(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "Plain word",
			body:     "hello",
			expected: "Message received: hello",
		},
		{
			name:     "Sentence with spaces",
			body:     "Ciao mondo",
			expected: "Message received: Ciao mondo",
		},
		{
			name:     "Empty body",
			body:     "",
			expected: "Message received: ",
		},
		{
			name:     "Newlines and surrounding whitespace are kept",
			body:     "  line one\nline two\r\n",
			expected: "Message received:   line one\nline two\r\n",
		},
		{
			name:     "Unicode is not re-encoded",
			body:     "città è bella 🏠 日本",
			expected: "Message received: città è bella 🏠 日本",
		},
		{
			name:     "Markup is not escaped",
			body:     `<b>"quoted"</b> & 100%`,
			expected: `Message received: <b>"quoted"</b> & 100%`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			req.Equal(tt.expected, Acknowledge(tt.body))
			req.Equal(tt.expected, Message(tt.body).Acknowledgement())
		})
	}
}

func TestAcknowledge_IndependentCalls(t *testing.T) {
	req := require.New(t)

	first := Acknowledge("first")
	second := Acknowledge("second")

	req.Equal("Message received: first", first)
	req.Equal("Message received: second", second)
	req.True(strings.HasPrefix(first, AcknowledgementPrefix))
}
