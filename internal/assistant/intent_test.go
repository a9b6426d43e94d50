package assistant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		line string
		want Intent
	}{
		{"", Intent{Kind: KindEmpty}},
		{"   \t", Intent{Kind: KindEmpty}},
		{"quit", Intent{Kind: KindQuit, Raw: "quit"}},
		{"  QUIT ", Intent{Kind: KindQuit, Raw: "QUIT"}},
		{"!search weather today", Intent{Kind: KindSearch, Argument: "weather today", Raw: "!search weather today"}},
		{"!gpt   tell me a joke ", Intent{Kind: KindModelQuery, Argument: "tell me a joke", Raw: "!gpt   tell me a joke"}},
		{"!nmap 127.0.0.1", Intent{Kind: KindNetworkScan, Argument: "127.0.0.1", Raw: "!nmap 127.0.0.1"}},
		{"!NMAP\tscanme.example", Intent{Kind: KindNetworkScan, Argument: "scanme.example", Raw: "!NMAP\tscanme.example"}},
		{"!history", Intent{Kind: KindHistory, Raw: "!history"}},
		{"!history 5", Intent{Kind: KindHistory, Limit: 5, Raw: "!history 5"}},
		{"!history lots", Intent{Kind: KindUsage, Argument: "!history", Raw: "!history lots"}},
		{"!search", Intent{Kind: KindUsage, Argument: "!search", Raw: "!search"}},
		{"!nmap   ", Intent{Kind: KindUsage, Argument: "!nmap", Raw: "!nmap"}},
		{"what time is it", Intent{Kind: KindModelQuery, Argument: "what time is it", Raw: "what time is it"}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := Classify(tc.line, true)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	for _, line := range []string{"!weather today", "!searchweather", "!", "!gpt?"} {
		got, err := Classify(line, true)
		assert.Equal(t, KindUnrecognized, got.Kind, line)
		var classErr *ClassificationError
		assert.True(t, errors.As(err, &classErr), line)
	}

	got, err := Classify("hello there", false)
	assert.Equal(t, KindUnrecognized, got.Kind)
	assert.Error(t, err)
}

func TestUsageHint(t *testing.T) {
	assert.Equal(t, "usage: !nmap <target>", UsageHint("!nmap"))
	assert.Contains(t, UsageHint(""), "!search <query>")
}
