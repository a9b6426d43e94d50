package assistant

import (
	"strconv"
	"strings"
)

// Kind is the classified meaning of an input line.
type Kind int

const (
	KindEmpty Kind = iota
	KindSearch
	KindModelQuery
	KindNetworkScan
	KindHistory
	KindQuit
	KindUsage
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindModelQuery:
		return "gpt"
	case KindNetworkScan:
		return "nmap"
	case KindHistory:
		return "history"
	case KindQuit:
		return "quit"
	case KindUsage:
		return "usage"
	case KindUnrecognized:
		return "unrecognized"
	default:
		return "empty"
	}
}

const (
	prefixSearch  = "!search"
	prefixModel   = "!gpt"
	prefixScan    = "!nmap"
	prefixHistory = "!history"
	quitWord      = "quit"
)

var usageHints = map[string]string{
	prefixSearch:  "usage: !search <query>",
	prefixModel:   "usage: !gpt <prompt>",
	prefixScan:    "usage: !nmap <target>",
	prefixHistory: "usage: !history [count]",
}

// Intent is the result of classifying one line. Argument is the trimmed
// remainder after the prefix; for Usage it names the incomplete command.
type Intent struct {
	Kind     Kind
	Argument string
	Limit    int
	Raw      string
}

// Classify maps a line to an intent. Prefixes must be followed by
// whitespace or the end of the line. Text without a prefix is a model query
// when routeUnprefixed is set and unrecognized otherwise. Unrecognized input
// also returns a *ClassificationError describing it.
func Classify(line string, routeUnprefixed bool) (Intent, error) {
	raw := strings.TrimSpace(line)
	in := Intent{Raw: raw}
	if raw == "" {
		in.Kind = KindEmpty
		return in, nil
	}
	if strings.EqualFold(raw, quitWord) {
		in.Kind = KindQuit
		return in, nil
	}

	if !strings.HasPrefix(raw, "!") {
		if routeUnprefixed {
			in.Kind = KindModelQuery
			in.Argument = raw
			return in, nil
		}
		in.Kind = KindUnrecognized
		return in, &ClassificationError{Input: raw, Reason: "no command prefix"}
	}

	word, rest := splitWord(raw)
	prefix := strings.ToLower(word)
	switch prefix {
	case prefixSearch:
		in.Kind = KindSearch
	case prefixModel:
		in.Kind = KindModelQuery
	case prefixScan:
		in.Kind = KindNetworkScan
	case prefixHistory:
		in.Kind = KindHistory
		if rest == "" {
			return in, nil
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return Intent{Kind: KindUsage, Argument: prefix, Raw: raw}, nil
		}
		in.Limit = n
		return in, nil
	default:
		in.Kind = KindUnrecognized
		return in, &ClassificationError{Input: raw, Reason: "unknown command " + word}
	}

	if rest == "" {
		return Intent{Kind: KindUsage, Argument: prefix, Raw: raw}, nil
	}
	in.Argument = rest
	return in, nil
}

// splitWord splits off the first whitespace-delimited word.
func splitWord(s string) (string, string) {
	i := strings.IndexFunc(s, isSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// UsageHint returns the usage line for a command prefix.
func UsageHint(prefix string) string {
	if hint, ok := usageHints[prefix]; ok {
		return hint
	}
	return "commands: !search <query>, !gpt <prompt>, !nmap <target>, !history [count], quit"
}
