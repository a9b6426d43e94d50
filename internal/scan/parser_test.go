package scan

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sloppy/aria/internal/testutil"
)

func TestParsePortScanFixture(t *testing.T) {
	facets, err := Parse(testutil.Fixture(t, "portscan.xml"))
	require.NoError(t, err)

	assert.Equal(t, 1, facets.HostsUp)
	assert.Equal(t, []OpenPort{
		{Port: 22, Protocol: "tcp", State: "open"},
		{Port: 80, Protocol: "tcp", State: "open"},
		{Port: 631, Protocol: "tcp", State: "open"},
	}, facets.OpenPorts)
	assert.Equal(t, []Service{
		{Name: "ssh", Port: 22, Protocol: "tcp"},
		{Name: "http", Port: 80, Protocol: "tcp"},
		{Name: "ipp", Port: 631, Protocol: "tcp"},
	}, facets.Services)
	// The user and PTR hostnames are the same record.
	assert.Equal(t, []DNSRecord{{Host: "localhost", IP: "127.0.0.1"}}, facets.DNSRecords)
	assert.Empty(t, facets.OSMatches)
}

func TestParseTreeMatchesXML(t *testing.T) {
	fromXML, err := Parse(testutil.Fixture(t, "portscan.xml"))
	require.NoError(t, err)
	fromTree, err := Parse(testutil.Fixture(t, "portscan.json"))
	require.NoError(t, err)

	assert.Equal(t, fromXML, fromTree)
}

func TestParseCountsEveryOpenPortOnce(t *testing.T) {
	const n = 40
	var b strings.Builder
	b.WriteString(`<nmaprun><host><status state="up"/><address addr="10.0.0.7" addrtype="ipv4"/><ports>`)
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<port protocol="tcp" portid="%d"><state state="open"/><service name="svc%d"/></port>`, 1000+i, i)
	}
	// Repeats of already listed ports, including a case variant of the protocol.
	b.WriteString(`<port protocol="tcp" portid="1001"><state state="open"/></port>`)
	b.WriteString(`<port protocol="TCP" portid="1002"><state state="open"/></port>`)
	// Same number on another protocol is a distinct port.
	b.WriteString(`<port protocol="udp" portid="1001"><state state="open|filtered"/></port>`)
	b.WriteString(`<port protocol="tcp" portid="2000"><state state="closed"/></port>`)
	b.WriteString(`</ports></host></nmaprun>`)

	facets, err := Parse([]byte(b.String()))
	require.NoError(t, err)
	require.Len(t, facets.OpenPorts, n+1)

	seen := make(map[portKey]bool)
	for _, p := range facets.OpenPorts {
		key := portKey{port: p.Port, protocol: p.Protocol}
		assert.False(t, seen[key], "duplicate port %d/%s", p.Port, p.Protocol)
		seen[key] = true
	}
	assert.True(t, seen[portKey{port: 1001, protocol: "udp"}])
	assert.False(t, seen[portKey{port: 2000, protocol: "tcp"}])
}

func TestParseSingleItemNormalization(t *testing.T) {
	single := `{"nmaprun": {"host": {
		"status": {"@state": "up"},
		"address": {"@addr": "192.0.2.10", "@addrtype": "ipv4"},
		"hostnames": {"hostname": {"@name": "web.example.test", "@type": "PTR"}},
		"ports": {"port": {"@protocol": "tcp", "@portid": "443", "state": {"@state": "open"}, "service": {"@name": "https"}}},
		"os": {"osmatch": {"@name": "FreeBSD 13.1", "@accuracy": "91"}}
	}}}`
	sequence := `{"nmaprun": {"host": [{
		"status": {"@state": "up"},
		"address": [{"@addr": "192.0.2.10", "@addrtype": "ipv4"}],
		"hostnames": {"hostname": [{"@name": "web.example.test", "@type": "PTR"}]},
		"ports": {"port": [{"@protocol": "tcp", "@portid": "443", "state": {"@state": "open"}, "service": {"@name": "https"}}]},
		"os": {"osmatch": [{"@name": "FreeBSD 13.1", "@accuracy": "91"}]}
	}]}}`

	a, err := Parse([]byte(single))
	require.NoError(t, err)
	b, err := Parse([]byte(sequence))
	require.NoError(t, err)

	assert.Equal(t, b, a)
	assert.Equal(t, []Service{{Name: "https", Port: 443, Protocol: "tcp"}}, a.Services)
	assert.Equal(t, []OSMatch{{Name: "FreeBSD 13.1", Accuracy: 91}}, a.OSMatches)
}

func TestParseIsIdempotent(t *testing.T) {
	raw := testutil.Fixture(t, "versiondetect.xml")
	first, err := Parse(raw)
	require.NoError(t, err)
	second, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseAbsentFacetsAreEmpty(t *testing.T) {
	cases := map[string]string{
		"xml without ports": `<nmaprun><host><status state="up"/><address addr="10.0.0.1" addrtype="ipv4"/></host></nmaprun>`,
		"xml without hosts": `<nmaprun args="nmap -p 1-10 10.0.0.1"></nmaprun>`,
		"tree with nulls":   `{"nmaprun": {"host": {"status": {"@state": "up"}, "hostnames": null, "ports": null}}}`,
		"tree without host": `{"nmaprun": {"@args": "nmap"}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			facets, err := Parse([]byte(doc))
			require.NoError(t, err)
			assert.NotNil(t, facets.OpenPorts)
			assert.Empty(t, facets.OpenPorts)
			assert.Empty(t, facets.Services)
			assert.Empty(t, facets.DNSRecords)
			assert.Empty(t, facets.OSMatches)
		})
	}
}

func TestParseSkipsInvalidPortEntries(t *testing.T) {
	doc := `<nmaprun><host><ports>
		<port protocol="tcp" portid="abc"><state state="open"/></port>
		<port protocol="tcp" portid="70000"><state state="open"/></port>
		<port protocol="tcp" portid="53"><state state="open"/><service name="domain"/></port>
	</ports></host></nmaprun>`
	facets, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []OpenPort{{Port: 53, Protocol: "tcp", State: "open"}}, facets.OpenPorts)
}

func TestParseMalformed(t *testing.T) {
	full := string(testutil.Fixture(t, "portscan.xml"))
	cases := map[string]string{
		"empty":      "   \n",
		"truncated":  full[:len(full)/2],
		"wrong root": `<scanresult><host/></scanresult>`,
		"not a tree": `Starting Nmap 7.94 ( https://nmap.org )`,
		"bad json":   `{"nmaprun": {"host": [}`,
		"json root":  `{"scan": {}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "expected ParseError, got %T", err)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := testutil.TempDir(t)
	path := testutil.WriteFile(t, dir, "saved.xml", testutil.Fixture(t, "osdetect.xml"))

	facets, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Linux 5.0 - 5.14", OSFingerprint(facets))

	_, err = ParseFile(path + ".missing")
	assert.Error(t, err)
}

func TestParsePortRange(t *testing.T) {
	r, err := ParsePortRange("1-1024")
	require.NoError(t, err)
	assert.Equal(t, PortRange{Low: 1, High: 1024}, r)

	r, err = ParsePortRange(" 443 ")
	require.NoError(t, err)
	assert.Equal(t, PortRange{Low: 443, High: 443}, r)
	assert.Equal(t, "443", r.String())

	for _, bad := range []string{"", "0-10", "10-1", "1-65536", "a-b", "-5"} {
		_, err := ParsePortRange(bad)
		assert.ErrorIs(t, err, ErrInvalidRange, bad)
	}
}
