// mdns-query sends one multicast DNS query and prints every answer for the
// queried name (every answer at all for an ANY query) received before the
// timeout. Useful for poking at what herald (or anything else on the link) is
// advertising.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/herald-dns/herald/internal/dns"
	"github.com/herald-dns/herald/internal/transport"
)

func main() {
	var (
		name    = flag.String("name", "_services._dns-sd._udp.local", "Query name")
		qtype   = flag.Int("qtype", int(dns.TypePTR), "Query type (numeric, PTR=12, ANY=255)")
		timeout = flag.Duration("timeout", 3*time.Second, "How long to collect answers")
		quiet   = flag.Bool("quiet", false, "Suppress output (exit status indicates answers)")
	)
	flag.Parse()

	n, err := query(*name, dns.RecordType(*qtype), *timeout, *quiet)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "mdns-query error: %v\n", err)
		}
		os.Exit(1)
	}
	if n == 0 {
		os.Exit(1)
	}
}

func query(name string, qtype dns.RecordType, timeout time.Duration, quiet bool) (int, error) {
	conn, err := transport.Listen(nil)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	q := dns.Packet{
		Questions: []dns.Question{{Key: dns.NewKey(dns.ClassIN, qtype, name)}},
	}
	wire, err := q.Marshal()
	if err != nil {
		return 0, err
	}
	if err := conn.Send(ctx, wire, nil); err != nil {
		return 0, err
	}

	seen := make(map[string]struct{})
	for {
		d, err := conn.Receive(ctx)
		if err != nil {
			break // timeout or cancellation ends collection
		}
		p, err := dns.ParseMessageBounded(d.Payload)
		if err != nil || !p.IsResponse() {
			continue
		}
		for _, rr := range p.Answers {
			if !dns.NameEqual(rr.Key.Name, name) && qtype != dns.TypeANY {
				continue
			}
			seen[rr.String()] = struct{}{}
		}
	}

	if !quiet {
		lines := make([]string, 0, len(seen))
		for s := range seen {
			lines = append(lines, s)
		}
		sort.Strings(lines)
		for _, s := range lines {
			fmt.Println(s)
		}
	}
	return len(seen), nil
}
