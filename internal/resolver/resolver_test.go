package resolver

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/miekg/dns"

	"github.com/sluice-net/sluice/internal/socks5"
)

func TestSystemResolveLiterals(t *testing.T) {
	tests := []struct {
		name   string
		target socks5.Target
		want   netip.AddrPort
	}{
		{
			name:   "ipv4",
			target: socks5.Target{Type: socks5.AddrTypeIPv4, Raw: []byte{10, 1, 2, 3}, Port: 8080},
			want:   netip.MustParseAddrPort("10.1.2.3:8080"),
		},
		{
			name: "ipv6",
			target: socks5.Target{
				Type: socks5.AddrTypeIPv6,
				Raw:  []byte{0x20, 0x01, 0x0D, 0xB8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
				Port: 443,
			},
			want: netip.MustParseAddrPort("[2001:db8::1]:443"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := System{}.Resolve(context.Background(), tt.target)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Resolve() = %v, want [%v]", got, tt.want)
			}
		})
	}
}

func TestSystemResolveBadLiteral(t *testing.T) {
	target := socks5.Target{Type: socks5.AddrTypeIPv4, Raw: []byte{1, 2, 3}, Port: 80}
	if _, err := (System{}).Resolve(context.Background(), target); err == nil {
		t.Fatal("Resolve() succeeded with a 3-byte ipv4 address")
	}
}

func TestSystemResolveDomain(t *testing.T) {
	target := socks5.Target{Type: socks5.AddrTypeDomain, Raw: []byte("localhost"), Port: 80}

	endpoints, err := System{}.Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(endpoints) == 0 {
		t.Fatal("Resolve() returned no endpoints for localhost")
	}
	for _, ep := range endpoints {
		if !ep.Addr().IsLoopback() {
			t.Errorf("Resolve() endpoint %v is not loopback", ep)
		}
		if ep.Port() != 80 {
			t.Errorf("Resolve() endpoint port = %d, want 80", ep.Port())
		}
	}
}

// startDNSServer serves A and AAAA records from the given name to address
// map on a loopback UDP port and returns its address.
func startDNSServer(t *testing.T, records map[string][]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}

	mux := dns.NewServeMux()
	mux.HandleFunc(".", func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		q := req.Question[0]
		for _, text := range records[q.Name] {
			ip := net.ParseIP(text)
			if ip4 := ip.To4(); ip4 != nil && q.Qtype == dns.TypeA {
				resp.Answer = append(resp.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   ip4,
				})
			} else if ip4 == nil && q.Qtype == dns.TypeAAAA {
				resp.Answer = append(resp.Answer, &dns.AAAA{
					Hdr:  dns.RR_Header{Name: q.Name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 60},
					AAAA: ip,
				})
			}
		}
		_ = w.WriteMsg(resp)
	})

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSResolveDomain(t *testing.T) {
	server := startDNSServer(t, map[string][]string{
		"echo.test.": {"192.0.2.10", "192.0.2.11", "2001:db8::a"},
	})

	r := &DNS{Server: server}
	target := socks5.Target{Type: socks5.AddrTypeDomain, Raw: []byte("echo.test"), Port: 8080}
	endpoints, err := r.Resolve(context.Background(), target)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := []netip.AddrPort{
		netip.MustParseAddrPort("192.0.2.10:8080"),
		netip.MustParseAddrPort("192.0.2.11:8080"),
		netip.MustParseAddrPort("[2001:db8::a]:8080"),
	}
	if len(endpoints) != len(want) {
		t.Fatalf("Resolve() = %v, want %v", endpoints, want)
	}
	for i := range want {
		if endpoints[i] != want[i] {
			t.Errorf("Resolve()[%d] = %v, want %v", i, endpoints[i], want[i])
		}
	}
}

func TestDNSResolveNoRecords(t *testing.T) {
	server := startDNSServer(t, nil)

	r := &DNS{Server: server}
	target := socks5.Target{Type: socks5.AddrTypeDomain, Raw: []byte("missing.test"), Port: 80}
	if _, err := r.Resolve(context.Background(), target); !errors.Is(err, ErrNoAddresses) {
		t.Fatalf("Resolve() error = %v, want ErrNoAddresses", err)
	}
}

func TestDNSResolveLiteralSkipsQuery(t *testing.T) {
	// Blackhole server address; literal targets must never query it.
	r := &DNS{Server: "192.0.2.1:53"}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	target := socks5.Target{Type: socks5.AddrTypeIPv4, Raw: []byte{198, 51, 100, 7}, Port: 443}
	endpoints, err := r.Resolve(ctx, target)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := netip.MustParseAddrPort("198.51.100.7:443"); len(endpoints) != 1 || endpoints[0] != want {
		t.Errorf("Resolve() = %v, want [%v]", endpoints, want)
	}
}
