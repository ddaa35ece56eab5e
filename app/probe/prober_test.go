package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"github.com/lysyi3m/work-dash/app/database"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type observation struct {
	rtt       int64
	lastError string
	at        int64
}

type mockTargetStore struct {
	targets    []database.ProbeTarget
	listErr    error
	updateErrs map[int64]error
	updates    map[int64]observation
	calls      []int64
}

func newMockTargetStore(targets ...database.ProbeTarget) *mockTargetStore {
	return &mockTargetStore{
		targets:    targets,
		updateErrs: make(map[int64]error),
		updates:    make(map[int64]observation),
	}
}

func (m *mockTargetStore) ListTargets(ctx context.Context) ([]database.ProbeTarget, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.targets, nil
}

func (m *mockTargetStore) UpdateObservation(ctx context.Context, id int64, rtt int64, lastError string, at int64) error {
	m.calls = append(m.calls, id)
	if err := m.updateErrs[id]; err != nil {
		return err
	}
	m.updates[id] = observation{rtt: rtt, lastError: lastError, at: at}
	return nil
}

type mockPinger struct {
	rtts map[string]time.Duration
	errs map[string]error
}

func (m *mockPinger) Ping(ctx context.Context, ip net.IP) (time.Duration, error) {
	if err := m.errs[ip.String()]; err != nil {
		return 0, err
	}
	return m.rtts[ip.String()], nil
}

func staticLookup(hosts map[string][]net.IP) LookupFunc {
	return func(ctx context.Context, host string) ([]net.IP, error) {
		if ips, ok := hosts[host]; ok {
			return ips, nil
		}
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
}

func newTestProber(store TargetStore, pinger Pinger, at time.Time) *Prober {
	resolver := NewResolverWithLookup(staticLookup(map[string][]net.IP{
		"gateway.lan": {net.ParseIP("192.168.1.1")},
	}))
	prober := NewProber(store, resolver, pinger)
	prober.now = func() time.Time { return at }
	return prober
}

func TestProberRecordsEveryTarget(t *testing.T) {
	store := newMockTargetStore(
		database.ProbeTarget{ID: 1, Label: "Router", Address: "192.168.1.1", RTT: database.RTTNotProbed},
		database.ProbeTarget{ID: 2, Label: "Ghost", Address: "no-such-host.invalid", RTT: database.RTTNotProbed},
		database.ProbeTarget{ID: 3, Label: "Gateway", Address: "gateway.lan", RTT: database.RTTNotProbed},
	)
	pinger := &mockPinger{rtts: map[string]time.Duration{"192.168.1.1": 12*time.Millisecond + 900*time.Microsecond}}
	at := time.Unix(1700000000, 0)

	results, err := newTestProber(store, pinger, at).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	router := store.updates[1]
	if router.rtt != 12 || router.lastError != "" || router.at != 1700000000 {
		t.Errorf("Expected truncated 12ms success, got %+v", router)
	}

	ghost := store.updates[2]
	if ghost.rtt != database.RTTFailed || ghost.lastError == "" || ghost.at != 1700000000 {
		t.Errorf("Expected failed observation with error text, got %+v", ghost)
	}
	var resErr *ResolutionError
	if !errors.As(results[1].Err, &resErr) {
		t.Errorf("Expected ResolutionError, got %v", results[1].Err)
	}

	if gateway := store.updates[3]; gateway.rtt != 12 || gateway.lastError != "" {
		t.Errorf("Expected third target probed after a failure, got %+v", gateway)
	}
}

func TestProberRecordsEchoFailure(t *testing.T) {
	store := newMockTargetStore(database.ProbeTarget{ID: 1, Label: "Router", Address: "192.168.1.1"})
	pinger := &mockPinger{errs: map[string]error{"192.168.1.1": ErrTimeout}}

	results, err := newTestProber(store, pinger, time.Unix(1700000000, 0)).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !errors.Is(results[0].Err, ErrTimeout) {
		t.Errorf("Expected timeout, got %v", results[0].Err)
	}
	got := store.updates[1]
	if got.rtt != database.RTTFailed || got.lastError != ErrTimeout.Error() {
		t.Errorf("Expected timeout observation, got %+v", got)
	}
}

func TestProberOverwritesPreviousObservation(t *testing.T) {
	store := newMockTargetStore(database.ProbeTarget{ID: 1, Label: "Router", Address: "192.168.1.1"})
	pinger := &mockPinger{errs: map[string]error{"192.168.1.1": ErrTimeout}}
	prober := newTestProber(store, pinger, time.Unix(1700000000, 0))

	if _, err := prober.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	pinger.errs = nil
	pinger.rtts = map[string]time.Duration{"192.168.1.1": 3 * time.Millisecond}
	prober.now = func() time.Time { return time.Unix(1700000060, 0) }

	if _, err := prober.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := store.updates[1]
	if got.rtt != 3 || got.lastError != "" || got.at != 1700000060 {
		t.Errorf("Expected latest observation to replace the failure, got %+v", got)
	}
}

func TestProberContinuesAfterPersistFailure(t *testing.T) {
	store := newMockTargetStore(
		database.ProbeTarget{ID: 1, Label: "Router", Address: "192.168.1.1"},
		database.ProbeTarget{ID: 2, Label: "Gateway", Address: "gateway.lan"},
	)
	store.updateErrs[1] = errors.New("database is locked")
	pinger := &mockPinger{rtts: map[string]time.Duration{"192.168.1.1": time.Millisecond}}

	results, err := newTestProber(store, pinger, time.Unix(1700000000, 0)).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if results[0].PersistErr == nil {
		t.Error("Expected persist error on first target")
	}
	if len(store.calls) != 2 {
		t.Errorf("Expected both targets written, got %v", store.calls)
	}
	if _, ok := store.updates[2]; !ok {
		t.Error("Expected second target observation to be stored")
	}
}

func TestProberReturnsListError(t *testing.T) {
	store := newMockTargetStore()
	store.listErr = errors.New("no such table: ping")

	if err := newTestProber(store, &mockPinger{}, time.Now()).Execute(context.Background()); err == nil {
		t.Error("Expected error when targets cannot be listed")
	}
}

func TestICMPPingerDefaults(t *testing.T) {
	pinger := NewICMPPinger(0, -1, false)
	if pinger.timeout != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", pinger.timeout)
	}
	if len(pinger.payload) != DefaultPayloadSize {
		t.Errorf("Expected %d byte payload, got %d", DefaultPayloadSize, len(pinger.payload))
	}

	v4 := pinger.params(net.ParseIP("127.0.0.1"))
	if v4.network != "udp4" || v4.protocol != protocolICMP {
		t.Errorf("Expected unprivileged ICMPv4, got %+v", v4)
	}
	if _, ok := v4.dest.(*net.UDPAddr); !ok {
		t.Errorf("Expected UDP destination, got %T", v4.dest)
	}

	raw := NewICMPPinger(time.Second, 64, true)
	v6 := raw.params(net.ParseIP("::1"))
	if v6.network != "ip6:ipv6-icmp" || v6.protocol != protocolICMPv6 {
		t.Errorf("Expected raw ICMPv6, got %+v", v6)
	}
	if _, ok := v6.dest.(*net.IPAddr); !ok {
		t.Errorf("Expected IP destination, got %T", v6.dest)
	}
}
