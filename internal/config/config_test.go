package config

import "testing"

func TestResolveSchemeSelectsStratum(t *testing.T) {
	opts := &Options{
		URL:           "stratum+tcp://pool.example.com:3333",
		PayoutAddress: "",
		Algorithm:     "sha256d",
		Threads:       1,
		Retries:       -1,
	}
	cfg, err := Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Protocol != ProtocolStratum {
		t.Errorf("Protocol = %v, want ProtocolStratum", cfg.Protocol)
	}
	if cfg.DialAddr != "pool.example.com:3333" {
		t.Errorf("DialAddr = %q, want pool.example.com:3333", cfg.DialAddr)
	}
}

func TestResolveSchemeSelectsGBT(t *testing.T) {
	opts := &Options{
		URL:           "http://127.0.0.1:8332",
		PayoutAddress: "14cZMQk89mRYQkDEj8Rn25AnGoBi5H6uer",
		Algorithm:     "sha256d",
		Threads:       1,
		Retries:       -1,
	}
	cfg, err := Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Protocol != ProtocolGBT {
		t.Errorf("Protocol = %v, want ProtocolGBT", cfg.Protocol)
	}
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	opts := &Options{URL: "ftp://pool.example.com", Algorithm: "sha256d", Threads: 1}
	if _, err := Resolve(opts); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}

// A missing payout address is not a config-time error: a GBT template may
// supply its own coinbasetxn, and the pool might only ever speak getwork.
// spec.md §7 handles the "no payout address" policy error at runtime in
// internal/rpc, not here.
func TestResolveAllowsMissingPayoutAddressForGBT(t *testing.T) {
	opts := &Options{URL: "http://127.0.0.1:8332", Algorithm: "sha256d", Threads: 1}
	cfg, err := Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.PayoutAddress != "" {
		t.Errorf("PayoutAddress = %q, want empty", cfg.PayoutAddress)
	}
}

func TestResolveGatewayIDSuffixesCredentials(t *testing.T) {
	opts := &Options{
		URL:       "stratum+tcp://pool.example.com:3333",
		UserPass:  "alice:hunter2",
		GatewayID: "rig7",
		Algorithm: "sha256d",
		Threads:   1,
	}
	cfg, err := Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.User != "alice.rig7" {
		t.Errorf("User = %q, want alice.rig7", cfg.User)
	}
	if cfg.Password != "hunter2.rig7" {
		t.Errorf("Password = %q, want hunter2.rig7", cfg.Password)
	}
}

func TestResolveThreadsFloorsAtOne(t *testing.T) {
	opts := &Options{
		URL:           "http://127.0.0.1:8332",
		PayoutAddress: "14cZMQk89mRYQkDEj8Rn25AnGoBi5H6uer",
		Algorithm:     "sha256d",
		Threads:       0,
	}
	cfg, err := Resolve(opts)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Threads != 1 {
		t.Errorf("Threads = %d, want 1", cfg.Threads)
	}
}

func TestResolveRejectsUnknownAlgorithm(t *testing.T) {
	opts := &Options{
		URL:           "http://127.0.0.1:8332",
		PayoutAddress: "14cZMQk89mRYQkDEj8Rn25AnGoBi5H6uer",
		Algorithm:     "sha512",
		Threads:       1,
	}
	if _, err := Resolve(opts); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
