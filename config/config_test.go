package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultHasSaneTrimTarget(t *testing.T) {
	c := Default()
	if c.PlaneDefault.Altitude <= 0 || c.PlaneDefault.Velocity <= 0 {
		t.Fatalf("expected positive default altitude/velocity, got %+v", c.PlaneDefault)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Default()
	c.ListenAddr = ":9000"
	c.Compress = true

	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got Config
	if err := Decode(&buf, &got); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ListenAddr != ":9000" || !got.Compress {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.PlaneDefault.Altitude != c.PlaneDefault.Altitude {
		t.Fatalf("plane defaults lost in round trip: %+v", got.PlaneDefault)
	}
}

func TestDecodeMergesOntoDefaults(t *testing.T) {
	c := Default()
	r := strings.NewReader(`{"listen_addr": ":1234"}`)
	if err := Decode(r, &c); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if c.ListenAddr != ":1234" {
		t.Fatalf("expected overridden listen_addr, got %s", c.ListenAddr)
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected untouched default log level, got %s", c.Log.Level)
	}
}
