package wire

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("hello fly-ruler")
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	cases := []*Request{
		{Name: "r1", Kind: RequestGetModelInfos},
		{Name: "r2", Kind: RequestPushPlane, ModelID: "f16", PlaneInitCfg: &InitCfg{
			Altitude:    15000,
			Velocity:    500,
			Condition:   1,
			Deflection:  [3]float64{0.1, -0.2, 0},
			MaxFunEvals: 50000,
			MaxIter:     10000,
			TolFun:      1e-6,
			TolX:        1e-6,
		}},
		{Name: "r3", Kind: RequestSendControl, PlaneID: "abc", Control: &Control{
			Thrust: 5000, Elevator: -0.5, Aileron: 0.01, Rudder: 0,
		}},
		{Name: "r4", Kind: RequestRemovePlane, PlaneID: "abc"},
		{Name: "r5", Kind: RequestTick},
	}
	for _, want := range cases {
		enc := EncodeRequest(want)
		got, err := DecodeRequest(enc)
		if err != nil {
			t.Fatalf("DecodeRequest: %v", err)
		}
		if got.Name != want.Name || got.Kind != want.Kind || got.ModelID != want.ModelID || got.PlaneID != want.PlaneID {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
		}
		if (want.Control == nil) != (got.Control == nil) {
			t.Fatalf("control presence mismatch")
		}
		if want.Control != nil && *got.Control != *want.Control {
			t.Fatalf("control mismatch: got %+v, want %+v", got.Control, want.Control)
		}
		if (want.PlaneInitCfg == nil) != (got.PlaneInitCfg == nil) {
			t.Fatalf("init cfg presence mismatch")
		}
		if want.PlaneInitCfg != nil && *got.PlaneInitCfg != *want.PlaneInitCfg {
			t.Fatalf("init cfg mismatch: got %+v, want %+v", got.PlaneInitCfg, want.PlaneInitCfg)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	resp := &Response{
		Name: "resp1",
		Kind: ResponseOutput,
		Message: &PlaneMessage{
			ID:   "abc",
			Time: 12.5,
			State: PlaneState{
				State:   [12]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
				Control: [4]float64{1000, 0.1, 0.2, 0.3},
				Lef:     7.5,
				Extend:  [6]float64{0.1, 0.2, 0.3, 0.8, 500, 1700},
			},
		},
	}
	enc := EncodeResponse(resp)
	got, err := DecodeResponse(enc)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if got.Name != resp.Name || got.Kind != resp.Kind {
		t.Fatalf("mismatch: %+v", got)
	}
	if got.Message == nil || *got.Message != *resp.Message {
		t.Fatalf("message mismatch: got %+v, want %+v", got.Message, resp.Message)
	}

	infoResp := &Response{
		Name: "resp2",
		Kind: ResponseGetModelInfos,
		Infos: []PluginInfoTuple{
			{ID: "f16", Name: "F-16", Author: "x", Version: "1.0", Description: "test", State: 1},
		},
	}
	enc = EncodeResponse(infoResp)
	got, err = DecodeResponse(enc)
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if len(got.Infos) != 1 || got.Infos[0] != infoResp.Infos[0] {
		t.Fatalf("infos mismatch: got %+v", got.Infos)
	}
}
