package wire

import (
	"fmt"
	gomath "math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/WindLX/fly-ruler/ferr"
)

// RequestKind is the oneof discriminant of a ServiceCall (spec.md §4.9).
type RequestKind int32

const (
	RequestGetModelInfos RequestKind = iota
	RequestPushPlane
	RequestSendControl
	RequestRemovePlane
	RequestTick
)

// Control is the wire shape of a 4-scalar control input.
type Control struct {
	Thrust, Elevator, Aileron, Rudder float64
}

// InitCfg is a plane's trim target plus optional overrides (SPEC_FULL.md
// §12: (altitude, velocity) trim inputs, condition selector, scripted
// deflection, Nelder-Mead overrides).
type InitCfg struct {
	Altitude, Velocity   float64
	Condition            int32
	Deflection           [3]float64
	MaxFunEvals, MaxIter int32
	TolFun, TolX         float64
}

// Request is the decoded form of a ServiceCall frame.
type Request struct {
	Name string
	Kind RequestKind

	ModelID       string    // PushPlane
	PlaneInitCfg  *InitCfg  // PushPlane, optional
	PlaneID       string    // SendControl, RemovePlane
	Control       *Control  // SendControl
}

const (
	reqFieldName         protowire.Number = 1
	reqFieldKind         protowire.Number = 2
	reqFieldModelID      protowire.Number = 3
	reqFieldInitCfg      protowire.Number = 4
	reqFieldPlaneID      protowire.Number = 5
	reqFieldControl      protowire.Number = 6
)

const (
	ctrlFieldThrust   protowire.Number = 1
	ctrlFieldElevator protowire.Number = 2
	ctrlFieldAileron  protowire.Number = 3
	ctrlFieldRudder   protowire.Number = 4
)

const (
	cfgFieldAltitude    protowire.Number = 1
	cfgFieldVelocity    protowire.Number = 2
	cfgFieldCondition   protowire.Number = 3
	cfgFieldDeflection0 protowire.Number = 4
	cfgFieldDeflection1 protowire.Number = 5
	cfgFieldDeflection2 protowire.Number = 6
	cfgFieldMaxFunEvals protowire.Number = 7
	cfgFieldMaxIter     protowire.Number = 8
	cfgFieldTolFun      protowire.Number = 9
	cfgFieldTolX        protowire.Number = 10
)

func encodeControl(c *Control) []byte {
	var b []byte
	b = appendDouble(b, ctrlFieldThrust, c.Thrust)
	b = appendDouble(b, ctrlFieldElevator, c.Elevator)
	b = appendDouble(b, ctrlFieldAileron, c.Aileron)
	b = appendDouble(b, ctrlFieldRudder, c.Rudder)
	return b
}

func decodeControl(b []byte) (*Control, error) {
	c := &Control{}
	for len(b) > 0 {
		f, n, err := consumeTag(b)
		if err != nil {
			return nil, &ferr.CodecError{Err: err}
		}
		b = b[n:]
		switch f.num {
		case ctrlFieldThrust, ctrlFieldElevator, ctrlFieldAileron, ctrlFieldRudder:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			fv := float64FromBits(v)
			switch f.num {
			case ctrlFieldThrust:
				c.Thrust = fv
			case ctrlFieldElevator:
				c.Elevator = fv
			case ctrlFieldAileron:
				c.Aileron = fv
			case ctrlFieldRudder:
				c.Rudder = fv
			}
		default:
			var n int
			b, n = skipField(b, f.typ)
			if n < 0 {
				return nil, &ferr.CodecError{Err: fmt.Errorf("fly-ruler: malformed control field")}
			}
		}
	}
	return c, nil
}

func encodeInitCfg(c *InitCfg) []byte {
	var b []byte
	b = appendDouble(b, cfgFieldAltitude, c.Altitude)
	b = appendDouble(b, cfgFieldVelocity, c.Velocity)
	b = appendVarint(b, cfgFieldCondition, uint64(c.Condition))
	b = appendDouble(b, cfgFieldDeflection0, c.Deflection[0])
	b = appendDouble(b, cfgFieldDeflection1, c.Deflection[1])
	b = appendDouble(b, cfgFieldDeflection2, c.Deflection[2])
	b = appendVarint(b, cfgFieldMaxFunEvals, uint64(c.MaxFunEvals))
	b = appendVarint(b, cfgFieldMaxIter, uint64(c.MaxIter))
	b = appendDouble(b, cfgFieldTolFun, c.TolFun)
	b = appendDouble(b, cfgFieldTolX, c.TolX)
	return b
}

func decodeInitCfg(b []byte) (*InitCfg, error) {
	c := &InitCfg{}
	for len(b) > 0 {
		f, n, err := consumeTag(b)
		if err != nil {
			return nil, &ferr.CodecError{Err: err}
		}
		b = b[n:]
		switch f.num {
		case cfgFieldCondition, cfgFieldMaxFunEvals, cfgFieldMaxIter:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			switch f.num {
			case cfgFieldCondition:
				c.Condition = int32(v)
			case cfgFieldMaxFunEvals:
				c.MaxFunEvals = int32(v)
			case cfgFieldMaxIter:
				c.MaxIter = int32(v)
			}
		case cfgFieldAltitude, cfgFieldVelocity, cfgFieldDeflection0, cfgFieldDeflection1, cfgFieldDeflection2, cfgFieldTolFun, cfgFieldTolX:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			fv := float64FromBits(v)
			switch f.num {
			case cfgFieldAltitude:
				c.Altitude = fv
			case cfgFieldVelocity:
				c.Velocity = fv
			case cfgFieldDeflection0:
				c.Deflection[0] = fv
			case cfgFieldDeflection1:
				c.Deflection[1] = fv
			case cfgFieldDeflection2:
				c.Deflection[2] = fv
			case cfgFieldTolFun:
				c.TolFun = fv
			case cfgFieldTolX:
				c.TolX = fv
			}
		default:
			var n int
			b, n = skipField(b, f.typ)
			if n < 0 {
				return nil, &ferr.CodecError{Err: fmt.Errorf("fly-ruler: malformed init cfg field")}
			}
		}
	}
	return c, nil
}

// EncodeRequest serialises a Request as a ServiceCall message.
func EncodeRequest(r *Request) []byte {
	var b []byte
	b = appendString(b, reqFieldName, r.Name)
	b = appendVarint(b, reqFieldKind, uint64(r.Kind))
	if r.ModelID != "" {
		b = appendString(b, reqFieldModelID, r.ModelID)
	}
	if r.PlaneInitCfg != nil {
		b = appendBytes(b, reqFieldInitCfg, encodeInitCfg(r.PlaneInitCfg))
	}
	if r.PlaneID != "" {
		b = appendString(b, reqFieldPlaneID, r.PlaneID)
	}
	if r.Control != nil {
		b = appendBytes(b, reqFieldControl, encodeControl(r.Control))
	}
	return b
}

// DecodeRequest parses a ServiceCall message.
func DecodeRequest(b []byte) (*Request, error) {
	r := &Request{}
	for len(b) > 0 {
		f, n, err := consumeTag(b)
		if err != nil {
			return nil, &ferr.CodecError{Err: err}
		}
		b = b[n:]
		switch f.num {
		case reqFieldName, reqFieldModelID, reqFieldPlaneID:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			switch f.num {
			case reqFieldName:
				r.Name = s
			case reqFieldModelID:
				r.ModelID = s
			case reqFieldPlaneID:
				r.PlaneID = s
			}
		case reqFieldKind:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			r.Kind = RequestKind(v)
		case reqFieldInitCfg:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			cfg, err := decodeInitCfg(payload)
			if err != nil {
				return nil, err
			}
			r.PlaneInitCfg = cfg
		case reqFieldControl:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			c, err := decodeControl(payload)
			if err != nil {
				return nil, err
			}
			r.Control = c
		default:
			var n int
			b, n = skipField(b, f.typ)
			if n < 0 {
				return nil, &ferr.CodecError{Err: fmt.Errorf("fly-ruler: malformed request field")}
			}
		}
	}
	return r, nil
}

func skipField(b []byte, typ protowire.Type) ([]byte, int) {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return b, n
	}
	return b[n:], n
}

func float64FromBits(v uint64) float64 {
	return gomath.Float64frombits(v)
}
