package wire

import (
	"fmt"
	gomath "math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/WindLX/fly-ruler/ferr"
)

// ResponseKind is the oneof discriminant of a ServiceCallResponse.
type ResponseKind int32

const (
	ResponseGetModelInfos ResponseKind = iota
	ResponsePushPlane
	ResponseOutput
	ResponseLostPlane
	ResponseNewPlane
	ResponseError
	ResponseAck
)

// PluginInfoTuple mirrors plugin.ModelInfoTuple on the wire.
type PluginInfoTuple struct {
	ID, Name, Author, Version, Description string
	State                                   int32
}

// PlaneState is the wire shape of one plane block Output (spec.md §4.8).
type PlaneState struct {
	State   [12]float64
	Control [4]float64
	Lef     float64
	Extend  [6]float64
}

// PlaneMessage is one timed plane-state publication (spec.md §4.9
// "Output(PlaneMessage)").
type PlaneMessage struct {
	ID    string
	Time  float64
	State PlaneState
}

// Response is the decoded form of a ServiceCallResponse frame.
type Response struct {
	Name string
	Kind ResponseKind

	Infos   []PluginInfoTuple // GetModelInfos
	PlaneID string            // PushPlane
	Message *PlaneMessage     // Output
	Lost    string            // LostPlane
	New     string            // NewPlane
	Err     string            // Error
}

const (
	respFieldName    protowire.Number = 1
	respFieldKind    protowire.Number = 2
	respFieldInfos   protowire.Number = 3
	respFieldPlaneID protowire.Number = 4
	respFieldMessage protowire.Number = 5
	respFieldLost    protowire.Number = 6
	respFieldNew     protowire.Number = 7
	respFieldErr     protowire.Number = 8
)

const (
	infoFieldID          protowire.Number = 1
	infoFieldName        protowire.Number = 2
	infoFieldAuthor      protowire.Number = 3
	infoFieldVersion     protowire.Number = 4
	infoFieldDescription protowire.Number = 5
	infoFieldState       protowire.Number = 6
)

const (
	msgFieldID    protowire.Number = 1
	msgFieldTime  protowire.Number = 2
	msgFieldState protowire.Number = 3
)

const (
	stateFieldVec     protowire.Number = 1 // repeated double, packed: 12 entries
	stateFieldControl protowire.Number = 2 // repeated double, packed: 4 entries
	stateFieldLef     protowire.Number = 3
	stateFieldExtend  protowire.Number = 4 // repeated double, packed: 6 entries
)

func appendPackedDoubles(b []byte, fieldNum protowire.Number, vs []float64) []byte {
	var payload []byte
	for _, v := range vs {
		payload = protowire.AppendFixed64(payload, gomath.Float64bits(v))
	}
	return appendBytes(b, fieldNum, payload)
}

func consumePackedDoubles(payload []byte, n int) ([]float64, error) {
	out := make([]float64, 0, n)
	for len(payload) > 0 {
		v, k := protowire.ConsumeFixed64(payload)
		if k < 0 {
			return nil, &ferr.CodecError{Err: protowire.ParseError(k)}
		}
		out = append(out, gomath.Float64frombits(v))
		payload = payload[k:]
	}
	return out, nil
}

func encodePlaneState(s PlaneState) []byte {
	var b []byte
	b = appendPackedDoubles(b, stateFieldVec, s.State[:])
	b = appendPackedDoubles(b, stateFieldControl, s.Control[:])
	b = appendDouble(b, stateFieldLef, s.Lef)
	b = appendPackedDoubles(b, stateFieldExtend, s.Extend[:])
	return b
}

func decodePlaneState(b []byte) (PlaneState, error) {
	var s PlaneState
	for len(b) > 0 {
		f, n, err := consumeTag(b)
		if err != nil {
			return s, &ferr.CodecError{Err: err}
		}
		b = b[n:]
		switch f.num {
		case stateFieldVec, stateFieldControl, stateFieldExtend:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return s, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			vs, err := consumePackedDoubles(payload, 12)
			if err != nil {
				return s, err
			}
			switch f.num {
			case stateFieldVec:
				copy(s.State[:], vs)
			case stateFieldControl:
				copy(s.Control[:], vs)
			case stateFieldExtend:
				copy(s.Extend[:], vs)
			}
		case stateFieldLef:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return s, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			s.Lef = gomath.Float64frombits(v)
		default:
			var n int
			b, n = skipField(b, f.typ)
			if n < 0 {
				return s, &ferr.CodecError{Err: fmt.Errorf("fly-ruler: malformed plane state field")}
			}
		}
	}
	return s, nil
}

func encodePlaneMessage(m *PlaneMessage) []byte {
	var b []byte
	b = appendString(b, msgFieldID, m.ID)
	b = appendDouble(b, msgFieldTime, m.Time)
	b = appendBytes(b, msgFieldState, encodePlaneState(m.State))
	return b
}

func decodePlaneMessage(b []byte) (*PlaneMessage, error) {
	m := &PlaneMessage{}
	for len(b) > 0 {
		f, n, err := consumeTag(b)
		if err != nil {
			return nil, &ferr.CodecError{Err: err}
		}
		b = b[n:]
		switch f.num {
		case msgFieldID:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			m.ID = s
		case msgFieldTime:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			m.Time = gomath.Float64frombits(v)
		case msgFieldState:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			st, err := decodePlaneState(payload)
			if err != nil {
				return nil, err
			}
			m.State = st
		default:
			var n int
			b, n = skipField(b, f.typ)
			if n < 0 {
				return nil, &ferr.CodecError{Err: fmt.Errorf("fly-ruler: malformed plane message field")}
			}
		}
	}
	return m, nil
}

func encodeInfo(info PluginInfoTuple) []byte {
	var b []byte
	b = appendString(b, infoFieldID, info.ID)
	b = appendString(b, infoFieldName, info.Name)
	b = appendString(b, infoFieldAuthor, info.Author)
	b = appendString(b, infoFieldVersion, info.Version)
	b = appendString(b, infoFieldDescription, info.Description)
	b = appendVarint(b, infoFieldState, uint64(info.State))
	return b
}

func decodeInfo(b []byte) (PluginInfoTuple, error) {
	var info PluginInfoTuple
	for len(b) > 0 {
		f, n, err := consumeTag(b)
		if err != nil {
			return info, &ferr.CodecError{Err: err}
		}
		b = b[n:]
		switch f.num {
		case infoFieldID, infoFieldName, infoFieldAuthor, infoFieldVersion, infoFieldDescription:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return info, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			switch f.num {
			case infoFieldID:
				info.ID = s
			case infoFieldName:
				info.Name = s
			case infoFieldAuthor:
				info.Author = s
			case infoFieldVersion:
				info.Version = s
			case infoFieldDescription:
				info.Description = s
			}
		case infoFieldState:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return info, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			info.State = int32(v)
		default:
			var n int
			b, n = skipField(b, f.typ)
			if n < 0 {
				return info, &ferr.CodecError{Err: fmt.Errorf("fly-ruler: malformed info field")}
			}
		}
	}
	return info, nil
}

// EncodeResponse serialises a Response as a ServiceCallResponse message.
func EncodeResponse(r *Response) []byte {
	var b []byte
	b = appendString(b, respFieldName, r.Name)
	b = appendVarint(b, respFieldKind, uint64(r.Kind))
	for _, info := range r.Infos {
		b = appendBytes(b, respFieldInfos, encodeInfo(info))
	}
	if r.PlaneID != "" {
		b = appendString(b, respFieldPlaneID, r.PlaneID)
	}
	if r.Message != nil {
		b = appendBytes(b, respFieldMessage, encodePlaneMessage(r.Message))
	}
	if r.Lost != "" {
		b = appendString(b, respFieldLost, r.Lost)
	}
	if r.New != "" {
		b = appendString(b, respFieldNew, r.New)
	}
	if r.Err != "" {
		b = appendString(b, respFieldErr, r.Err)
	}
	return b
}

// DecodeResponse parses a ServiceCallResponse message.
func DecodeResponse(b []byte) (*Response, error) {
	r := &Response{}
	for len(b) > 0 {
		f, n, err := consumeTag(b)
		if err != nil {
			return nil, &ferr.CodecError{Err: err}
		}
		b = b[n:]
		switch f.num {
		case respFieldName, respFieldPlaneID, respFieldLost, respFieldNew, respFieldErr:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			switch f.num {
			case respFieldName:
				r.Name = s
			case respFieldPlaneID:
				r.PlaneID = s
			case respFieldLost:
				r.Lost = s
			case respFieldNew:
				r.New = s
			case respFieldErr:
				r.Err = s
			}
		case respFieldKind:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			r.Kind = ResponseKind(v)
		case respFieldInfos:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			info, err := decodeInfo(payload)
			if err != nil {
				return nil, err
			}
			r.Infos = append(r.Infos, info)
		case respFieldMessage:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, &ferr.CodecError{Err: protowire.ParseError(n)}
			}
			b = b[n:]
			m, err := decodePlaneMessage(payload)
			if err != nil {
				return nil, err
			}
			r.Message = m
		default:
			var n int
			b, n = skipField(b, f.typ)
			if n < 0 {
				return nil, &ferr.CodecError{Err: fmt.Errorf("fly-ruler: malformed response field")}
			}
		}
	}
	return r, nil
}
