package logstream

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Doppler envelope field numbers.
const (
	envelopeEventTypeField  protowire.Number = 2
	envelopeLogMessageField protowire.Number = 8

	envelopeTypeLogMessage = 5
)

// Log message field numbers shared by both formats.
const (
	logMessageBodyField        protowire.Number = 1
	logMessageTimestampField   protowire.Number = 3
	dopplerSourceTypeField     protowire.Number = 5
	loggregatorSourceNameField protowire.Number = 8
)

// decodeDopplerEnvelope decodes one Doppler frame. ok is false for envelopes
// that carry something other than a log message.
func decodeDopplerEnvelope(b []byte) (msg DopplerLogMessage, ok bool, err error) {
	var (
		eventType uint64
		payload   []byte
		hasLog    bool
	)
	err = walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == envelopeEventTypeField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			eventType = v
			return n, nil
		case num == envelopeLogMessageField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			payload = v
			hasLog = true
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return DopplerLogMessage{}, false, fmt.Errorf("decode doppler envelope: %w", err)
	}
	if eventType != envelopeTypeLogMessage {
		return DopplerLogMessage{}, false, nil
	}
	if !hasLog {
		return DopplerLogMessage{}, false, fmt.Errorf("decode doppler envelope: log message event without payload")
	}

	msg, err = decodeDopplerLogMessage(payload)
	if err != nil {
		return DopplerLogMessage{}, false, err
	}
	return msg, true, nil
}

func decodeDopplerLogMessage(b []byte) (DopplerLogMessage, error) {
	var (
		msg                   DopplerLogMessage
		hasBody, hasTimestamp bool
	)
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == logMessageBodyField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			msg.Message = append([]byte(nil), v...)
			hasBody = true
			return n, nil
		case num == logMessageTimestampField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			msg.Timestamp = int64(v)
			hasTimestamp = true
			return n, nil
		case num == dopplerSourceTypeField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			msg.SourceType = SourceType(int32(v))
			return n, nil
		case num == dopplerSourceTypeField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			msg.SourceName = string(v)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return DopplerLogMessage{}, fmt.Errorf("decode doppler log message: %w", err)
	}
	if !hasBody || !hasTimestamp {
		return DopplerLogMessage{}, fmt.Errorf("decode doppler log message: missing message or timestamp")
	}
	return msg, nil
}

func decodeLoggregatorMessage(b []byte) (LoggregatorMessage, error) {
	var (
		msg                   LoggregatorMessage
		hasBody, hasTimestamp bool
	)
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == logMessageBodyField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			msg.Message = string(v)
			hasBody = true
			return n, nil
		case num == logMessageTimestampField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			msg.Timestamp = protowire.DecodeZigZag(v)
			hasTimestamp = true
			return n, nil
		case num == loggregatorSourceNameField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			msg.SourceName = string(v)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return LoggregatorMessage{}, fmt.Errorf("decode loggregator message: %w", err)
	}
	if !hasBody || !hasTimestamp {
		return LoggregatorMessage{}, fmt.Errorf("decode loggregator message: missing message or timestamp")
	}
	return msg, nil
}

// walkFields calls fn for every field in b. fn consumes the field value and
// returns how many bytes it used, or a negative protowire error code.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}
