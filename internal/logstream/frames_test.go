package logstream

import "google.golang.org/protobuf/encoding/protowire"

func dopplerLogFrame(msg string, nanos int64, source SourceType) []byte {
	var lm []byte
	lm = protowire.AppendTag(lm, logMessageBodyField, protowire.BytesType)
	lm = protowire.AppendBytes(lm, []byte(msg))
	lm = protowire.AppendTag(lm, 2, protowire.VarintType)
	lm = protowire.AppendVarint(lm, 1)
	lm = protowire.AppendTag(lm, logMessageTimestampField, protowire.VarintType)
	lm = protowire.AppendVarint(lm, uint64(nanos))
	lm = protowire.AppendTag(lm, 4, protowire.BytesType)
	lm = protowire.AppendString(lm, "app-guid")
	lm = protowire.AppendTag(lm, dopplerSourceTypeField, protowire.VarintType)
	lm = protowire.AppendVarint(lm, uint64(source))
	lm = protowire.AppendTag(lm, 6, protowire.BytesType)
	lm = protowire.AppendString(lm, "0")

	return dopplerEnvelope(envelopeTypeLogMessage, lm)
}

func dopplerEnvelope(eventType uint64, logMessage []byte) []byte {
	var env []byte
	env = protowire.AppendTag(env, 1, protowire.BytesType)
	env = protowire.AppendString(env, "doppler")
	env = protowire.AppendTag(env, envelopeEventTypeField, protowire.VarintType)
	env = protowire.AppendVarint(env, eventType)
	env = protowire.AppendTag(env, 6, protowire.VarintType)
	env = protowire.AppendVarint(env, 42)
	if logMessage != nil {
		env = protowire.AppendTag(env, envelopeLogMessageField, protowire.BytesType)
		env = protowire.AppendBytes(env, logMessage)
	}
	return env
}

func loggregatorFrame(msg string, nanos int64, sourceName string) []byte {
	var lm []byte
	lm = protowire.AppendTag(lm, logMessageBodyField, protowire.BytesType)
	lm = protowire.AppendBytes(lm, []byte(msg))
	lm = protowire.AppendTag(lm, 2, protowire.VarintType)
	lm = protowire.AppendVarint(lm, 2)
	lm = protowire.AppendTag(lm, logMessageTimestampField, protowire.VarintType)
	lm = protowire.AppendVarint(lm, protowire.EncodeZigZag(nanos))
	lm = protowire.AppendTag(lm, 4, protowire.BytesType)
	lm = protowire.AppendString(lm, "app-guid")
	lm = protowire.AppendTag(lm, 7, protowire.BytesType)
	lm = protowire.AppendString(lm, "syslog://drain.example.com")
	lm = protowire.AppendTag(lm, loggregatorSourceNameField, protowire.BytesType)
	lm = protowire.AppendString(lm, sourceName)
	return lm
}
