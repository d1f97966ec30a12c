package logstream

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is how Record.String renders timestamps.
const TimestampLayout = "01/02/2006 15:04:05"

const nanosPerMilli = int64(time.Millisecond)

// Record is one application log line, normalized across backends.
type Record struct {
	SourceType string
	Timestamp  time.Time
	Message    string
}

// String renders the record as "[source] - timestamp: message".
func (r Record) String() string {
	return fmt.Sprintf("[%s] - %s: %s", r.SourceType, r.Timestamp.Format(TimestampLayout), r.Message)
}

// SourceType is the Doppler source code of a log line.
type SourceType int32

const (
	SourceCloudController SourceType = iota + 1
	SourceRouter
	SourceUAA
	SourceDEA
	SourceWardenContainer
	SourceLoggregator
)

func (s SourceType) String() string {
	switch s {
	case SourceCloudController:
		return "CLOUD_CONTROLLER"
	case SourceRouter:
		return "ROUTER"
	case SourceUAA:
		return "UAA"
	case SourceDEA:
		return "DEA"
	case SourceWardenContainer:
		return "WARDEN_CONTAINER"
	case SourceLoggregator:
		return "LOGGREGATOR"
	default:
		return strconv.FormatInt(int64(s), 10)
	}
}

// DopplerLogMessage is the log payload of a Doppler envelope. Newer Doppler
// releases send the source as free text; SourceName holds it when present.
type DopplerLogMessage struct {
	Message    []byte
	Timestamp  int64
	SourceType SourceType
	SourceName string
}

// LoggregatorMessage is a legacy Loggregator log message.
type LoggregatorMessage struct {
	Message    string
	Timestamp  int64
	SourceName string
}

// NormalizeDoppler converts a Doppler log payload into a Record.
func NormalizeDoppler(m DopplerLogMessage) Record {
	source := m.SourceName
	if source == "" {
		source = m.SourceType.String()
	}
	return Record{
		SourceType: source,
		Timestamp:  nanosToMillisUTC(m.Timestamp),
		Message:    decodeUTF8(string(m.Message)),
	}
}

// NormalizeLoggregator converts a Loggregator log message into a Record.
func NormalizeLoggregator(m LoggregatorMessage) Record {
	return Record{
		SourceType: m.SourceName,
		Timestamp:  nanosToMillisUTC(m.Timestamp),
		Message:    decodeUTF8(m.Message),
	}
}

// decodeUTF8 replaces invalid UTF-8 sequences with U+FFFD.
func decodeUTF8(raw string) string {
	return strings.ToValidUTF8(raw, "\uFFFD")
}

// nanosToMillisUTC truncates to whole milliseconds, flooring toward negative
// infinity; consumers expect millisecond timestamps.
func nanosToMillisUTC(nanos int64) time.Time {
	ms := nanos / nanosPerMilli
	if nanos%nanosPerMilli < 0 {
		ms--
	}
	return time.UnixMilli(ms).UTC()
}
