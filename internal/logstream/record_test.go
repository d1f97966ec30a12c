package logstream

import (
	"testing"
	"time"
)

func TestNormalizeTruncatesToMilliseconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		nanos int64
		want  time.Time
	}{
		{name: "epoch", nanos: 0, want: time.Unix(0, 0).UTC()},
		{name: "just below first millisecond", nanos: 999_999, want: time.Unix(0, 0).UTC()},
		{name: "exactly one millisecond", nanos: 1_000_000, want: time.UnixMilli(1).UTC()},
		{name: "sub-millisecond remainder dropped", nanos: 1_700_000_000_123_456_789, want: time.UnixMilli(1_700_000_000_123).UTC()},
		{name: "negative floors", nanos: -1, want: time.UnixMilli(-1).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := NormalizeDoppler(DopplerLogMessage{Message: []byte("m"), Timestamp: tt.nanos, SourceType: SourceDEA})
			if !d.Timestamp.Equal(tt.want) {
				t.Fatalf("NormalizeDoppler(%d).Timestamp = %v, want %v", tt.nanos, d.Timestamp, tt.want)
			}
			l := NormalizeLoggregator(LoggregatorMessage{Message: "m", Timestamp: tt.nanos, SourceName: "App"})
			if !l.Timestamp.Equal(tt.want) {
				t.Fatalf("NormalizeLoggregator(%d).Timestamp = %v, want %v", tt.nanos, l.Timestamp, tt.want)
			}
			if d.Timestamp.Location() != time.UTC || l.Timestamp.Location() != time.UTC {
				t.Fatal("normalized timestamps must be UTC")
			}
		})
	}
}

func TestNormalizeDopplerSource(t *testing.T) {
	t.Parallel()

	rec := NormalizeDoppler(DopplerLogMessage{Message: []byte("héllo"), Timestamp: 0, SourceType: SourceWardenContainer})
	if rec.SourceType != "WARDEN_CONTAINER" || rec.Message != "héllo" {
		t.Fatalf("NormalizeDoppler() = %+v", rec)
	}

	rec = NormalizeDoppler(DopplerLogMessage{Message: []byte("x"), SourceType: SourceType(42)})
	if rec.SourceType != "42" {
		t.Fatalf("unknown source type = %q, want 42", rec.SourceType)
	}

	rec = NormalizeDoppler(DopplerLogMessage{Message: []byte("x"), SourceName: "APP/PROC/WEB"})
	if rec.SourceType != "APP/PROC/WEB" {
		t.Fatalf("text source type = %q, want APP/PROC/WEB", rec.SourceType)
	}
}

func TestRecordString(t *testing.T) {
	t.Parallel()

	rec := Record{
		SourceType: "App",
		Timestamp:  time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Message:    "listening on 8080",
	}
	if got, want := rec.String(), "[App] - 03/04/2026 05:06:07: listening on 8080"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestNormalizeReplacesInvalidUTF8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{name: "trailing invalid byte", raw: []byte{'o', 'k', 0xff}, want: "ok�"},
		{name: "truncated sequence", raw: []byte{0xc3, 'x'}, want: "�x"},
		{name: "valid multibyte", raw: []byte("héllo"), want: "héllo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := NormalizeDoppler(DopplerLogMessage{Message: tt.raw}).Message; got != tt.want {
				t.Fatalf("NormalizeDoppler().Message = %q, want %q", got, tt.want)
			}
			if got := NormalizeLoggregator(LoggregatorMessage{Message: string(tt.raw)}).Message; got != tt.want {
				t.Fatalf("NormalizeLoggregator().Message = %q, want %q", got, tt.want)
			}
		})
	}
}
