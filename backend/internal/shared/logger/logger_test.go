package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewToPrefixesService(t *testing.T) {
	var buf bytes.Buffer
	log := NewTo(&buf, "rideserver")
	log.Printf("session=%s opened", "ride_1")

	line := buf.String()
	if !strings.HasPrefix(line, "[rideserver] ") {
		t.Fatalf("missing service prefix: %q", line)
	}
	if !strings.HasSuffix(line, "session=ride_1 opened\n") {
		t.Fatalf("unexpected message: %q", line)
	}
}
