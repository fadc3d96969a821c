package streak

import (
	"strconv"
	"testing"
)

// These cover only the pure key-naming convention, since exercising
// RedisCache itself requires a live Redis server that isn't available
// in this test environment.
func TestRedisKeyPrefixes_MatchOriginalWorkerScheme(t *testing.T) {
	id := strconv.FormatInt(7, 10)

	if got := keyPrefixFails + id; got != "fails:7" {
		t.Errorf("expected fails:7, got %q", got)
	}
	if got := keyPrefixPasses + id; got != "passes:7" {
		t.Errorf("expected passes:7, got %q", got)
	}
	if got := keyPrefixLast + id; got != "last:7" {
		t.Errorf("expected last:7, got %q", got)
	}
	if got := keyPrefixIncidentOpen + id; got != "incident_open:7" {
		t.Errorf("expected incident_open:7, got %q", got)
	}
}
