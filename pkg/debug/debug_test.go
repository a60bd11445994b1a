package debug

import "testing"

func TestFlags(t *testing.T) {
	defer SetTracking(false)
	defer SetEnabled(false)

	if Tracking() || Enabled() {
		t.Fatal("flags should start disabled")
	}

	SetTracking(true)
	SetEnabled(true)
	if !Tracking() || !Enabled() {
		t.Error("flags should be enabled")
	}

	// Should not panic with either flag state.
	TrackLog("frame %d", 1)
	Log("frame %d", 2)
}
