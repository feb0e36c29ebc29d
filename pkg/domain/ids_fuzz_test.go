package domain

import (
	"testing"
)

// FuzzParseUserID checks that parsing never panics on arbitrary input
// and that accepted IDs round-trip.
func FuzzParseUserID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE users;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseUserID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Error("parser accepted a nil UUID")
		}
		roundTrip, err := ParseUserID(id.String())
		if err != nil {
			t.Errorf("valid ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}

		// Upload IDs share the same validation.
		if _, err := ParseUploadID(input); err != nil {
			t.Errorf("upload ID rejected input accepted as user ID: %v", err)
		}
	})
}
