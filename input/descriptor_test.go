package input

import "testing"

// TestWitnessWeightTable freezes the §6 witness weight table: these values
// are consumed by fee prediction and must never silently drift.
func TestWitnessWeightTable(t *testing.T) {
	cases := []struct {
		desc InputDescriptor
		want int
	}{
		{RevokedOfferedHTLC, 243},
		{RevokedReceivedHTLC, 249},
		{OfferedHTLC, 242},
		{ReceivedHTLC, 217},
		{RevokedOutput, 155},
	}

	for _, c := range cases {
		got, ok := WitnessWeight(c.desc)
		if !ok {
			t.Fatalf("%v: expected a known weight", c.desc)
		}
		if got != c.want {
			t.Errorf("%v: got weight %d, want %d", c.desc, got, c.want)
		}
	}
}

func TestSumWitnessWeightAddsSegwitFlagOnce(t *testing.T) {
	total, err := SumWitnessWeight([]InputDescriptor{RevokedOutput, RevokedOutput})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 2*155 + 2
	if total != want {
		t.Errorf("got %d, want %d", total, want)
	}
}

func TestInputDescriptorValid(t *testing.T) {
	if !RevokedOutput.Valid() {
		t.Error("RevokedOutput (tag 4) must be valid")
	}
	if InputDescriptor(5).Valid() {
		t.Error("tag 5 must not be valid")
	}
}
