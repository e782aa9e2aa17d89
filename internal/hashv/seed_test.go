package hashv

import "testing"

func TestSeedTableSize(t *testing.T) {
	if len(seedV2) != SeedTableSize {
		t.Fatalf("seedV2 has %d entries, want %d", len(seedV2), SeedTableSize)
	}
	if len(seedV3) != SeedTableSize {
		t.Fatalf("seedV3 has %d entries, want %d", len(seedV3), SeedTableSize)
	}
}

func TestSeedTableDeterministic(t *testing.T) {
	for i := 0; i < SeedTableSize; i++ {
		if got := buildSeedV2(i); got != seedV2[i] {
			t.Fatalf("seedV2[%d] not reproducible: %q != %q", i, got, seedV2[i])
		}
		if got := buildSeedV3(i); got != seedV3[i] {
			t.Fatalf("seedV3[%d] not reproducible: %q != %q", i, got, seedV3[i])
		}
	}
}

func TestSeedTableShape(t *testing.T) {
	for i, e := range seedV2 {
		if !hexRe.MatchString(e) {
			t.Fatalf("seedV2[%d]=%q is not 32 uppercase hex chars", i, e)
		}
	}
	for i, e := range seedV3 {
		if !hexRe.MatchString(e) {
			t.Fatalf("seedV3[%d]=%q is not 32 uppercase hex chars", i, e)
		}
	}
}
