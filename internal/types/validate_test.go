package types

import "testing"

func TestValidateNewCatch(t *testing.T) {
	valid := NewCatch{
		ImageURI:    "file:///catch.jpg",
		FishSpecies: "Walleye",
		Weight:      &Weight{Value: 2.1, Unit: WeightKilograms},
		Length:      &Length{Value: 55, Unit: LengthCentimeters},
		Coordinate:  &GeoPoint{Latitude: 46.5, Longitude: -92.1},
	}
	if err := ValidateNewCatch(valid); err != nil {
		t.Errorf("valid catch rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*NewCatch)
	}{
		{"missing photo", func(c *NewCatch) { c.ImageURI = "" }},
		{"bad weight unit", func(c *NewCatch) { c.Weight = &Weight{Value: 1, Unit: "stone"} }},
		{"bad length unit", func(c *NewCatch) { c.Length = &Length{Value: 1, Unit: "cubit"} }},
		{"latitude out of range", func(c *NewCatch) { c.Coordinate = &GeoPoint{Latitude: 91} }},
		{"longitude out of range", func(c *NewCatch) { c.Coordinate = &GeoPoint{Longitude: -181} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := ValidateNewCatch(c); err == nil {
				t.Error("invalid catch accepted")
			}
		})
	}
}

func TestValidateCatchPatch(t *testing.T) {
	// A patch without a photo keeps the stored one.
	if err := ValidateCatchPatch(CatchPatch{}); err != nil {
		t.Errorf("empty patch rejected: %v", err)
	}

	// But a photo cannot be cleared outright.
	empty := ""
	if err := ValidateCatchPatch(CatchPatch{ImageURI: &empty}); err == nil {
		t.Error("patch clearing the photo accepted")
	}

	bad := CatchPatch{Weight: &Weight{Value: 1, Unit: "stone"}}
	if err := ValidateCatchPatch(bad); err == nil {
		t.Error("bad weight unit accepted")
	}
}

func TestValidateNewLure(t *testing.T) {
	if err := ValidateNewLure(NewLure{ImageURI: "file:///a.jpg", Confidence: 50}); err != nil {
		t.Errorf("valid lure rejected: %v", err)
	}
	if err := ValidateNewLure(NewLure{Confidence: 50}); err == nil {
		t.Error("lure without photo accepted")
	}
	if err := ValidateNewLure(NewLure{ImageURI: "x", Confidence: 101}); err == nil {
		t.Error("confidence above 100 accepted")
	}
	if err := ValidateNewLure(NewLure{ImageURI: "x", Confidence: -1}); err == nil {
		t.Error("negative confidence accepted")
	}
}
