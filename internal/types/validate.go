package types

import "fmt"

var weightUnits = map[WeightUnit]bool{
	WeightPounds:    true,
	WeightKilograms: true,
	WeightOunces:    true,
}

var lengthUnits = map[LengthUnit]bool{
	LengthInches:      true,
	LengthCentimeters: true,
	LengthFeet:        true,
}

// ValidateNewCatch checks a catch creation input. A photo is mandatory on
// creation; it only becomes optional when editing a catch that already has
// one.
func ValidateNewCatch(c NewCatch) error {
	if c.ImageURI == "" {
		return fmt.Errorf("catch photo is required")
	}
	if c.Weight != nil && !weightUnits[c.Weight.Unit] {
		return fmt.Errorf("invalid weight unit %q", c.Weight.Unit)
	}
	if c.Length != nil && !lengthUnits[c.Length.Unit] {
		return fmt.Errorf("invalid length unit %q", c.Length.Unit)
	}
	if c.Coordinate != nil {
		if err := validateCoordinate(*c.Coordinate); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCatchPatch checks a catch edit. The photo may be omitted; when
// present it must not be cleared to empty.
func ValidateCatchPatch(p CatchPatch) error {
	if p.ImageURI != nil && *p.ImageURI == "" {
		return fmt.Errorf("catch photo cannot be removed")
	}
	if p.Weight != nil && !weightUnits[p.Weight.Unit] {
		return fmt.Errorf("invalid weight unit %q", p.Weight.Unit)
	}
	if p.Length != nil && !lengthUnits[p.Length.Unit] {
		return fmt.Errorf("invalid length unit %q", p.Length.Unit)
	}
	if p.Coordinate != nil {
		if err := validateCoordinate(*p.Coordinate); err != nil {
			return err
		}
	}
	return nil
}

// ValidateNewLure checks a lure creation input.
func ValidateNewLure(l NewLure) error {
	if l.ImageURI == "" {
		return fmt.Errorf("lure photo is required")
	}
	if l.Confidence < 0 || l.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range 0-100", l.Confidence)
	}
	return nil
}

func validateCoordinate(g GeoPoint) error {
	if g.Latitude < -90 || g.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", g.Latitude)
	}
	if g.Longitude < -180 || g.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", g.Longitude)
	}
	return nil
}
