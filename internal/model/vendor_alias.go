package model

// VendorAlias maps a normalized vendor key to a confirmed canonical merchant.
// The alias table is a read-only dependency maintained outside this engine;
// an exact hit earns the full vendor score during match scoring.
type VendorAlias struct {
	Pattern       string // Normalized vendor key to match against
	CanonicalName string
	Category      string
}
