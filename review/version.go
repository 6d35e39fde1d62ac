package review

import "regexp"

// versionPattern matches the whole field: "X.Y.Z build B C", digits only.
var versionPattern = regexp.MustCompile(`^(\d+\.\d+\.\d+) build (\d+) (\d+)$`)

// ParseVersionKey parses a raw appVersion field into its dimension key.
// The match is all-or-nothing: anything but the exact shape is a
// *MalformedVersionError carrying the raw input.
func ParseVersionKey(raw string) (VersionKey, error) {
	m := versionPattern.FindStringSubmatch(raw)
	if m == nil {
		return VersionKey{}, &MalformedVersionError{Raw: raw}
	}
	return VersionKey{
		SemanticVersion: m[1],
		BuildNumber:     m[2],
		BuildCode:       m[3],
	}, nil
}
