package storage

import (
	"regexp"
	"strings"
)

var vinPattern = regexp.MustCompile(`^[A-Za-z0-9]{17}$`)

// parsedCarFolder is what a car-folder name, on either a region or the
// archive scope, resolves to.
type parsedCarFolder struct {
	OrigRegion string // only set when parsed from the ALL (archive) region
	Make       string
	Model      string
	VIN        string
}

// parseCarFolderName parses a car folder name according to the naming
// convention for its scope: archived folders are underscore-separated
// with the original region as the first token; ordinary regions use
// space-separated "<make> <model> <VIN>" with the VIN as the final
// token. Returns ok=false if the name doesn't fit the shape (e.g. it is
// some other, unrelated folder present on the store).
func parseCarFolderName(name string, archived bool) (parsedCarFolder, bool) {
	if archived {
		parts := strings.Split(name, "_")
		if len(parts) < 4 {
			return parsedCarFolder{}, false
		}

		vin := parts[len(parts)-1]
		if !vinPattern.MatchString(vin) {
			return parsedCarFolder{}, false
		}

		model := parts[len(parts)-2]
		origRegion := parts[0]
		make_ := strings.Join(parts[1:len(parts)-2], "_")

		return parsedCarFolder{OrigRegion: origRegion, Make: make_, Model: model, VIN: vin}, true
	}

	parts := strings.Fields(name)
	if len(parts) < 3 {
		return parsedCarFolder{}, false
	}

	vin := parts[len(parts)-1]
	if !vinPattern.MatchString(vin) {
		return parsedCarFolder{}, false
	}

	model := parts[len(parts)-2]
	make_ := strings.Join(parts[:len(parts)-2], " ")

	return parsedCarFolder{Make: make_, Model: model, VIN: vin}, true
}
