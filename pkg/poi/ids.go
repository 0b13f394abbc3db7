package poi

import (
	"strconv"
	"strings"
	"unicode"
)

// DeterministicID derives a stable id for a POI saved from the map, so saving the
// same place twice updates it instead of creating a duplicate:
// lower-cased letters and digits of the name, then latitude and longitude with six
// decimals, joined by "_" with dots replaced.
func DeterministicID(name string, lat, lon float64) string {
	normalized := "poi"
	if strings.TrimSpace(name) != "" {
		var b strings.Builder
		for _, r := range strings.ToLower(strings.TrimSpace(name)) {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		normalized = b.String()
	}
	id := normalized + "_" + strconv.FormatFloat(lat, 'f', 6, 64) + "_" + strconv.FormatFloat(lon, 'f', 6, 64)
	return strings.ReplaceAll(id, ".", "_")
}
