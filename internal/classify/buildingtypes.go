package classify

import (
	_ "embed"
	"encoding/csv"
	"strings"
	"sync"
)

// buildingTypesFallbackCSV is a small embedded fallback of the published
// building-type table, used when the network fetch is disabled or fails so
// classification stays usable offline and in tests. Grounded on the
// teacher's embedded-CSV pattern (internal/parser/objectclass.go embeds
// s57attributes.csv via go:embed).
//
//go:embed building_types_fallback.csv
var buildingTypesFallbackCSV string

// BuildingTypeTable maps N50 "bygningstype" codes to OSM tag sets, parsed
// from the two-column (ID -> key=value+key=value...) CSV described in
// spec.md §4.2.
type BuildingTypeTable map[string]map[string]string

// ParseBuildingTypesCSV parses the `id;name;building_tag;extra_tag;description`
// CSV described in spec.md §6 "Building types", combining building_tag and
// extra_tag with "+" the way the original implementation's
// BuildingType.osm_tags does.
func ParseBuildingTypesCSV(content string) (BuildingTypeTable, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	table := BuildingTypeTable{}
	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			continue // header row, or malformed
		}
		id := rec[0]
		combined := strings.Trim(strings.TrimSpace(rec[2]+"+"+rec[3]), "+")
		if combined == "" {
			continue
		}
		tags := map[string]string{}
		for _, part := range strings.Split(strings.ReplaceAll(combined, " ", ""), "+") {
			kv := strings.SplitN(part, "=", 2)
			if len(kv) == 2 {
				tags[kv[0]] = kv[1]
			}
		}
		if len(tags) > 0 {
			table[id] = tags
		}
	}
	return table, nil
}

var (
	fallbackTable     BuildingTypeTable
	fallbackTableOnce sync.Once
)

// FallbackBuildingTypes returns the embedded offline building-type table.
func FallbackBuildingTypes() BuildingTypeTable {
	fallbackTableOnce.Do(func() {
		table, err := ParseBuildingTypesCSV(buildingTypesFallbackCSV)
		if err != nil {
			table = BuildingTypeTable{}
		}
		fallbackTable = table
	})
	return fallbackTable
}
