package marcx

import (
	"fmt"
	"strconv"

	"github.com/dbcdk/rawrepo-record-service/pkg/record"
)

// authority record fields holding the heading that is copied into referencing fields
var headingTags = []string{"100", "110", "133", "134"}

// ExpandAuthorities replaces every field that links an authority record through *5 (agency)
// and *6 (id) with the heading of that authority record. Links to records missing from
// authorities are left untouched. With keepLinks the *5 and *6 subfields are kept.
func ExpandAuthorities(content []byte, authorities map[record.RecordID][]byte, keepLinks bool) ([]byte, error) {
	rec, err := Decode(content)
	if err != nil {
		return nil, err
	}

	decoded := map[record.RecordID]*DataField{}
	for i := range rec.DataFields {
		field := &rec.DataFields[i]
		agency, okAgency := field.Subfield("5")
		id, okID := field.Subfield("6")
		if !okAgency || !okID {
			continue
		}
		agencyID, err := strconv.Atoi(agency)
		if err != nil {
			continue
		}
		key := record.NewRecordID(id, agencyID)

		heading, ok := decoded[key]
		if !ok {
			raw, found := authorities[key]
			if !found {
				continue
			}
			aut, err := Decode(raw)
			if err != nil {
				return nil, fmt.Errorf("decode authority %s: %w", key, err)
			}
			heading = findHeading(aut)
			decoded[key] = heading
		}
		if heading == nil {
			continue
		}

		expanded := make([]Subfield, 0, len(heading.Subfields)+len(field.Subfields))
		for _, sf := range heading.Subfields {
			if sf.Code == "5" || sf.Code == "6" {
				continue
			}
			expanded = append(expanded, sf)
		}
		for _, sf := range field.Subfields {
			if (sf.Code == "5" || sf.Code == "6") && !keepLinks {
				continue
			}
			expanded = append(expanded, sf)
		}
		field.Subfields = expanded
	}

	return Encode(rec, ""), nil
}

func findHeading(aut *Record) *DataField {
	for _, tag := range headingTags {
		if fields := aut.Fields(tag); len(fields) > 0 {
			return fields[0]
		}
	}
	return nil
}
