package marcx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LineFormat renders the danMARC2 line format. Each record ends with a "$" line.
func LineFormat(r *Record) []byte {
	var buf bytes.Buffer
	if r.Leader != "" {
		buf.WriteString("000 " + r.Leader + "\n")
	}
	for _, cf := range r.ControlFields {
		buf.WriteString(cf.Tag + " " + cf.Value + "\n")
	}
	for _, df := range r.DataFields {
		buf.WriteString(df.Tag + " " + indicator(df.Ind1) + indicator(df.Ind2))
		for _, sf := range df.Subfields {
			buf.WriteString(" *" + sf.Code + lineEscape(sf.Value))
		}
		buf.WriteString("\n")
	}
	buf.WriteString("$\n")
	return buf.Bytes()
}

func indicator(ind string) string {
	if ind == "" {
		return " "
	}
	return ind
}

func lineEscape(s string) string {
	return strings.ReplaceAll(s, "*", "@*")
}

type jsonSubfield struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type jsonField struct {
	Name      string         `json:"name"`
	Indicator string         `json:"indicator,omitempty"`
	Value     string         `json:"value,omitempty"`
	Subfields []jsonSubfield `json:"subfields,omitempty"`
}

type jsonRecord struct {
	Leader string      `json:"leader,omitempty"`
	Fields []jsonField `json:"fields"`
}

// JSONFormat renders the record as one JSON object followed by a newline.
func JSONFormat(r *Record) ([]byte, error) {
	jr := jsonRecord{Leader: r.Leader, Fields: make([]jsonField, 0, len(r.ControlFields)+len(r.DataFields))}
	for _, cf := range r.ControlFields {
		jr.Fields = append(jr.Fields, jsonField{Name: cf.Tag, Value: cf.Value})
	}
	for _, df := range r.DataFields {
		f := jsonField{Name: df.Tag, Indicator: df.Ind1 + df.Ind2}
		for _, sf := range df.Subfields {
			f.Subfields = append(f.Subfields, jsonSubfield{Name: sf.Code, Value: sf.Value})
		}
		jr.Fields = append(jr.Fields, f)
	}
	b, err := json.Marshal(jr)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

const (
	isoSubfieldDelimiter = 0x1F
	isoFieldTerminator   = 0x1E
	isoRecordTerminator  = 0x1D
	isoLeaderLength      = 24
	isoDirectoryEntry    = 12
)

// FieldEncoder converts a UTF-8 field body to the output charset.
type FieldEncoder func([]byte) ([]byte, error)

// ISO2709Format renders the record in the ISO 2709 exchange format. Field bodies go
// through encode before they are measured, so the leader and directory describe the
// bytes actually written. A nil encode keeps UTF-8.
func ISO2709Format(r *Record, encode FieldEncoder) ([]byte, error) {
	var (
		data      bytes.Buffer
		directory bytes.Buffer
	)

	addField := func(tag string, body []byte) error {
		if len(tag) != 3 {
			return fmt.Errorf("iso2709: tag '%s' is not three characters", tag)
		}
		if encode != nil {
			encoded, err := encode(body)
			if err != nil {
				return fmt.Errorf("iso2709: encode field %s: %w", tag, err)
			}
			body = encoded
		}
		start := data.Len()
		data.Write(body)
		data.WriteByte(isoFieldTerminator)
		length := data.Len() - start
		if length > 9999 || start > 99999 {
			return fmt.Errorf("iso2709: field %s does not fit the directory", tag)
		}
		fmt.Fprintf(&directory, "%s%04d%05d", tag, length, start)
		return nil
	}

	for _, cf := range r.ControlFields {
		if err := addField(cf.Tag, []byte(cf.Value)); err != nil {
			return nil, err
		}
	}
	for _, df := range r.DataFields {
		var body bytes.Buffer
		body.WriteString(indicator(df.Ind1) + indicator(df.Ind2))
		for _, sf := range df.Subfields {
			body.WriteByte(isoSubfieldDelimiter)
			body.WriteString(sf.Code)
			body.WriteString(sf.Value)
		}
		if err := addField(df.Tag, body.Bytes()); err != nil {
			return nil, err
		}
	}
	directory.WriteByte(isoFieldTerminator)

	baseAddress := isoLeaderLength + directory.Len()
	recordLength := baseAddress + data.Len() + 1
	if recordLength > 99999 {
		return nil, fmt.Errorf("iso2709: record length %d exceeds 99999", recordLength)
	}

	leader := []byte(r.Leader)
	if len(leader) != isoLeaderLength {
		leader = []byte("00000n    2200000   4500")
	}
	copy(leader[0:5], fmt.Sprintf("%05d", recordLength))
	leader[10], leader[11] = '2', '2'
	copy(leader[12:17], fmt.Sprintf("%05d", baseAddress))
	copy(leader[20:24], "4500")

	out := make([]byte, 0, recordLength)
	out = append(out, leader...)
	out = append(out, directory.Bytes()...)
	out = append(out, data.Bytes()...)
	out = append(out, isoRecordTerminator)
	return out, nil
}

// ParseLeaderLength returns the record length stored in an ISO 2709 leader.
func ParseLeaderLength(iso []byte) (int, error) {
	if len(iso) < isoLeaderLength {
		return 0, fmt.Errorf("iso2709: short leader")
	}
	return strconv.Atoi(string(iso[0:5]))
}
