// Package marcx decodes and encodes marcxchange records and provides the default
// field level merge and authority injection used by the merge engine.
package marcx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
)

const Namespace = "info:lc/xmlns/marcxchange-v1"

var ErrMissingID = errors.New("record has no 001 *a/*b")

type Subfield struct {
	Code  string `xml:"code,attr"`
	Value string `xml:",chardata"`
}

type DataField struct {
	Tag       string     `xml:"tag,attr"`
	Ind1      string     `xml:"ind1,attr"`
	Ind2      string     `xml:"ind2,attr"`
	Subfields []Subfield `xml:"subfield"`
}

// Subfield returns the first value of the subfield with the given code.
func (f *DataField) Subfield(code string) (string, bool) {
	for _, sf := range f.Subfields {
		if sf.Code == code {
			return sf.Value, true
		}
	}
	return "", false
}

func (f *DataField) setSubfield(code, value string) {
	for i := range f.Subfields {
		if f.Subfields[i].Code == code {
			f.Subfields[i].Value = value
			return
		}
	}
	f.Subfields = append(f.Subfields, Subfield{Code: code, Value: value})
}

type ControlField struct {
	Tag   string `xml:"tag,attr"`
	Value string `xml:",chardata"`
}

type Record struct {
	XMLName       xml.Name       `xml:"record"`
	Format        string         `xml:"format,attr,omitempty"`
	Type          string         `xml:"type,attr,omitempty"`
	Leader        string         `xml:"leader"`
	ControlFields []ControlField `xml:"controlfield"`
	DataFields    []DataField    `xml:"datafield"`
}

type collection struct {
	XMLName xml.Name `xml:"collection"`
	Records []Record `xml:"record"`
}

// Decode parses a single marcxchange record. A collection holding exactly one record is accepted.
func Decode(content []byte) (*Record, error) {
	var rec Record
	err := xml.Unmarshal(content, &rec)
	if err == nil {
		return &rec, nil
	}

	var coll collection
	if collErr := xml.Unmarshal(content, &coll); collErr != nil || len(coll.Records) != 1 {
		return nil, fmt.Errorf("decode marcxchange: %w", err)
	}
	return &coll.Records[0], nil
}

// Fields returns the data fields with the given tag, in record order.
func (r *Record) Fields(tag string) []*DataField {
	var fields []*DataField
	for i := range r.DataFields {
		if r.DataFields[i].Tag == tag {
			fields = append(fields, &r.DataFields[i])
		}
	}
	return fields
}

// ID reads the bibliographic record id and agency from field 001.
func (r *Record) ID() (string, int, error) {
	for _, f := range r.Fields("001") {
		bibID, okA := f.Subfield("a")
		agency, okB := f.Subfield("b")
		if !okA || !okB {
			continue
		}
		agencyID, err := strconv.Atoi(agency)
		if err != nil {
			return "", 0, fmt.Errorf("invalid agency '%s' in 001: %w", agency, err)
		}
		return bibID, agencyID, nil
	}
	return "", 0, ErrMissingID
}

// SetID writes the bibliographic record id and agency into field 001, creating it if needed.
func (r *Record) SetID(bibliographicRecordID string, agencyID int) {
	fields := r.Fields("001")
	if len(fields) == 0 {
		r.DataFields = append([]DataField{{Tag: "001", Ind1: "0", Ind2: "0"}}, r.DataFields...)
		fields = r.Fields("001")
	}
	fields[0].setSubfield("a", bibliographicRecordID)
	fields[0].setSubfield("b", strconv.Itoa(agencyID))
}

// IsPrivateTag reports whether a tag holds non-digit characters. Such fields are
// internal to DBC and are stripped on request.
func IsPrivateTag(tag string) bool {
	for _, c := range tag {
		if c < '0' || c > '9' {
			return true
		}
	}
	return false
}

// StripPrivateFields removes every data field with a private tag.
func (r *Record) StripPrivateFields() {
	kept := r.DataFields[:0]
	for _, f := range r.DataFields {
		if !IsPrivateTag(f.Tag) {
			kept = append(kept, f)
		}
	}
	r.DataFields = kept
}

func (r *Record) Clone() *Record {
	c := &Record{
		XMLName:       r.XMLName,
		Format:        r.Format,
		Type:          r.Type,
		Leader:        r.Leader,
		ControlFields: append([]ControlField(nil), r.ControlFields...),
		DataFields:    make([]DataField, len(r.DataFields)),
	}
	for i, f := range r.DataFields {
		f.Subfields = append([]Subfield(nil), f.Subfields...)
		c.DataFields[i] = f
	}
	return c
}

// Encode writes the record as marcxchange. With a non-empty prefix the elements are
// qualified and the prefix is declared on the record element.
func Encode(r *Record, prefix string) []byte {
	var buf bytes.Buffer
	name := func(local string) string {
		if prefix == "" {
			return local
		}
		return prefix + ":" + local
	}

	buf.WriteString("<" + name("record"))
	if prefix == "" {
		buf.WriteString(` xmlns="` + Namespace + `"`)
	} else {
		buf.WriteString(` xmlns:` + prefix + `="` + Namespace + `"`)
	}
	if r.Format != "" {
		buf.WriteString(` format="` + escape(r.Format) + `"`)
	}
	if r.Type != "" {
		buf.WriteString(` type="` + escape(r.Type) + `"`)
	}
	buf.WriteString(">")

	buf.WriteString("<" + name("leader") + ">" + escape(r.Leader) + "</" + name("leader") + ">")
	for _, cf := range r.ControlFields {
		buf.WriteString("<" + name("controlfield") + ` tag="` + escape(cf.Tag) + `">`)
		buf.WriteString(escape(cf.Value))
		buf.WriteString("</" + name("controlfield") + ">")
	}
	for _, df := range r.DataFields {
		buf.WriteString("<" + name("datafield") + ` ind1="` + escape(df.Ind1) + `" ind2="` + escape(df.Ind2) + `" tag="` + escape(df.Tag) + `">`)
		for _, sf := range df.Subfields {
			buf.WriteString("<" + name("subfield") + ` code="` + escape(sf.Code) + `">`)
			buf.WriteString(escape(sf.Value))
			buf.WriteString("</" + name("subfield") + ">")
		}
		buf.WriteString("</" + name("datafield") + ">")
	}
	buf.WriteString("</" + name("record") + ">")

	return buf.Bytes()
}

func escape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// NewField builds a data field from alternating subfield codes and values.
func NewField(tag string, codesAndValues ...string) DataField {
	f := DataField{Tag: tag, Ind1: "0", Ind2: "0"}
	for i := 0; i+1 < len(codesAndValues); i += 2 {
		f.Subfields = append(f.Subfields, Subfield{Code: codesAndValues[i], Value: codesAndValues[i+1]})
	}
	return f
}

// NewRecord builds a record whose 001 carries the given id, followed by fields.
func NewRecord(bibliographicRecordID string, agencyID int, fields ...DataField) *Record {
	r := &Record{Leader: "00000n    2200000   4500"}
	r.SetID(bibliographicRecordID, agencyID)
	r.DataFields = append(r.DataFields, fields...)
	return r
}
