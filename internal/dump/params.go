package dump

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dbcdk/rawrepo-record-service/pkg/agency"
	"github.com/dbcdk/rawrepo-record-service/pkg/hints"
	"github.com/dbcdk/rawrepo-record-service/pkg/storage"
)

type Mode string

const (
	ModeRaw      Mode = "raw"
	ModeMerged   Mode = "merged"
	ModeExpanded Mode = "expanded"
)

type Format string

const (
	FormatXML     Format = "XML"
	FormatLine    Format = "LINE"
	FormatJSON    Format = "JSON"
	FormatISO     Format = "ISO"
	FormatLineXML Format = "LINE_XML"
)

var formats = []Format{FormatXML, FormatLine, FormatJSON, FormatISO, FormatLineXML}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Params are the dump request parameters as given by the caller.
type Params struct {
	Agencies            []int
	Mode                string
	RecordTypes         []string
	RecordStatus        string
	CreatedFrom         string
	CreatedTo           string
	ModifiedFrom        string
	ModifiedTo          string
	Limit               int
	Format              string
	Encoding            string
	KeepAuthorityFields bool
}

// AgencyRequest is one agency of a validated request.
type AgencyRequest struct {
	AgencyID int
	Type     agency.Type
}

// Request is a validated dump request.
type Request struct {
	Agencies            []AgencyRequest
	Mode                Mode
	Selectors           []storage.RecordSelector
	Status              storage.RecordStatus
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
	ModifiedFrom        *time.Time
	ModifiedTo          *time.Time
	Limit               int
	Format              Format
	Charset             Charset
	KeepAuthorityFields bool
}

// Query builds the cursor query for one agency of the request.
func (r *Request) Query(a AgencyRequest) storage.DumpQuery {
	kind := storage.DumpLocal
	switch a.Type {
	case agency.TypeDBC:
		kind = storage.DumpDBC
	case agency.TypeFBS:
		kind = storage.DumpFBS
	}
	return storage.DumpQuery{
		AgencyID:     a.AgencyID,
		Kind:         kind,
		Selectors:    r.Selectors,
		Status:       r.Status,
		CreatedFrom:  r.CreatedFrom,
		CreatedTo:    r.CreatedTo,
		ModifiedFrom: r.ModifiedFrom,
		ModifiedTo:   r.ModifiedTo,
		Limit:        r.Limit,
	}
}

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid dump request: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Messages = append(e.Messages, fmt.Sprintf(format, args...))
}

// Validate checks the parameters and resolves them into a Request. Only the hints
// provider is consulted; the datastore is never touched.
func (p Params) Validate(ctx context.Context, hp hints.Provider, policy agency.Policy) (*Request, error) {
	verr := &ValidationError{}
	req := &Request{
		Mode:                ModeMerged,
		Status:              storage.StatusActive,
		Limit:               p.Limit,
		KeepAuthorityFields: p.KeepAuthorityFields,
	}

	if len(p.Agencies) == 0 {
		verr.add("at least one agency must be given")
	}
	for _, a := range p.Agencies {
		if !agency.ValidID(a) {
			verr.add("agency %d must have six digits", a)
		}
	}
	if len(p.Agencies) > 1 && slices.Contains(p.Agencies, agency.DBCEnrichmentAgency) {
		verr.add("agency %d must be dumped alone", agency.DBCEnrichmentAgency)
	}

	if p.Mode != "" {
		m, err := ParseMode(p.Mode)
		if err != nil {
			verr.add("%s", err.Error())
		}
		req.Mode = m
	}

	if p.RecordStatus != "" {
		switch s := storage.RecordStatus(strings.ToUpper(p.RecordStatus)); s {
		case storage.StatusActive, storage.StatusDeleted, storage.StatusAll:
			req.Status = s
		default:
			verr.add("record status '%s' is not one of ACTIVE, DELETED, ALL", p.RecordStatus)
		}
	}

	for _, rt := range p.RecordTypes {
		switch s := storage.RecordSelector(strings.ToUpper(rt)); s {
		case storage.SelectLocal, storage.SelectEnrichment, storage.SelectHoldings:
			req.Selectors = append(req.Selectors, s)
		default:
			verr.add("record type '%s' is not one of LOCAL, ENRICHMENT, HOLDINGS", rt)
		}
	}

	req.Format = FormatXML
	if p.Format != "" {
		f, err := ParseFormat(p.Format)
		if err != nil {
			verr.add("%s", err.Error())
		}
		req.Format = f
	}

	encodingName := p.Encoding
	if encodingName == "" {
		encodingName = "UTF-8"
	}
	charset, err := LookupCharset(encodingName)
	if err != nil {
		verr.add("%s", err.Error())
	} else if err := CheckFormatCharset(req.Format, charset); err != nil {
		verr.add("%s", err.Error())
	}
	req.Charset = charset

	req.CreatedFrom = parseBound(verr, "created from", p.CreatedFrom, false)
	req.CreatedTo = parseBound(verr, "created to", p.CreatedTo, true)
	req.ModifiedFrom = parseBound(verr, "modified from", p.ModifiedFrom, false)
	req.ModifiedTo = parseBound(verr, "modified to", p.ModifiedTo, true)

	if p.Limit < 0 {
		verr.add("limit must not be negative")
	}

	// agency types need the hints, so only look them up for well formed agencies
	if len(verr.Messages) == 0 {
		for _, a := range p.Agencies {
			h, err := hp.Get(ctx, a)
			if err != nil {
				return nil, fmt.Errorf("hints for agency %d: %w", a, err)
			}
			t := policy.Classify(a, h.UsesEnrichments)
			if t == agency.TypeFBS && len(req.Selectors) == 0 {
				verr.add("record type is required for FBS agency %d", a)
			}
			req.Agencies = append(req.Agencies, AgencyRequest{AgencyID: a, Type: t})
		}
	}

	if len(verr.Messages) > 0 {
		return nil, verr
	}
	return req, nil
}

// ParseMode parses a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeRaw, ModeMerged, ModeExpanded:
		return m, nil
	default:
		return m, fmt.Errorf("mode '%s' is not one of raw, merged, expanded", s)
	}
}

// ParseFormat parses an output format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(s))
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	return f, fmt.Errorf("format '%s' is not one of XML, LINE, JSON, ISO, LINE_XML", s)
}

// parseBound parses a date or date time in UTC. A bare date is the first second of the
// day for lower bounds and the last second for upper bounds.
func parseBound(verr *ValidationError, field, value string, upper bool) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if t, err := time.ParseInLocation(dateTimeLayout, value, time.UTC); err == nil {
		return &t
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		verr.add("%s '%s' is not a date (yyyy-mm-dd[ hh:mm:ss])", field, value)
		return nil
	}
	if upper {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t
}
