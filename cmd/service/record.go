package service

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/dbcdk/rawrepo-record-service/internal/dump"
	"github.com/dbcdk/rawrepo-record-service/pkg/record"
	"github.com/dbcdk/rawrepo-record-service/pkg/server"
)

const (
	allowDeletedFlag     = "allow-deleted"
	useParentAgencyFlag  = "use-parent-agency"
	excludeDBCFieldsFlag = "exclude-dbc-fields"
	keepOwnIDFlag        = "keep-own-id"
)

func NewRecordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <bibliographic-record-id> <agency>",
		Short: "Print one record as seen by an agency",
		Long: `Print one record as seen by an agency.

In 'raw' mode the stored record is printed as it is. In 'merged' mode the record is the
common record overlaid with the agency's enrichment, and 'expanded' adds the authority
data the record links to.`,
		Example: `rawrepo record 50938409 191919
rawrepo record 50938409 870970 --mode raw --format XML`,
		RunE: runRecord,
		Args: cobra.ExactArgs(2),
	}

	flags := cmd.Flags()
	addConfigFlags(flags)

	flags.String(modeFlag, string(dump.ModeMerged), "'raw', 'merged' or 'expanded'")
	flags.Bool(allowDeletedFlag, false, "fall back to deleted records")
	flags.Bool(useParentAgencyFlag, false, "give the merged record the id of the agency it is based on")
	flags.Bool(excludeDBCFieldsFlag, false, "strip the fields with non numeric tags")
	flags.Bool(keepAutFlag, false, "keep the authority link subfields of expanded records")
	flags.Bool(keepOwnIDFlag, false, "keep the requesting agency's 001 when merging")
	flags.String(formatFlag, string(dump.FormatLine), "XML, LINE, JSON, ISO or LINE_XML")
	flags.String(encodingFlag, "UTF-8", "the output charset: any IANA name or DANMARC2")

	cmd.PreRun = func(command *cobra.Command, _ []string) {
		bindConfigFlags(command)
	}

	return cmd
}

// parseRecordArgs parses the bibliographic record id and agency arguments.
func parseRecordArgs(args []string) (string, int, error) {
	agencyID, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, &dump.ValidationError{Messages: []string{fmt.Sprintf("agency '%s' is not a number", args[1])}}
	}
	return args[0], agencyID, nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	bibID, agencyID, err := parseRecordArgs(args)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	modeName, _ := flags.GetString(modeFlag)
	formatName, _ := flags.GetString(formatFlag)
	encodingName, _ := flags.GetString(encodingFlag)
	allowDeleted, _ := flags.GetBool(allowDeletedFlag)
	useParentAgency, _ := flags.GetBool(useParentAgencyFlag)
	excludeDBCFields, _ := flags.GetBool(excludeDBCFieldsFlag)
	keepAut, _ := flags.GetBool(keepAutFlag)
	keepOwnID, _ := flags.GetBool(keepOwnIDFlag)

	verr := &dump.ValidationError{}
	mode, err := dump.ParseMode(modeName)
	if err != nil {
		verr.Messages = append(verr.Messages, err.Error())
	}
	format, err := dump.ParseFormat(formatName)
	if err != nil {
		verr.Messages = append(verr.Messages, err.Error())
	}
	charset, err := dump.LookupCharset(encodingName)
	if err != nil {
		verr.Messages = append(verr.Messages, err.Error())
	}
	if len(verr.Messages) == 0 {
		if err := dump.CheckFormatCharset(format, charset); err != nil {
			verr.Messages = append(verr.Messages, err.Error())
		}
	}
	if len(verr.Messages) > 0 {
		return verr
	}

	s, config, err := NewServerContext()
	if err != nil {
		return err
	}
	stopTracing := s.startTracing(config)
	defer stopTracing()

	srv, err := s.NewServer(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer srv.Close()

	rec, err := srv.FetchRecord(cmd.Context(), server.RecordRequest{
		BibliographicRecordID: bibID,
		AgencyID:              agencyID,
		Mode:                  mode,
		AllowDeleted:          allowDeleted,
		UseParentAgency:       useParentAgency,
		ExcludeDBCFields:      excludeDBCFields,
		KeepAuthorityFields:   keepAut,
		KeepOwnID:             keepOwnID,
	})
	if err != nil {
		return err
	}

	w := dump.NewWriter(cmd.OutOrStdout(), format, charset)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteRecord(rec); err != nil {
		return err
	}
	return w.WriteFooter()
}

func NewRelationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relations <bibliographic-record-id> <agency>",
		Short:   "List the parents, children and siblings of a record",
		Example: `rawrepo relations 50938409 870970`,
		RunE:    runRelations,
		Args:    cobra.ExactArgs(2),
	}

	addConfigFlags(cmd.Flags())
	cmd.PreRun = func(command *cobra.Command, _ []string) {
		bindConfigFlags(command)
	}

	return cmd
}

func runRelations(cmd *cobra.Command, args []string) error {
	bibID, agencyID, err := parseRecordArgs(args)
	if err != nil {
		return err
	}

	s, config, err := NewServerContext()
	if err != nil {
		return err
	}
	stopTracing := s.startTracing(config)
	defer stopTracing()

	srv, err := s.NewServer(cmd.Context(), config)
	if err != nil {
		return err
	}
	defer srv.Close()

	rel, err := srv.Relations(cmd.Context(), bibID, agencyID)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Relation", "Bibliographic Record ID", "Agency"})
	appendRows := func(kind string, ids *record.Set) {
		for _, id := range ids.Sorted() {
			t.AppendRow(table.Row{kind, id.BibliographicRecordID, id.AgencyID})
		}
	}
	appendRows("parent", rel.Parents)
	appendRows("child", rel.Children)
	appendRows("sibling from", rel.SiblingsFromMe)
	appendRows("sibling to", rel.SiblingsToMe)
	t.Render()

	return nil
}
