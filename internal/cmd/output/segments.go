package output

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/segmaster/pkg/segments"
)

var (
	resultColumns = []string{"segment_id", "name", "development_pid", "master_pid", "driver", "status"}
	wideColumns   = []string{"version", "ads_output_stage_uri", "ads_output_stage_prefix"}
)

// columnHeaders title-cases result field names for table headers.
func columnHeaders(fields []string) []string {
	caser := cases.Title(language.English)
	headers := make([]string, len(fields))
	for i, field := range fields {
		headers[i] = caser.String(strings.ReplaceAll(field, "_", " "))
	}
	return headers
}

// ResultsToTableData converts reconciliation results to table rows. The wide
// variant adds the output stage columns.
func ResultsToTableData(out *segments.Output, wide bool) Data {
	fields := resultColumns
	if wide {
		fields = append(append([]string{}, resultColumns...), wideColumns...)
	}
	headers := columnHeaders(fields)

	rows := make([][]string, 0, len(out.Results))
	for i, r := range out.Results {
		row := []string{r.SegmentID, r.Name, r.DevelopmentPID, r.MasterPID, r.Driver, r.Status.String()}
		if wide {
			version := ""
			if i < len(out.Segments) {
				version = strconv.Itoa(out.Segments[i].Version)
			}
			row = append(row, version, r.ADSOutputStageURI, r.ADSOutputStagePrefix)
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows}
}

// FormatOutput writes a reconciliation output in the given format. Tables
// show the results; JSON and YAML carry results and directives.
func FormatOutput(w io.Writer, out *segments.Output, format Format) error {
	formatter := NewFormatter(format)

	switch format {
	case FormatTable, FormatWide, "":
		return formatter.Format(w, ResultsToTableData(out, format == FormatWide))
	default:
		return formatter.Format(w, out)
	}
}
