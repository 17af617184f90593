// Package export writes workflow results and the verification queue to
// spreadsheets, and reads article batches from them.
package export

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/funding-cli/internal/model"
)

// Sheet names in an exported workbook.
const (
	SheetResults = "results"
	SheetQueue   = "queue"
)

var resultColumns = []string{
	"Index",
	"Status",
	"Company",
	"Amount",
	"Funding Stage",
	"Lead Investor",
	"All Investors",
	"Theme",
	"Overall Confidence",
	"Sources",
	"Review Reason",
	"Website",
	"Founded",
	"Employees",
	"Location",
	"Team",
	"Error",
}

var queueColumns = []string{
	"ID",
	"Type",
	"Priority",
	"Company",
	"Reason",
	"LinkedIn",
	"Created At",
	"Data",
}

// WriteWorkbook saves res and the queue items as a two-sheet xlsx file.
func WriteWorkbook(path string, res *model.WorkflowResult, items []model.QueueItem) error {
	f := xlsx.NewFile()

	results, err := f.AddSheet(SheetResults)
	if err != nil {
		return eris.Wrap(err, "export: add results sheet")
	}
	addRow(results, resultColumns)
	if res != nil {
		for _, e := range res.Results {
			addRow(results, resultRow(e))
		}
	}

	queue, err := f.AddSheet(SheetQueue)
	if err != nil {
		return eris.Wrap(err, "export: add queue sheet")
	}
	addRow(queue, queueColumns)
	for _, it := range items {
		row, err := queueRow(it)
		if err != nil {
			return err
		}
		addRow(queue, row)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func resultRow(e model.ResultEntry) []string {
	row := make([]string, len(resultColumns))
	row[0] = strconv.Itoa(e.Index)
	row[1] = string(e.Status)
	row[16] = e.Error
	if a := e.Analysis; a != nil {
		d := a.FinalData
		row[2] = e.CompanyName()
		row[3] = strconv.FormatInt(d.Amount, 10)
		row[4] = d.FundingStage
		row[5] = d.LeadInvestor
		row[6] = strings.Join(d.AllInvestors, "; ")
		row[7] = d.Theme
		row[8] = strconv.FormatFloat(a.Confidence.Overall, 'f', 3, 64)
		row[9] = strconv.Itoa(a.SourceCount)
		row[10] = a.ReviewReason
	}
	if p := e.Profile; p != nil {
		row[11] = p.Website
		row[12] = p.FoundedYear
		row[13] = p.EmployeeRange
		row[14] = p.Location
		var team []string
		for _, m := range p.TeamMembers {
			team = append(team, m.Name+" ("+m.Title+")")
		}
		row[15] = strings.Join(team, "; ")
	}
	return row
}

func queueRow(it model.QueueItem) ([]string, error) {
	var data string
	if len(it.Data) > 0 {
		b, err := json.Marshal(it.Data)
		if err != nil {
			return nil, eris.Wrapf(err, "export: marshal data for %s", it.ID)
		}
		data = string(b)
	}
	return []string{
		it.ID,
		string(it.Type),
		string(it.Priority),
		it.CompanyName,
		it.Reason,
		it.LinkedInURL,
		it.CreatedAt.UTC().Format(time.RFC3339),
		data,
	}, nil
}

// textHeaders are the column names recognised as holding article text.
var textHeaders = []string{"text", "article", "content", "body", "raw_text"}

// ReadArticles returns the article texts from the first sheet of an xlsx
// file. The column is chosen by header name, falling back to the first
// column when no header matches. Blank cells are skipped.
func ReadArticles(path string) ([]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("export: %s has no sheets", path)
	}
	rows := f.Sheets[0].Rows
	if len(rows) == 0 {
		return nil, nil
	}

	col, start := 0, 0
	for j, cell := range rows[0].Cells {
		h := strings.ToLower(strings.TrimSpace(cell.String()))
		for _, want := range textHeaders {
			if h == want {
				col, start = j, 1
			}
		}
	}

	var texts []string
	for _, row := range rows[start:] {
		if col >= len(row.Cells) {
			continue
		}
		if t := strings.TrimSpace(row.Cells[col].String()); t != "" {
			texts = append(texts, t)
		}
	}
	return texts, nil
}
