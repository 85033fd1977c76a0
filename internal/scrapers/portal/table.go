package portal

import (
	"bytes"
	"fmt"
	"strings"

	"medauth-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// parseRows reads the search results table and returns the approved rows in table order.
// Rows with any other status or without a detail link are dropped. A search that rendered
// no table at all is not processed, an empty table is a legitimate answer.
func parseRows(fragment []byte) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("parse results table: %w", err)
	}

	body := doc.Find(`tbody[id="` + results_table_body_id + `"]`)
	if body.Length() == 0 {
		return nil, notProcessed("search did not render %s", results_table_body_id)
	}

	var rows []Row
	body.First().ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() <= status_column {
			return
		}
		if !isApproved(rowStatus(cells.Eq(status_column))) {
			return
		}

		actions := cells.Last()
		lupa := tr.Find(row_action_lupa_selector).First().AttrOr("id", "")
		ver := actions.Find(row_action_ver_selector).First().AttrOr("id", "")
		if lupa == "" {
			return
		}

		inline := ver != "" && strings.Contains(htmlutil.Text(actions), marker_number_to_invoice)
		rows = append(rows, Row{
			LupaID:         lupa,
			VerID:          ver,
			RequiresLookup: !inline,
		})
	})

	return rows, nil
}

// rowStatus is the currently selected option of the status dropdown of a row.
func rowStatus(cell *goquery.Selection) string {
	selected := cell.Find(selector_status_selected).First()
	if selected.Length() > 0 {
		return htmlutil.Text(selected)
	}
	label := cell.Find(selector_status_label).First()
	if label.Length() > 0 {
		return htmlutil.Text(label)
	}
	return htmlutil.Text(cell)
}

func isApproved(status string) bool {
	status = strings.TrimSpace(status)
	return strings.EqualFold(status, status_approved_en) ||
		strings.EqualFold(status, status_approved_es)
}
