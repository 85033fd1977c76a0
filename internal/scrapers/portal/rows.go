package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"medauth-backend/internal/components/retry"
	"medauth-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_row_open_detail  = "row.open-detail"
	report_row_lookup       = "row.lookup-number"
	report_row_line_items   = "row.line-items"
	report_row_close_dialog = "row.close-dialog"
	report_row_view_number  = "row.view-number"
)

type rowPolicy struct {
	LineItems   retry.Policy
	CloseDialog retry.Policy
	// ViewAttempts is how often the secondary dialog is opened to read the number.
	ViewAttempts int
}

var numberToInvoiceRegex = regexp.MustCompile(`El Nro\. para Facturar es:\s*[A-Za-z]*\s*(\d+)`)
var prefixedNumberRegex = regexp.MustCompile(`^[A-Za-z]*\s*(\d+)`)
var firstNumberRegex = regexp.MustCompile(`\d+`)

func fragmentDocument(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(fragmentHTML(body)))
}

func fragmentText(body []byte) string {
	doc, err := fragmentDocument(body)
	if err != nil {
		return string(body)
	}
	return htmlutil.Text(doc.Selection)
}

// parseNumberToInvoice reads the authorization number out of the confirmation message,
// dropping the letter prefix the portal puts in front of it.
func parseNumberToInvoice(body []byte) (string, bool) {
	groups := numberToInvoiceRegex.FindStringSubmatch(fragmentText(body))
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

// parseViewNumber reads the authorization number from its fixed place in the view dialog.
func parseViewNumber(body []byte) (string, bool) {
	doc, err := fragmentDocument(body)
	if err != nil {
		return "", false
	}
	text := htmlutil.Text(doc.Find(`[id="` + view_authorization_number + `"]`).First())
	groups := prefixedNumberRegex.FindStringSubmatch(text)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

// parseLineItems reads the medication table of the detail dialog. A missing table or
// the empty message of the table is ErrNoLineItems, the table usually renders late.
func parseLineItems(body []byte) ([]LineItem, error) {
	doc, err := fragmentDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse line items: %w", err)
	}
	tbody := doc.Find(`tbody[id="` + line_items_table_body_id + `"]`).First()
	if tbody.Length() == 0 {
		return nil, fmt.Errorf("%w: table not rendered", ErrNoLineItems)
	}
	if bytes.Contains([]byte(htmlutil.Text(tbody)), []byte(marker_no_line_items)) {
		return nil, ErrNoLineItems
	}

	items := []LineItem{}
	tbody.ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() <= line_items_quantity_column {
			return
		}
		product := htmlutil.Text(cells.Eq(line_items_product_column))
		if product == "" {
			return
		}
		quantity, err := strconv.Atoi(firstNumberRegex.FindString(htmlutil.Text(cells.Eq(line_items_quantity_column))))
		if err != nil {
			quantity = 0
		}
		items = append(items, LineItem{Product: product, Quantity: quantity})
	})
	return items, nil
}

// extractRow walks one approved row through its dialogs. ErrNotProcessed means the
// portal is inconsistent and the flow should restart, ErrNoLineItems and
// ErrNumberNotFound mean only this row is skipped.
func (s *session) extractRow(ctx context.Context, row Row, policy rowPolicy) (record AuthorizationRecord, err error) {
	ctx, span := startSpan(ctx, "row:extract")
	defer func() { endSpan(span, err) }()

	detail, err := s.ajax(ctx, s.homeUrl, openDialogPayload(s.searchFields, row.LupaID, render_detail_dialog, s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_row_open_detail, err, row.LupaID)
		return AuthorizationRecord{}, err
	}
	if !bytes.Contains([]byte(fragmentText(detail)), []byte(marker_attention_info)) {
		err = notProcessed("detail dialog of %s did not render", row.LupaID)
		s.tel.ReportWarning(report_row_open_detail, err)
		return AuthorizationRecord{}, err
	}

	var number string
	if row.RequiresLookup {
		var confirmation []byte
		number, confirmation, err = s.lookupNumber(ctx)
		if errors.Is(err, ErrNumberNotFound) {
			s.tel.ReportWarning(report_row_lookup, err, row.LupaID)
		} else if err != nil {
			return AuthorizationRecord{}, err
		}
		if confirmation != nil && bytes.Contains(confirmation, []byte(line_items_table_body_id)) {
			detail = confirmation
		}
	}

	items, itemsErr := s.lineItems(ctx, detail, policy.LineItems)
	if itemsErr != nil && !errors.Is(itemsErr, ErrNoLineItems) {
		return AuthorizationRecord{}, itemsErr
	}

	err = s.closeDialog(ctx, dialog_detail, policy.CloseDialog)
	if err != nil {
		return AuthorizationRecord{}, err
	}

	if itemsErr != nil {
		s.tel.ReportWarning(report_row_line_items, itemsErr, row.LupaID)
		return AuthorizationRecord{}, itemsErr
	}

	if number == "" {
		number, err = s.viewNumber(ctx, row, policy)
		if err != nil {
			return AuthorizationRecord{}, err
		}
	}

	return AuthorizationRecord{
		DocumentType:        s.docType,
		DocumentNumber:      s.docNumber,
		AuthorizationNumber: number,
		Items:               items,
	}, nil
}

// lookupNumber picks today on the service date calendar and confirms it, the portal
// answers with the number to invoice.
func (s *session) lookupNumber(ctx context.Context) (string, []byte, error) {
	today := s.clock.Now()

	_, err := s.ajax(ctx, s.homeUrl, serviceDatePayload(today, s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_row_lookup, fmt.Errorf("select service date: %w", err))
		return "", nil, err
	}
	confirmation, err := s.ajax(ctx, s.homeUrl, confirmDatePayload(today, s.viewState))
	if err != nil {
		s.tel.ReportBroken(report_row_lookup, fmt.Errorf("confirm service date: %w", err))
		return "", nil, err
	}

	number, ok := parseNumberToInvoice(confirmation)
	if !ok {
		return "", confirmation, ErrNumberNotFound
	}
	return number, confirmation, nil
}

func (s *session) lineItems(ctx context.Context, detail []byte, policy retry.Policy) ([]LineItem, error) {
	return retry.Value(ctx, policy, retry.On(ErrNoLineItems), func(ctx context.Context, attempt int) ([]LineItem, error) {
		if attempt == 1 {
			return parseLineItems(detail)
		}
		refreshed, err := s.ajax(ctx, s.homeUrl, refreshLineItemsPayload(s.viewState))
		if err != nil {
			return nil, err
		}
		return parseLineItems(refreshed)
	})
}

func (s *session) closeDialog(ctx context.Context, dialog string, policy retry.Policy) error {
	err := retry.Do(ctx, policy, retry.On(ErrNotInteractable), func(ctx context.Context, _ int) error {
		_, failures, err := s.post(ctx, s.homeUrl, closeDialogPayload(dialog, s.viewState))
		if err != nil {
			return err
		}
		if len(failures) > 0 {
			return fmt.Errorf("%w: %s", ErrNotInteractable, strings.Join(failures, "; "))
		}
		return nil
	})
	if err != nil {
		s.tel.ReportBroken(report_row_close_dialog, err, dialog)
	}
	return err
}

// viewNumber is the fallback for rows whose number did not come out of the calendar
// confirmation: the view dialog shows it at a fixed place.
func (s *session) viewNumber(ctx context.Context, row Row, policy rowPolicy) (string, error) {
	if row.VerID == "" {
		return "", fmt.Errorf("%w: row %s has no view link", ErrNumberNotFound, row.LupaID)
	}

	attempts := retry.Policy{Attempts: policy.ViewAttempts}
	number, err := retry.Value(ctx, attempts, retry.On(ErrNumberNotFound), func(ctx context.Context, attempt int) (string, error) {
		body, err := s.ajax(ctx, s.homeUrl, openDialogPayload(s.searchFields, row.VerID, render_view_dialog, s.viewState))
		if err != nil {
			return "", err
		}
		err = s.closeDialog(ctx, dialog_view, policy.CloseDialog)
		if err != nil {
			return "", err
		}
		number, ok := parseViewNumber(body)
		if !ok {
			s.tel.ReportDebug(report_row_view_number, "number missing", row.VerID, attempt)
			return "", ErrNumberNotFound
		}
		return number, nil
	})
	if errors.Is(err, ErrNumberNotFound) {
		s.tel.ReportWarning(report_row_view_number, err, row.VerID)
	}
	return number, err
}
