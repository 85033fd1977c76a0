package portal

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DocumentType is an identification document kind supported by the portal.
type DocumentType string

const (
	DOC_NATIONAL_ID    DocumentType = "CC"
	DOC_FOREIGN_ID     DocumentType = "CE"
	DOC_IDENTITY_CARD  DocumentType = "TI"
	DOC_CIVIL_REGISTRY DocumentType = "RC"
	DOC_PASSPORT       DocumentType = "PA"
	DOC_MINOR_NO_ID    DocumentType = "MS"
	DOC_ADULT_NO_ID    DocumentType = "AS"
)

type documentTypeInfo struct {
	// portal is the option value of the document type select on the search form.
	portal      string
	description string
}

var documentTypes = map[DocumentType]documentTypeInfo{
	DOC_NATIONAL_ID:    {portal: "1", description: "Cédula de ciudadanía"},
	DOC_FOREIGN_ID:     {portal: "2", description: "Cédula de extranjería"},
	DOC_IDENTITY_CARD:  {portal: "3", description: "Tarjeta de identidad"},
	DOC_CIVIL_REGISTRY: {portal: "4", description: "Registro civil"},
	DOC_PASSPORT:       {portal: "5", description: "Pasaporte"},
	DOC_MINOR_NO_ID:    {portal: "6", description: "Menor sin identificación"},
	DOC_ADULT_NO_ID:    {portal: "7", description: "Adulto sin identificación"},
}

// ParseDocumentType parses a document type key like "cc" case-insensitively.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := documentTypes[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, s)
	}
	return t, nil
}

// DocumentTypes lists every supported document type, sorted by key.
func DocumentTypes() []DocumentType {
	out := make([]DocumentType, 0, len(documentTypes))
	for t := range documentTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t DocumentType) Description() string {
	return documentTypes[t].description
}

func (t DocumentType) portalCode() (string, bool) {
	info, ok := documentTypes[t]
	return info.portal, ok
}

// Row is an approved row of the search results, consumed once by the row extractor.
type Row struct {
	LupaID string
	VerID  string
	// RequiresLookup is true when the number to invoice is not already shown inline
	// and has to be obtained by confirming a service date in the detail dialog.
	RequiresLookup bool
}

type LineItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type AuthorizationRecord struct {
	DocumentType        DocumentType `json:"document_type"`
	DocumentNumber      string       `json:"document_number"`
	AuthorizationNumber string       `json:"authorization_number"`
	// Dispensed is unknown at scrape time, it is filled in by whoever dispenses.
	Dispensed *bool      `json:"dispensed"`
	Items     []LineItem `json:"items"`
}

// Message is a benign terminal outcome of a lookup.
type Message int

const (
	MessageNone Message = iota
	MessageNoPending
	MessageNoRecord
	MessageNoLineItems
)

func (m Message) String() string {
	switch m {
	case MessageNoPending:
		return "El usuario no tiene autorizaciones pendientes."
	case MessageNoRecord:
		return "No se encontró registro para este documento."
	case MessageNoLineItems:
		return "La autorización no tiene medicamentos asociados."
	default:
		return ""
	}
}

// Key is the stable identifier of the message used in json output and storage.
func (m Message) Key() string {
	switch m {
	case MessageNoPending:
		return "no_pending"
	case MessageNoRecord:
		return "no_record"
	case MessageNoLineItems:
		return "no_line_items"
	default:
		return "none"
	}
}

// MessageFromKey is the inverse of Message.Key.
func MessageFromKey(key string) (Message, bool) {
	for _, m := range []Message{MessageNone, MessageNoPending, MessageNoRecord, MessageNoLineItems} {
		if m.Key() == key {
			return m, true
		}
	}
	return MessageNone, false
}

func (m Message) MarshalText() ([]byte, error) {
	return []byte(m.Key()), nil
}

// Result is either a list of records or a message, never both.
type Result struct {
	Records []AuthorizationRecord `json:"records,omitempty"`
	Message Message               `json:"message,omitempty"`
}

func messageResult(m Message) Result {
	return Result{Message: m}
}

var (
	ErrUnsupportedDocumentType = errors.New("unsupported document type")
	// ErrViewStateMissing means a response that must carry a view state did not.
	ErrViewStateMissing = errors.New("view state not found")
	ErrAuthentication   = errors.New("authentication failed")
	// ErrNotProcessed means a navigation response lacked its expected marker, the
	// whole flow is restarted when it surfaces.
	ErrNotProcessed    = errors.New("step not processed")
	ErrNoLineItems     = errors.New("no records in line item table")
	ErrNotInteractable = errors.New("element not interactable")
	ErrNumberNotFound  = errors.New("authorization number not found")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Url    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Url, e.Status)
}
