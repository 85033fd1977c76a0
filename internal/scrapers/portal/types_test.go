package portal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDocumentType(t *testing.T) {
	testCases := []struct {
		input  string
		expect DocumentType
		code   string
	}{
		{input: "CC", expect: DOC_NATIONAL_ID, code: "1"},
		{input: " ce ", expect: DOC_FOREIGN_ID, code: "2"},
		{input: "pa", expect: DOC_PASSPORT, code: "5"},
		{input: "As", expect: DOC_ADULT_NO_ID, code: "7"},
	}

	for _, test := range testCases {
		docType, err := ParseDocumentType(test.input)
		require.NoError(t, err)
		require.Equal(t, test.expect, docType)
		code, ok := docType.portalCode()
		require.True(t, ok)
		require.Equal(t, test.code, code)
	}

	_, err := ParseDocumentType("NIT")
	require.ErrorIs(t, err, ErrUnsupportedDocumentType)
}

func TestDocumentTypes(t *testing.T) {
	types := DocumentTypes()
	require.Len(t, types, 7)
	require.Equal(t, DOC_ADULT_NO_ID, types[0])
	for _, docType := range types {
		require.NotEmpty(t, docType.Description(), docType)
	}
}

func TestResultJSON(t *testing.T) {
	serialized, err := json.Marshal(messageResult(MessageNoRecord))
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"no_record"}`, string(serialized))

	serialized, err = json.Marshal(Result{Records: []AuthorizationRecord{{
		DocumentType:        DOC_NATIONAL_ID,
		DocumentNumber:      "1",
		AuthorizationNumber: "2",
		Items:               []LineItem{{Product: "A", Quantity: 1}},
	}}})
	require.NoError(t, err)
	require.JSONEq(t, `{"records":[{
		"document_type":"CC",
		"document_number":"1",
		"authorization_number":"2",
		"dispensed":null,
		"items":[{"product":"A","quantity":1}]
	}]}`, string(serialized))
}
