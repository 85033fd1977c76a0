package portal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseRows(t *testing.T) {
	rows, err := parseRows([]byte(resultsFragment))
	require.NoError(t, err)

	expect := []Row{
		{LupaID: "formBusqueda:tablaResultados:0:lupa", RequiresLookup: true},
		{LupaID: "formBusqueda:tablaResultados:1:lupa", VerID: "formBusqueda:tablaResultados:1:ver"},
	}
	if diff := cmp.Diff(expect, rows); diff != "" {
		t.Fatalf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRowsEmpty(t *testing.T) {
	rows, err := parseRows([]byte(`<table><tbody id="formBusqueda:tablaResultados_data"></tbody></table>`))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestParseRowsWithoutTable(t *testing.T) {
	_, err := parseRows([]byte(`<div id="formBusqueda:tablaResultados"></div>`))
	require.ErrorIs(t, err, ErrNotProcessed)
}

func TestParseRowsViewLinkWithoutInlineNumber(t *testing.T) {
	fragment := `<table><tbody id="formBusqueda:tablaResultados_data"><tr>
		<td>1</td><td>2</td><td>3</td><td>4</td><td>5</td>
		<td><label class="ui-selectonemenu-label">Aprobada</label></td>
		<td><a id="r:0:lupa"></a><a id="r:0:ver"></a></td>
	</tr></tbody></table>`
	rows, err := parseRows([]byte(fragment))
	require.NoError(t, err)
	require.Equal(t, []Row{{LupaID: "r:0:lupa", VerID: "r:0:ver", RequiresLookup: true}}, rows)
}

func TestIsApproved(t *testing.T) {
	testCases := []struct {
		status string
		expect bool
	}{
		{status: "APROBADA", expect: true},
		{status: " Aprobada ", expect: true},
		{status: "approved", expect: true},
		{status: "Pendiente", expect: false},
		{status: "Negada", expect: false},
		{status: "", expect: false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, isApproved(test.status), test.status)
	}
}
