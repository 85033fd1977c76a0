package portal

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtractFormFields(t *testing.T) {
	fields := extractFormFields([]byte(fmt.Sprintf(loginPage, "vs-1")), form_login)

	expect := map[string]string{
		"formLogin":                   "formLogin",
		"formLogin:tipoUsuario_input": "",
		"formLogin:usuario":           "",
		"formLogin:clave":             "",
		"formLogin:canal":             "WEB",
		"javax.faces.ViewState":       "vs-1",
	}
	if diff := cmp.Diff(expect, fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractFormFieldsPartial(t *testing.T) {
	body := stubPartial("vs-2", [2]string{render_menu_content, searchFormFragment})
	fields := extractFormFields([]byte(body), form_search)

	require.Equal(t, "SEDE-04", fields["formBusqueda:sede"])
	require.Equal(t, "01/01/2024", fields["formBusqueda:fechaDesde_input"])
	require.Equal(t, "", fields[field_document_type])
	require.NotContains(t, fields, "formBusqueda:btnBuscar")
}

func TestExtractFormFieldsChecked(t *testing.T) {
	body := `<form id="f">
		<input type="checkbox" name="a" value="on" checked="checked" />
		<input type="checkbox" name="b" value="on" />
		<input type="radio" name="c" value="1" />
		<input type="radio" name="c" value="2" checked />
		<input type="submit" name="d" value="go" />
		<select name="e"><option value="x">x</option><option value="y" selected>y</option></select>
	</form>
	<form id="other"><input name="z" value="nope" /></form>`

	require.Equal(t, map[string]string{"a": "on", "c": "2", "e": "y"}, extractFormFields([]byte(body), "f"))
	require.Empty(t, extractFormFields([]byte(body), "missing"))
}
