package portal

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func requireValues(t *testing.T, expect map[string]string, got url.Values) {
	t.Helper()
	flat := map[string]string{}
	for k, v := range got {
		require.Len(t, v, 1, k)
		flat[k] = v[0]
	}
	if diff := cmp.Diff(expect, flat); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestUserTypePayload(t *testing.T) {
	requireValues(t, map[string]string{
		"formLogin:tipoUsuario_input": "PRESTADOR",
		"javax.faces.partial.ajax":    "true",
		"javax.faces.source":          "formLogin:tipoUsuario",
		"javax.faces.partial.execute": "formLogin:tipoUsuario",
		"javax.faces.partial.render":  "formLogin:panelCredenciales formLogin:mensajes",
		"javax.faces.behavior.event":  "change",
		"javax.faces.partial.event":   "change",
		"formLogin":                   "formLogin",
		"javax.faces.ViewState":       "vs-1",
	}, userTypePayload("vs-1"))
}

func TestLoginPayload(t *testing.T) {
	known := map[string]string{
		"formLogin:canal":             "WEB",
		"formLogin:usuario":           "prefilled",
		"formLogin:tipoUsuario_input": "",
	}
	requireValues(t, map[string]string{
		"formLogin":                   "formLogin",
		"formLogin:canal":             "WEB",
		"formLogin:tipoUsuario_input": "PRESTADOR",
		"formLogin:usuario":           "user",
		"formLogin:clave":             "pass",
		"formLogin:btnIngresar":       "",
		"javax.faces.ViewState":       "vs-2",
	}, loginPayload(known, "user", "pass", "vs-2"))

	// the scraped fields are not mutated
	require.Equal(t, "prefilled", known["formLogin:usuario"])
}

func TestMenuAnchorPayload(t *testing.T) {
	requireValues(t, map[string]string{
		"formMenu:menuSeleccionado":   "formMenu:j_idt42",
		"javax.faces.partial.ajax":    "true",
		"javax.faces.source":          "formMenu:j_idt42",
		"javax.faces.partial.execute": "@all",
		"javax.faces.partial.render":  "formContenido",
		"formMenu:j_idt42":            "formMenu:j_idt42",
		"formMenu":                    "formMenu",
		"javax.faces.ViewState":       "vs-3",
	}, menuAnchorPayload("formMenu:j_idt42", "vs-3"))
}

func TestSearchPayload(t *testing.T) {
	known := map[string]string{
		"formBusqueda":                  "formBusqueda",
		"formBusqueda:fechaDesde_input": "01/01/2024",
		"formBusqueda:sede":             "SEDE-04",
	}
	requireValues(t, map[string]string{
		"formBusqueda":                     "formBusqueda",
		"formBusqueda:sede":                "SEDE-04",
		"formBusqueda:fechaDesde_input":    "",
		"formBusqueda:fechaHasta_input":    "",
		"formBusqueda:estado_input":        "",
		"formBusqueda:numeroAutorizacion":  "",
		"formBusqueda:tipoDocumento_input": "1",
		"formBusqueda:numeroDocumento":     "1020304050",
		"javax.faces.partial.ajax":         "true",
		"javax.faces.source":               "formBusqueda:btnBuscar",
		"javax.faces.partial.execute":      "formBusqueda",
		"javax.faces.partial.render":       "formBusqueda:tablaResultados formBusqueda:mensajes",
		"formBusqueda:btnBuscar":           "formBusqueda:btnBuscar",
		"javax.faces.ViewState":            "vs-4",
	}, searchPayload(known, "1", "1020304050", "vs-4"))

	require.Equal(t, "01/01/2024", known["formBusqueda:fechaDesde_input"])
}

func TestDocumentTypePayload(t *testing.T) {
	values := documentTypePayload(nil, "3", "vs-5")
	require.Equal(t, "3", values.Get(field_document_type))
	require.Equal(t, "", values.Get(field_document_number))
	require.Equal(t, "change", values.Get(field_behavior_event))
	require.Equal(t, "formBusqueda:panelFiltros", values.Get(field_partial_render))
}

func TestServiceDatePayloads(t *testing.T) {
	day := time.Date(2024, time.February, 3, 23, 59, 0, 0, time.UTC)

	selectDate := serviceDatePayload(day, "vs-6")
	require.Equal(t, "03/02/2024", selectDate.Get(field_service_date))
	require.Equal(t, "dateSelect", selectDate.Get(field_behavior_event))
	require.Equal(t, "formDetalle:fechaPrestacion", selectDate.Get(field_source))

	confirm := confirmDatePayload(day, "vs-7")
	require.Equal(t, "03/02/2024", confirm.Get(field_service_date))
	require.Equal(t, "formDetalle", confirm.Get(field_partial_execute))
	require.Equal(t, "formDetalle:btnConfirmarFecha", confirm.Get("formDetalle:btnConfirmarFecha"))
	require.False(t, confirm.Has(field_behavior_event))
}

func TestRefreshLineItemsPayload(t *testing.T) {
	values := refreshLineItemsPayload("vs-8")
	require.Equal(t, "true", values.Get("formDetalle:tablaMedicamentos_pagination"))
	require.Equal(t, "0", values.Get("formDetalle:tablaMedicamentos_first"))
	require.Equal(t, "50", values.Get("formDetalle:tablaMedicamentos_rows"))
	require.False(t, values.Has("formDetalle:tablaMedicamentos"))
	require.Equal(t, "vs-8", values.Get(field_view_state))
}

func TestCloseDialogPayload(t *testing.T) {
	requireValues(t, map[string]string{
		"javax.faces.partial.ajax":    "true",
		"javax.faces.source":          "formBusqueda:dlgDetalle",
		"javax.faces.partial.execute": "formBusqueda:dlgDetalle",
		"javax.faces.partial.render":  "@none",
		"javax.faces.behavior.event":  "close",
		"javax.faces.partial.event":   "close",
		"formBusqueda":                "formBusqueda",
		"javax.faces.ViewState":       "vs-9",
	}, closeDialogPayload(dialog_detail, "vs-9"))
}
