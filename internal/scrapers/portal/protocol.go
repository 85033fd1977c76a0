package portal

// This file is the protocol table of the portal: widget ids, field names, selectors and
// marker phrases captured from real browser traffic. A markup change on the portal side
// should only ever require edits here.

const (
	default_login_path = "/login.xhtml"
	default_home_path  = "/home.xhtml"

	user_agent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

	ajax_accept       = "application/xml, text/xml, */*; q=0.01"
	ajax_content_type = "application/x-www-form-urlencoded; charset=UTF-8"
	page_accept       = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// jsf lifecycle fields
const (
	field_view_state      = "javax.faces.ViewState"
	field_partial_ajax    = "javax.faces.partial.ajax"
	field_source          = "javax.faces.source"
	field_partial_execute = "javax.faces.partial.execute"
	field_partial_render  = "javax.faces.partial.render"
	field_behavior_event  = "javax.faces.behavior.event"
	field_partial_event   = "javax.faces.partial.event"

	event_change      = "change"
	event_click       = "click"
	event_date_select = "dateSelect"
	event_close       = "close"
)

// login form
const (
	form_login             = "formLogin"
	widget_user_type       = "formLogin:tipoUsuario"
	field_user_type        = "formLogin:tipoUsuario_input"
	field_username         = "formLogin:usuario"
	field_password         = "formLogin:clave"
	widget_login_button    = "formLogin:btnIngresar"
	render_login_user_type = "formLogin:panelCredenciales formLogin:mensajes"

	user_type_provider = "PRESTADOR"
)

// home menu
const (
	form_menu                = "formMenu"
	widget_menu_queries      = "formMenu:menuConsultas"
	field_menu_selected      = "formMenu:menuSeleccionado"
	render_menu_queries      = "formMenu"
	render_menu_content      = "formContenido"
	menu_anchor_selector     = `a[id^="formMenu:"]`
	menu_anchor_text         = "autorizaciones pendientes"
	menu_anchor_fallback_sel = `a[data-menu="autorizacionesPendientes"]`
)

// search form
const (
	form_search              = "formBusqueda"
	widget_document_type     = "formBusqueda:tipoDocumento"
	field_document_type      = "formBusqueda:tipoDocumento_input"
	field_document_number    = "formBusqueda:numeroDocumento"
	widget_search_button     = "formBusqueda:btnBuscar"
	render_document_type     = "formBusqueda:panelFiltros"
	render_search_results    = "formBusqueda:tablaResultados formBusqueda:mensajes"
	results_table_body_id    = "formBusqueda:tablaResultados_data"
	dialog_detail            = "formBusqueda:dlgDetalle"
	dialog_view              = "formBusqueda:dlgVer"
	render_detail_dialog     = "formDetalle"
	render_view_dialog       = "formVer"
	status_column            = 5
	row_action_lupa_selector = `a[id$=":lupa"]`
	row_action_ver_selector  = `a[id$=":ver"]`
)

// neutralSearchFilters are the filters of the search form the scraper never touches,
// they have to be echoed back empty for the portal to accept the request.
var neutralSearchFilters = []string{
	"formBusqueda:fechaDesde_input",
	"formBusqueda:fechaHasta_input",
	"formBusqueda:estado_input",
	"formBusqueda:numeroAutorizacion",
}

// detail dialog
const (
	form_detail                = "formDetalle"
	widget_service_date        = "formDetalle:fechaPrestacion"
	field_service_date         = "formDetalle:fechaPrestacion_input"
	widget_confirm_date        = "formDetalle:btnConfirmarFecha"
	line_items_table           = "formDetalle:tablaMedicamentos"
	line_items_table_body_id   = "formDetalle:tablaMedicamentos_data"
	line_items_rows_per_page   = "50"
	line_items_product_column  = 0
	line_items_quantity_column = 1
	service_date_layout        = "02/01/2006"
)

// view dialog
const (
	form_view                 = "formVer"
	view_authorization_number = "formVer:nroAutorizacion"
)

// markers
const (
	marker_login_success      = `id="formMenu"`
	marker_search_form        = `id="formBusqueda"`
	marker_no_pending         = "No se encontraron registros"
	marker_no_record          = "no se encuentra registrado"
	marker_attention_info     = "Información de la Atención"
	marker_no_line_items      = "No records found"
	marker_number_to_invoice  = "Nro. para Facturar"
	selector_error_banner     = ".ui-messages-error-summary, .ui-message-error-detail"
	selector_status_selected  = "option[selected]"
	selector_status_label     = "label.ui-selectonemenu-label"
	status_approved_es        = "aprobada"
	status_approved_en        = "approved"
	partial_response_root     = "partial-response"
	partial_response_error_el = "error"
)
