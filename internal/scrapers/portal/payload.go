package portal

import (
	"net/url"
	"time"
)

// Every widget interaction is a pure function from the known field state to the form
// a browser would submit for it, so payloads can be asserted without a portal.

type ajaxEvent struct {
	form    string
	source  string
	execute string
	render  string
	// event is the client behavior name, empty for a plain command click
	event string
}

func withFields(known map[string]string) url.Values {
	values := url.Values{}
	for k, v := range known {
		values.Set(k, v)
	}
	return values
}

func ajaxPayload(known map[string]string, ev ajaxEvent, viewState string) url.Values {
	values := withFields(known)

	execute := ev.execute
	if execute == "" {
		execute = ev.source
	}

	values.Set(field_partial_ajax, "true")
	values.Set(field_source, ev.source)
	values.Set(field_partial_execute, execute)
	values.Set(field_partial_render, ev.render)
	if ev.event != "" {
		values.Set(field_behavior_event, ev.event)
		values.Set(field_partial_event, ev.event)
	} else {
		// command components are decoded by finding their own client id in the request
		values.Set(ev.source, ev.source)
	}
	values.Set(ev.form, ev.form)
	values.Set(field_view_state, viewState)
	return values
}

func userTypePayload(viewState string) url.Values {
	return ajaxPayload(map[string]string{
		field_user_type: user_type_provider,
	}, ajaxEvent{
		form:   form_login,
		source: widget_user_type,
		render: render_login_user_type,
		event:  event_change,
	}, viewState)
}

func loginPayload(known map[string]string, username, password, viewState string) url.Values {
	values := withFields(known)
	values.Set(form_login, form_login)
	values.Set(field_user_type, user_type_provider)
	values.Set(field_username, username)
	values.Set(field_password, password)
	values.Set(widget_login_button, "")
	values.Set(field_view_state, viewState)
	return values
}

func menuQueriesPayload(viewState string) url.Values {
	return ajaxPayload(nil, ajaxEvent{
		form:   form_menu,
		source: widget_menu_queries,
		render: render_menu_queries,
	}, viewState)
}

func menuAnchorPayload(anchor, viewState string) url.Values {
	return ajaxPayload(map[string]string{
		field_menu_selected: anchor,
	}, ajaxEvent{
		form:    form_menu,
		source:  anchor,
		execute: "@all",
		render:  render_menu_content,
	}, viewState)
}

func searchFilters(known map[string]string, documentCode string) map[string]string {
	fields := map[string]string{}
	for k, v := range known {
		fields[k] = v
	}
	for _, name := range neutralSearchFilters {
		fields[name] = ""
	}
	fields[field_document_type] = documentCode
	return fields
}

func documentTypePayload(known map[string]string, documentCode, viewState string) url.Values {
	fields := searchFilters(known, documentCode)
	fields[field_document_number] = ""
	return ajaxPayload(fields, ajaxEvent{
		form:   form_search,
		source: widget_document_type,
		render: render_document_type,
		event:  event_change,
	}, viewState)
}

func searchPayload(known map[string]string, documentCode, documentNumber, viewState string) url.Values {
	fields := searchFilters(known, documentCode)
	fields[field_document_number] = documentNumber
	return ajaxPayload(fields, ajaxEvent{
		form:    form_search,
		source:  widget_search_button,
		execute: form_search,
		render:  render_search_results,
	}, viewState)
}

// openDialogPayload simulates the onclick of a row action link, the links are not submit
// targets so the request is the one PrimeFaces.ab() would build for them.
func openDialogPayload(known map[string]string, linkID, render, viewState string) url.Values {
	return ajaxPayload(known, ajaxEvent{
		form:   form_search,
		source: linkID,
		render: render,
	}, viewState)
}

func serviceDatePayload(day time.Time, viewState string) url.Values {
	return ajaxPayload(map[string]string{
		field_service_date: day.Format(service_date_layout),
	}, ajaxEvent{
		form:   form_detail,
		source: widget_service_date,
		render: form_detail,
		event:  event_date_select,
	}, viewState)
}

func confirmDatePayload(day time.Time, viewState string) url.Values {
	return ajaxPayload(map[string]string{
		field_service_date: day.Format(service_date_layout),
	}, ajaxEvent{
		form:    form_detail,
		source:  widget_confirm_date,
		execute: form_detail,
		render:  form_detail,
	}, viewState)
}

func refreshLineItemsPayload(viewState string) url.Values {
	values := ajaxPayload(nil, ajaxEvent{
		form:   form_detail,
		source: line_items_table,
		render: line_items_table,
	}, viewState)
	values.Set(line_items_table+"_pagination", "true")
	values.Set(line_items_table+"_first", "0")
	values.Set(line_items_table+"_rows", line_items_rows_per_page)
	values.Set(line_items_table+"_encodeFeature", "true")
	values.Del(line_items_table)
	return values
}

func closeDialogPayload(dialog, viewState string) url.Values {
	return ajaxPayload(nil, ajaxEvent{
		form:   form_search,
		source: dialog,
		render: "@none",
		event:  event_close,
	}, viewState)
}
