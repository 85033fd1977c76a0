package portal

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractFormFields returns the current value of every named input and select inside
// the form with the given id. Selects take the value of their selected option or ""
// when nothing is selected. Partial responses are unwrapped before scraping.
func extractFormFields(body []byte, formID string) map[string]string {
	fields := map[string]string{}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(fragmentHTML(body)))
	if err != nil {
		return fields
	}

	form := doc.Find(`form[id="` + formID + `"]`)
	form.Find("input").Each(func(_ int, input *goquery.Selection) {
		name := input.AttrOr("name", "")
		if name == "" {
			return
		}
		switch strings.ToLower(input.AttrOr("type", "text")) {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
		}
		fields[name] = input.AttrOr("value", "")
	})
	form.Find("select").Each(func(_ int, sel *goquery.Selection) {
		name := sel.AttrOr("name", "")
		if name == "" {
			return
		}
		fields[name] = sel.Find("option[selected]").First().AttrOr("value", "")
	})

	return fields
}
