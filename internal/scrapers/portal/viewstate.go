package portal

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

type update struct {
	id      string
	content string
}

// partialResponse is a parsed JSF <partial-response> envelope.
type partialResponse struct {
	updates []update
	errors  []string
}

func parsePartialResponse(body []byte) (partialResponse, bool) {
	trimmed := bytes.TrimSpace(body)
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) && !bytes.HasPrefix(trimmed, []byte("<"+partial_response_root)) {
		return partialResponse{}, false
	}

	doc := etree.NewDocument()
	err := doc.ReadFromBytes(trimmed)
	if err != nil {
		return partialResponse{}, false
	}
	root := doc.Root()
	if root == nil || root.Tag != partial_response_root {
		return partialResponse{}, false
	}

	var out partialResponse
	for _, el := range root.FindElements("//update") {
		out.updates = append(out.updates, update{
			id:      el.SelectAttrValue("id", ""),
			content: el.Text(),
		})
	}
	for _, el := range root.FindElements("//" + partial_response_error_el) {
		msg := el.FindElement("error-message")
		if msg != nil {
			out.errors = append(out.errors, strings.TrimSpace(msg.Text()))
			continue
		}
		out.errors = append(out.errors, strings.TrimSpace(el.Text()))
	}
	return out, true
}

func isViewStateUpdate(id string) bool {
	return strings.Contains(id, field_view_state)
}

// fragmentHTML returns the markup a response renders: the concatenated updates of a
// partial response, or the body itself for a full page.
func fragmentHTML(body []byte) []byte {
	partial, ok := parsePartialResponse(body)
	if !ok {
		return body
	}
	var out bytes.Buffer
	for _, u := range partial.updates {
		if isViewStateUpdate(u.id) {
			continue
		}
		out.WriteString(u.content)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

var viewStateFallbacks = []*regexp.Regexp{
	regexp.MustCompile(`<update id="[^"]*javax\.faces\.ViewState[^"]*">\s*<!\[CDATA\[(.*?)\]\]>`),
	regexp.MustCompile(`name="javax\.faces\.ViewState"[^>]*?value="([^"]*)"`),
	regexp.MustCompile(`value="([^"]*)"[^>]*?name="javax\.faces\.ViewState"`),
}

// extractViewState finds the state token in a response. It tries, in order, the hidden
// input of a rendered page, the last view state update of a partial response and a
// regex over the raw text. Absence is reported through the boolean, never as "".
func extractViewState(body []byte) (string, bool) {
	partial, isPartial := parsePartialResponse(body)

	if !isPartial {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err == nil {
			value, exists := doc.Find(`input[name="javax.faces.ViewState"]`).Last().Attr("value")
			if exists && value != "" {
				return value, true
			}
		}
	}

	if isPartial {
		for i := len(partial.updates) - 1; i >= 0; i-- {
			u := partial.updates[i]
			if !isViewStateUpdate(u.id) {
				continue
			}
			value := strings.TrimSpace(u.content)
			if value != "" {
				return value, true
			}
		}
	}

	text := string(body)
	for _, re := range viewStateFallbacks {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		value := strings.TrimSpace(matches[len(matches)-1][1])
		if value != "" {
			return value, true
		}
	}

	return "", false
}
