package web

import (
	"fmt"

	"github.com/rohanthewiz/element"
	"github.com/rohanthewiz/rweb"
	"vedit/catalog"
)

// statusPageHandler serves the service status page
func statusPageHandler(c rweb.Context) error {
	return c.WriteHTML(generateStatusPage(deps.Catalog.List()))
}

func generateStatusPage(models []catalog.ModelDescriptor) string {
	b := element.NewBuilder()

	b.Html().R(
		b.Head().R(
			b.Title().T("vedit - plan engine"),
			b.Meta("charset", "UTF-8"),
			b.Meta("name", "viewport", "content", "width=device-width, initial-scale=1.0"),
			b.Style().T(statusPageCSS()),
		),
		b.Body().R(
			b.Header().R(
				b.H1().T("vedit"),
				b.P().T("AI video edit planning and step execution"),
			),
			b.Main().R(
				b.Section().R(
					b.H2().T("Model Catalog"),
					b.Table().R(
						b.Tr().R(
							b.Th().T("Model"),
							b.Th().T("Category"),
							b.Th().T("Est. Time"),
							b.Th().T("Mask"),
							b.Th().T("Prompt"),
						),
						element.ForEach(models, func(m catalog.ModelDescriptor) {
							b.Tr().R(
								b.Td().T(m.Name),
								b.Td().T(string(m.Category)),
								b.Td().T(fmt.Sprintf("%ds", m.EstimatedTime)),
								b.Td().T(yesNo(m.RequiresMask)),
								b.Td().T(yesNo(m.RequiresPrompt)),
							)
						}),
					),
				),
				b.Section().R(
					b.H2().T("Live Events"),
					b.Div("id", "events", "class", "events").T("Waiting for events..."),
				),
			),
			b.Script().T(statusPageJS()),
		),
	)

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func statusPageCSS() string {
	return `
		body { font-family: -apple-system, sans-serif; margin: 0; background: #1a1b26; color: #c0caf5; }
		header { padding: 1rem 2rem; border-bottom: 1px solid #2f334d; }
		header p { color: #565f89; margin: 0.2rem 0 0; }
		main { padding: 1rem 2rem; }
		h1 { margin: 0; }
		table { border-collapse: collapse; width: 100%; max-width: 720px; }
		th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #2f334d; }
		th { color: #7aa2f7; }
		.events { font-family: monospace; font-size: 0.85rem; background: #16161e;
			border: 1px solid #2f334d; border-radius: 4px; padding: 0.8rem;
			max-height: 300px; overflow-y: auto; white-space: pre-wrap; }
	`
}

func statusPageJS() string {
	return `
		const box = document.getElementById('events');
		const es = new EventSource('/events');
		let first = true;
		es.onmessage = (ev) => {
			if (first) { box.textContent = ''; first = false; }
			box.textContent += ev.data + '\n';
			box.scrollTop = box.scrollHeight;
		};
	`
}
