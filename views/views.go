// Package views holds the operator-facing pages as hand-built templ
// components: a login form and the import page (upload, preview, execute).
package views

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/wximport/importer"
)

func page(title string, body func(buf *bytes.Buffer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		buf.WriteString("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		buf.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		buf.WriteString("<title>" + html.EscapeString(title) + "</title>")
		buf.WriteString("<style>" + baseCSS + "</style>")
		buf.WriteString("</head><body><main>")
		body(&buf)
		buf.WriteString("</main></body></html>")
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// Login renders the operator login form.
func Login(site string, showError bool, csrfToken string) templ.Component {
	return page(site+" — login", func(buf *bytes.Buffer) {
		buf.WriteString("<h1>" + html.EscapeString(site) + "</h1>")
		if showError {
			buf.WriteString("<p class=\"error\">Wrong password.</p>")
		}
		buf.WriteString("<form method=\"post\" action=\"/admin/login/\">")
		buf.WriteString("<input type=\"hidden\" name=\"_csrf\" value=\"" + html.EscapeString(csrfToken) + "\">")
		buf.WriteString("<label>Password <input type=\"password\" name=\"password\" autofocus></label>")
		buf.WriteString("<button type=\"submit\">Log in</button>")
		buf.WriteString("</form>")
	})
}

// ImportPage renders the import workflow page: export upload with duplicate
// policy, candidate preview with selection, execution outcome, and the
// currently persisted content.
func ImportPage(site string, records []importer.Record, csrfToken string) templ.Component {
	return page(site+" — import", func(buf *bytes.Buffer) {
		buf.WriteString("<h1>" + html.EscapeString(site) + "</h1>")
		buf.WriteString("<form method=\"post\" action=\"/admin/logout/\" class=\"logout\">")
		buf.WriteString("<input type=\"hidden\" name=\"_csrf\" value=\"" + html.EscapeString(csrfToken) + "\">")
		buf.WriteString("<button type=\"submit\">Log out</button></form>")

		buf.WriteString("<section id=\"import\" data-csrf=\"" + html.EscapeString(csrfToken) + "\">")
		buf.WriteString("<h2>Import WordPress export</h2>")
		buf.WriteString("<p><input type=\"file\" id=\"export-file\" accept=\".xml,text/xml\"> ")
		buf.WriteString("<select id=\"policy\"><option value=\"skip\">Skip duplicates</option>")
		buf.WriteString("<option value=\"overwrite\">Overwrite duplicates</option></select> ")
		buf.WriteString("<button id=\"preview-btn\">Preview</button> ")
		buf.WriteString("<button id=\"execute-btn\" disabled>Import selected</button></p>")
		buf.WriteString("<div id=\"preview\"></div><div id=\"outcome\"></div>")
		buf.WriteString("</section>")

		buf.WriteString("<section><h2>Content</h2>")
		if len(records) == 0 {
			buf.WriteString("<p>Nothing imported yet.</p>")
		} else {
			buf.WriteString("<table><thead><tr><th>Title</th><th>Slug</th><th>Status</th><th>Published</th></tr></thead><tbody>")
			for _, r := range records {
				status := "draft"
				if r.Published {
					status = "published"
				}
				date := ""
				if !r.PublishedAt.IsZero() {
					date = r.PublishedAt.Format("2006-01-02")
				}
				buf.WriteString("<tr><td>" + html.EscapeString(r.Title) + "</td>")
				buf.WriteString("<td>" + html.EscapeString(r.Slug) + "</td>")
				buf.WriteString("<td>" + status + "</td>")
				buf.WriteString("<td>" + date + "</td></tr>")
			}
			buf.WriteString("</tbody></table>")
			buf.WriteString("<p>" + strconv.Itoa(len(records)) + " records</p>")
		}
		buf.WriteString("</section>")

		fmt.Fprintf(buf, "<script>%s</script>", importJS)
	})
}

const baseCSS = `body{font:16px/1.5 system-ui,sans-serif;margin:2rem auto;max-width:64rem;padding:0 1rem;color:#222}
table{border-collapse:collapse;width:100%}th,td{border-bottom:1px solid #ddd;text-align:left;padding:.3rem .5rem}
.error{color:#b00}.logout{float:right}button{cursor:pointer}`

// importJS drives the preview/execute round trip: upload the export for
// parsing, let the operator tick candidates, post the selected subset back,
// and show the outcome counts plus per-item errors.
const importJS = `
(function () {
  var section = document.getElementById('import');
  var csrf = section.dataset.csrf;
  var candidates = [];

  function esc(s) {
    var d = document.createElement('div');
    d.textContent = s == null ? '' : s;
    return d.innerHTML;
  }

  document.getElementById('preview-btn').addEventListener('click', function () {
    var file = document.getElementById('export-file').files[0];
    if (!file) { alert('Choose an export file first.'); return; }
    var form = new FormData();
    form.append('export', file);
    form.append('policy', document.getElementById('policy').value);
    fetch('/admin/import/upload/', {
      method: 'POST',
      headers: { 'X-CSRF-Token': csrf },
      body: form
    }).then(function (r) { return r.json(); }).then(function (data) {
      if (data.error) { alert(data.error); return; }
      candidates = data.candidates || [];
      var rows = candidates.map(function (c, i) {
        return '<tr><td><input type="checkbox" checked data-idx="' + i + '"></td>' +
          '<td>' + esc(c.title) + '</td><td>' + esc(c.slug) + '</td>' +
          '<td>' + esc(c.status) + '</td><td>' + esc(c.action) + '</td></tr>';
      }).join('');
      document.getElementById('preview').innerHTML =
        '<p>' + data.total + ' candidates</p>' +
        '<table><thead><tr><th></th><th>Title</th><th>Slug</th><th>Status</th><th>Action</th></tr></thead>' +
        '<tbody>' + rows + '</tbody></table>';
      document.getElementById('execute-btn').disabled = candidates.length === 0;
    });
  });

  document.getElementById('execute-btn').addEventListener('click', function () {
    var selected = [];
    document.querySelectorAll('#preview input[type=checkbox]').forEach(function (box) {
      if (box.checked) { selected.push(candidates[box.dataset.idx]); }
    });
    fetch('/admin/import/execute/', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json', 'X-CSRF-Token': csrf },
      body: JSON.stringify({
        policy: document.getElementById('policy').value,
        candidates: selected
      })
    }).then(function (r) { return r.json(); }).then(function (out) {
      if (out.error) { alert(out.error); return; }
      var htmlOut = '<p>' + out.successCount + ' imported, ' + out.skipCount +
        ' skipped, ' + out.errorCount + ' failed.</p>';
      (out.errors || []).forEach(function (e) {
        htmlOut += '<p class="error">' + esc(e.title) + ': ' + esc(e.message) + '</p>';
      });
      document.getElementById('outcome').innerHTML = htmlOut;
    });
  });
})();
`
