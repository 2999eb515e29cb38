// Package templates renders the roster's HTML with templ components.
//
// The .templ files are the sources; run `templ generate` after editing them.
package templates

import (
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/roster/internal/core"
)

// PageSizes are the choices offered in the rows-per-page selector.
var PageSizes = []int{5, 10, 25, 50, 100}

// UploadAccept lists the extensions the upload picker offers.
const UploadAccept = ".csv,.xlsx,.xls"

// TableParams is what the table partial needs besides the snapshot.
type TableParams struct {
	SessionID   string
	FileName    string
	MailEnabled bool
	Snapshot    core.Snapshot
}

// headerLabel marks the sorted column with its direction.
func headerLabel(sort core.SortSpec, h string) string {
	if sort.Column != h {
		return h
	}
	if sort.Ascending {
		return h + " ▲"
	}
	return h + " ▼"
}

func rowID(id core.RowID) string { return strconv.Itoa(int(id)) }

func exportURL(sessionID string) templ.SafeURL {
	return templ.SafeURL("/api/sessions/" + url.PathEscape(sessionID) + "/export")
}

const pageStyle = `
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
.filters,.toolbar,.pager{display:flex;gap:.5rem;align-items:center;margin:.75rem 0}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #ddd;padding:.35rem .5rem;text-align:left}
th[data-sort]{cursor:pointer;user-select:none}
.alert{background:#fdecea;border:1px solid #f5c2c0;padding:.75rem;margin:.75rem 0}
.empty{color:#777}
.btn{padding:.3rem .7rem;border:1px solid #888;background:#f6f6f6;text-decoration:none;color:inherit}
`

const pageScript = `
(function(){
  const root = () => document.getElementById('roster');
  const sid = () => root().dataset.session;
  const errors = document.getElementById('errors');

  async function call(method, path, body){
    const opts = {method, headers:{'HX-Request':'true'}};
    if (body instanceof FormData) { opts.body = body; }
    else if (body) { opts.body = JSON.stringify(body); opts.headers['Content-Type'] = 'application/json'; }
    const res = await fetch('/api/sessions/' + sid() + path, opts);
    const html = await res.text();
    if (!res.ok) { errors.innerHTML = html; return; }
    errors.innerHTML = '';
    root().outerHTML = html;
    mark();
  }

  function mark(){
    const all = document.querySelector('[data-action="select-all"]');
    if (all) all.indeterminate = all.dataset.tristate === 'some';
  }

  document.addEventListener('change', e => {
    const t = e.target;
    if (t.id === 'file' && t.files.length) {
      const fd = new FormData(); fd.append('file', t.files[0]);
      call('POST', '/upload', fd); t.value = '';
    } else if (t.dataset.action === 'toggle') {
      call('POST', '/rows/' + t.dataset.row + '/toggle');
    } else if (t.dataset.action === 'select-all') {
      call('POST', '/select-all', {checked: t.checked});
    } else if (t.dataset.event) {
      call('POST', '/events', {type: t.dataset.event, value: t.value});
    }
  });

  document.addEventListener('click', async e => {
    const t = e.target;
    if (t.tagName === 'TH' && t.dataset.sort) {
      call('POST', '/events', {type:'sort', value:t.dataset.sort});
    } else if (t.tagName === 'BUTTON' && t.dataset.event) {
      call('POST', '/events', {type:t.dataset.event});
    } else if (t.dataset.action === 'mail') {
      const status = document.getElementById('mail-status');
      const res = await fetch('/api/sessions/' + sid() + '/mail', {method:'POST'});
      const body = await res.json();
      if (!res.ok) { status.textContent = body.message; return; }
      status.textContent = 'Sending emails…';
      const poll = async () => {
        const r = await (await fetch('/api/mail/' + body.batch_id)).json();
        if (r.status === 'running') { setTimeout(poll, 1000); return; }
        status.textContent = r.summary;
      };
      poll();
    }
  });

  let timer;
  document.addEventListener('input', e => {
    const t = e.target;
    if (t.dataset.event !== 'search') return;
    clearTimeout(timer);
    timer = setTimeout(() => call('POST', '/events', {type:'search', value:t.value}), 250);
  });

  mark();
})();
`

