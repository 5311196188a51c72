package api

import (
	"net/http"
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	// Start the session up front so the page's first API call reuses it.
	s.controller(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(studioPageHTML))
}

const studioPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Code Generator</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #0a0a0a;
    color: #e0e0e0;
    display: flex;
    justify-content: center;
    min-height: 100vh;
    padding: 48px 16px;
  }
  .card {
    background: #1a1a1a;
    border: 1px solid #333;
    border-radius: 16px;
    padding: 40px;
    max-width: 560px;
    width: 100%;
  }
  h1 { font-size: 22px; font-weight: 600; margin-bottom: 8px; text-align: center; }
  .subtitle { color: #888; font-size: 14px; margin-bottom: 28px; text-align: center; }
  .row { display: flex; gap: 8px; margin-bottom: 16px; }
  input[type=text] {
    flex: 1; padding: 10px 12px; border-radius: 8px;
    border: 1px solid #333; background: #0f0f0f; color: #e0e0e0;
  }
  button, .btn {
    padding: 10px 14px; border-radius: 8px; border: 0; cursor: pointer;
    background: #4ade80; color: #0a0a0a; font-weight: 600; font-size: 14px;
  }
  button:disabled { opacity: .5; cursor: default; }
  .secondary { background: #333; color: #e0e0e0; }
  label { display: block; font-size: 14px; color: #aaa; margin-bottom: 12px; }
  input[type=range] { width: 60%; vertical-align: middle; margin: 0 8px; }
  #logo-input { display: none; }
  #error { color: #f87171; font-size: 14px; min-height: 20px; margin-bottom: 12px; }
  #qr-section { display: none; text-align: center; margin-top: 24px; }
  #qr-container {
    display: inline-block; background: #fff; border-radius: 12px;
    padding: 12px; margin-bottom: 16px;
  }
  #qr-container svg { display: block; }
</style>
</head>
<body>
<div class="card">
  <h1>QR Code Generator</h1>
  <p class="subtitle">Create and download QR codes for any URL or text</p>

  <div class="row">
    <input type="text" id="text" placeholder="Enter URL or text">
    <button id="generate">Generate QR Code</button>
  </div>
  <p id="error"></p>

  <div class="row">
    <input type="file" id="logo-input" accept="image/*">
    <label for="logo-input" class="btn secondary" id="logo-label">Add Logo</label>
    <button class="secondary" id="remove-logo" style="display:none">Remove Logo</button>
  </div>
  <label id="logo-size-control" style="display:none">
    Logo Size: <input type="range" id="logo-size" min="20" max="35" value="30"><span id="logo-size-value">30%</span>
  </label>
  <label>
    QR Size: <input type="range" id="size" min="128" max="512" value="256"><span id="size-value">256px</span>
  </label>

  <div id="qr-section">
    <div id="qr-container"></div>
    <div><button id="download">Download QR Code</button></div>
  </div>
</div>
<script>
(function() {
  var el = function(id) { return document.getElementById(id); };
  var loading = false;

  function render(state) {
    el('error').textContent = state.error || '';
    el('size').value = state.size;
    el('size-value').textContent = state.size + 'px';
    el('logo-size').value = state.logo_percent;
    el('logo-size-value').textContent = state.logo_percent + '%';
    var hasLogo = !!state.logo;
    el('logo-label').textContent = hasLogo ? 'Change Logo' : 'Add Logo';
    el('remove-logo').style.display = hasLogo ? '' : 'none';
    el('logo-size-control').style.display = hasLogo ? '' : 'none';
    if (state.svg) {
      el('qr-container').innerHTML = state.svg;
      el('qr-section').style.display = 'block';
    }
  }

  function setLoading(on, label) {
    loading = on;
    el('generate').disabled = on;
    el('download').disabled = on;
    el('generate').textContent = on && label === 'generate' ? 'Generating...' : 'Generate QR Code';
    el('download').textContent = on && label === 'download' ? 'Downloading...' : 'Download QR Code';
  }

  function call(method, path, body, headers) {
    return fetch(path, { method: method, body: body, headers: headers || {} })
      .then(function(r) {
        return r.json().then(function(data) {
          if (!r.ok) { el('error').textContent = data.error || 'Request failed'; return null; }
          render(data);
          return data;
        });
      })
      .catch(function() { el('error').textContent = 'Connection error'; });
  }

  function sendJSON(method, path, obj) {
    return call(method, path, JSON.stringify(obj), { 'Content-Type': 'application/json' });
  }

  function generate() {
    if (loading) return;
    setLoading(true, 'generate');
    sendJSON('POST', '/api/generate', {
      text: el('text').value,
      size: parseInt(el('size').value, 10),
      logo_percent: parseInt(el('logo-size').value, 10)
    }).then(function() { setLoading(false); });
  }

  function download() {
    if (loading) return;
    setLoading(true, 'download');
    fetch('/api/download')
      .then(function(r) {
        if (r.status !== 200) return;
        var name = 'qr-code-' + Date.now() + '.png';
        var m = /filename="([^"]+)"/.exec(r.headers.get('Content-Disposition') || '');
        if (m) name = m[1];
        return r.blob().then(function(blob) {
          var url = URL.createObjectURL(blob);
          var a = document.createElement('a');
          a.href = url;
          a.download = name;
          document.body.appendChild(a);
          a.click();
          document.body.removeChild(a);
          URL.revokeObjectURL(url);
        });
      })
      .finally(function() { setLoading(false); });
  }

  el('generate').addEventListener('click', generate);
  el('text').addEventListener('keypress', function(e) { if (e.key === 'Enter') generate(); });
  el('download').addEventListener('click', download);
  el('size').addEventListener('input', function() {
    el('size-value').textContent = el('size').value + 'px';
  });
  el('size').addEventListener('change', function() {
    sendJSON('PUT', '/api/size', { size: parseInt(el('size').value, 10) });
  });
  el('logo-size').addEventListener('change', function() {
    sendJSON('PUT', '/api/logo/size', { percent: parseInt(el('logo-size').value, 10) });
  });
  el('logo-input').addEventListener('change', function(e) {
    var file = e.target.files[0];
    if (!file) return;
    var form = new FormData();
    form.append('logo', file);
    call('POST', '/api/logo', form);
  });
  el('remove-logo').addEventListener('click', function() {
    el('logo-input').value = '';
    call('DELETE', '/api/logo');
  });

  call('GET', '/api/state');
})();
</script>
</body>
</html>`
