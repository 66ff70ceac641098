package server

import "github.com/olehluchkiv/diverify/internal/diagram"

// pageData holds all data passed to the HTML template.
type pageData struct {
	Input     string
	RunID     string
	Slides    []diagram.Slide
	Findings  []diagram.InteractiveService
	Invalid   int
	Error     string
	UpdatedAt string
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>diverify: {{.Input}}</title>
  <style>
    *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }

    body {
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      display: flex;
      flex-direction: column;
      align-items: center;
      min-height: 100vh;
      padding: 1rem;
      background-color: #f8f9fa;
      color: #212529;
    }

    @media (prefers-color-scheme: dark) {
      body { background-color: #1a1a2e; color: #e0e0e0; }
      .controls button { background-color: #2d2d44; color: #e0e0e0; border-color: #444; }
      .finding { background-color: #2d2d44; }
    }

    h1 { margin: 1rem 0 0.25rem; font-size: 1.4rem; font-weight: 600; }
    .meta { font-size: 0.85rem; color: #888; margin-bottom: 1rem; }
    .error { color: #c0392b; font-weight: 600; margin-bottom: 1rem; white-space: pre-wrap; }

    .controls {
      display: flex;
      gap: 0.5rem;
      margin-bottom: 1rem;
      flex-wrap: wrap;
      justify-content: center;
      align-items: center;
    }
    .controls button {
      padding: 0.4rem 0.9rem;
      font-size: 0.9rem;
      border: 1px solid #ccc;
      border-radius: 6px;
      background-color: #ffffff;
      color: #212529;
      cursor: pointer;
    }

    .layout { display: flex; gap: 1.5rem; width: 100%; align-items: flex-start; }
    .findings { flex: 0 0 32rem; max-height: 85vh; overflow: auto; }
    .finding { background-color: #fff; border-left: 4px solid #c0392b; border-radius: 4px; padding: 0.6rem 0.8rem; margin-bottom: 0.8rem; }
    .finding h2 { font-size: 1rem; margin-bottom: 0.4rem; }
    .finding pre { white-space: pre-wrap; font-size: 0.85rem; margin-bottom: 0.5rem; }
    .all-good { color: #228B22; font-weight: 600; }

    .diagram-viewport { flex: 1; overflow: auto; padding: 1rem; }
    .diagram-container { width: 100%; transform-origin: top left; transition: transform 0.2s ease; }
    .slide { display: none; }
    .slide.active { display: block; }
    .mermaid svg .nodeLabel { font-size: 16px !important; }
  </style>
</head>
<body>
  <h1>diverify: {{.Input}}</h1>
  <div class="meta">run <span id="run-id">{{.RunID}}</span> · updated {{.UpdatedAt}}</div>
  {{if .Error}}<div class="error">{{.Error}}</div>{{end}}

  <div class="controls">
    <button id="prev" title="Previous slide">&larr;</button>
    <span id="slide-title"></span>
    <button id="next" title="Next slide">&rarr;</button>
    <button id="zoom-in" title="Zoom In">+ Zoom In</button>
    <button id="zoom-out" title="Zoom Out">- Zoom Out</button>
    <button id="zoom-reset" title="Reset Zoom">Reset</button>
  </div>

  <div class="layout">
    <div class="findings">
      {{if .Findings}}
      {{range .Findings}}
      <div class="finding" id="finding-{{.ID}}">
        <h2>{{.Summary}}</h2>
        {{range .Messages}}<pre>{{.}}</pre>{{end}}
      </div>
      {{end}}
      {{else}}
      <div class="all-good">All services are resolvable.</div>
      {{end}}
    </div>

    <div class="diagram-viewport">
      <div class="diagram-container" id="diagram-container">
        {{range $i, $s := .Slides}}
        <div class="slide{{if eq $i 0}} active{{end}}" data-title="{{$s.Title}}">
          <pre class="mermaid">{{$s.Mermaid}}</pre>
        </div>
        {{end}}
      </div>
    </div>
  </div>

  <script src="https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.min.js"></script>
  <script>
    mermaid.initialize({ startOnLoad: true, theme: 'base', securityLevel: 'strict' });

    (function() {
      var slides = document.querySelectorAll('.slide');
      var current = 0;
      var title = document.getElementById('slide-title');

      function show(i) {
        if (slides.length === 0) { return; }
        slides[current].classList.remove('active');
        current = (i + slides.length) % slides.length;
        slides[current].classList.add('active');
        title.textContent = slides[current].dataset.title + ' (' + (current + 1) + '/' + slides.length + ')';
      }
      show(0);
      document.getElementById('prev').addEventListener('click', function() { show(current - 1); });
      document.getElementById('next').addEventListener('click', function() { show(current + 1); });

      var scale = 1;
      var container = document.getElementById('diagram-container');
      function applyZoom() { container.style.transform = 'scale(' + scale + ')'; }
      document.getElementById('zoom-in').addEventListener('click', function() { scale = Math.min(10, scale + 0.15); applyZoom(); });
      document.getElementById('zoom-out').addEventListener('click', function() { scale = Math.max(0.1, scale - 0.15); applyZoom(); });
      document.getElementById('zoom-reset').addEventListener('click', function() { scale = 1; applyZoom(); });

      // Reload when a watched run replaces this one.
      var runId = {{.RunID}};
      setInterval(function() {
        fetch('/api/report').then(function(r) { return r.json(); }).then(function(rep) {
          if (rep.runId && rep.runId !== runId) { location.reload(); }
        }).catch(function() {});
      }, 2000);
    })();
  </script>
</body>
</html>
`
