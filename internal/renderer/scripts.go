package renderer

import (
	"encoding/json"
	"fmt"
)

// sanitizeScript walks the rendered DOM and returns a JSON string of the form
// {clean_dom: [...], suspicious_nodes: [...]}. Only elements that own text
// are reported. Interactive elements get a data-vv-id handle.
const sanitizeScript = `(() => {
  const INTERACTIVE = new Set(['BUTTON', 'A', 'INPUT', 'SELECT', 'TEXTAREA']);
  const SKIP = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'META', 'LINK']);

  const parseColor = (c) => {
    const m = c && c.match(/rgba?\(([^)]+)\)/);
    if (!m) return null;
    const p = m[1].split(',').map((v) => parseFloat(v));
    return { r: p[0], g: p[1], b: p[2], a: p.length > 3 ? p[3] : 1 };
  };
  const luminance = (c) => {
    const ch = [c.r, c.g, c.b].map((v) => {
      v /= 255;
      return v <= 0.03928 ? v / 12.92 : Math.pow((v + 0.055) / 1.055, 2.4);
    });
    return 0.2126 * ch[0] + 0.7152 * ch[1] + 0.0722 * ch[2];
  };
  const background = (el) => {
    for (let n = el; n && n.nodeType === 1; n = n.parentElement) {
      const bg = parseColor(getComputedStyle(n).backgroundColor);
      if (bg && bg.a > 0) return bg;
    }
    return { r: 255, g: 255, b: 255, a: 1 };
  };
  const contrast = (el, style) => {
    const fg = parseColor(style.color);
    if (!fg) return 21;
    const l1 = luminance(fg);
    const l2 = luminance(background(el));
    return (Math.max(l1, l2) + 0.05) / (Math.min(l1, l2) + 0.05);
  };
  const ownText = (el) => {
    if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA') {
      return (el.value || el.placeholder || '').trim();
    }
    let t = '';
    for (const n of el.childNodes) {
      if (n.nodeType === 3) t += n.textContent;
    }
    return t.replace(/\s+/g, ' ').trim();
  };
  const occluded = (el, rect) => {
    const x = rect.left + rect.width / 2;
    const y = rect.top + rect.height / 2;
    if (x < 0 || y < 0 || x > innerWidth || y > innerHeight) return false;
    const top = document.elementFromPoint(x, y);
    return !!top && top !== el && !el.contains(top) && !top.contains(el);
  };

  const clean = [];
  const suspicious = [];
  let seq = 0;

  for (const el of document.body ? document.body.querySelectorAll('*') : []) {
    if (SKIP.has(el.tagName)) continue;
    const text = ownText(el);
    if (!text) continue;

    const style = getComputedStyle(el);
    const rect = el.getBoundingClientRect();
    const reasons = [];
    if (parseFloat(style.opacity) < 0.1) reasons.push('opacity:' + style.opacity);
    if (style.display === 'none') reasons.push('display:none');
    if (style.visibility === 'hidden') reasons.push('visibility:hidden');
    if (rect.width < 2 || rect.height < 2) reasons.push('size:' + Math.round(rect.width) + 'x' + Math.round(rect.height));
    const ratio = contrast(el, style);
    if (ratio < 1.5) reasons.push('contrast:' + ratio.toFixed(2));

    if (reasons.length > 0) {
      suspicious.push({ text: text, tag: el.tagName, reasons: reasons.join(', ') });
      continue;
    }

    const node = { text: text, tag: el.tagName, interactive: INTERACTIVE.has(el.tagName), occluded: occluded(el, rect) };
    if (node.interactive) {
      node.vv_id = 'vv-' + (++seq);
      el.setAttribute('data-vv-id', node.vv_id);
    }
    clean.push(node);
  }

  return JSON.stringify({ clean_dom: clean, suspicious_nodes: suspicious });
})()`

// watchdogTemplate reports text injected after load. %s receives the JSON
// encoded alert endpoint.
const watchdogTemplate = `(() => {
  const endpoint = %s;
  const report = (details) => {
    try {
      fetch(endpoint, {
        method: 'POST',
        headers: { 'Content-Type': 'application/json' },
        body: JSON.stringify({ url: location.href, alert_type: 'DYNAMIC_INJECTION', details: details }),
        keepalive: true,
      }).catch(() => {});
    } catch (e) {}
  };
  const observer = new MutationObserver((mutations) => {
    for (const m of mutations) {
      for (const n of m.addedNodes) {
        const text = (n.textContent || '').replace(/\s+/g, ' ').trim();
        if (text.length > 2) {
          const tag = n.nodeType === 1 ? n.tagName : '#text';
          report('Injected ' + tag + ': ' + text.slice(0, 200));
        }
      }
    }
  });
  window.addEventListener('load', () => {
    if (document.body) observer.observe(document.body, { childList: true, subtree: true });
  });
})()`

// watchdogScript renders the watchdog for the given alert endpoint
func watchdogScript(endpoint string) (string, error) {
	encoded, err := json.Marshal(endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to encode watchdog endpoint; %w", err)
	}
	return fmt.Sprintf(watchdogTemplate, encoded), nil
}
