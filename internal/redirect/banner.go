package redirect

import "html/template"

// bannerCSP replaces the site-wide policy so the page's inline style and
// script can run.
const bannerCSP = "default-src 'none'; style-src 'unsafe-inline'; script-src 'unsafe-inline'"

// bannerTemplate takes the destination URL as its data.
var bannerTemplate = template.Must(template.New("banner").Parse(`<!doctype html>
<html lang="en"><head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="0.6;url={{.}}">
<title>Redirecting…</title>
<style>
  body { font-family: system-ui,-apple-system,Segoe UI,Roboto,Ubuntu; background:#0b0f13; color:#e5e7eb; display:flex; align-items:center; justify-content:center; height:100vh; margin:0; }
  .box { text-align:center; max-width:640px; padding:28px 32px; background:#111827; border:1px solid #1f2937; border-radius:14px; box-shadow:0 10px 40px rgba(0,0,0,.35); }
  h1 { margin:0 0 10px; font-weight:700; font-size:22px; letter-spacing:.2px; }
  p  { margin:8px 0 0; line-height:1.5; color:#9ca3af; }
  a  { color:#93c5fd; text-decoration:none; }
</style>
<script>
  setTimeout(function(){ window.location.replace({{.}}); }, 600);
</script>
</head><body>
  <div class="box">
    <h1>Kuwait IGCSE Portal</h1>
    <p>We're opening WhatsApp for you… If it doesn't open, <a href="{{.}}">tap here</a>.</p>
  </div>
</body></html>
`))
