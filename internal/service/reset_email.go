package service

import (
	"bytes"
	"html/template"
)

const resetEmailSubject = "Password Reset Request"

var resetEmailTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family:Arial,sans-serif;background:#f4f4f4;padding:20px;">
  <div style="max-width:480px;margin:0 auto;background:#fff;border-radius:8px;padding:32px;">
    <h2 style="color:#333;">Hello {{.Name}}</h2>
    <p>Please use the url below to reset your password.</p>
    <p>This reset link is valid for only {{.ValidFor}}.</p>
    <p><a href="{{.URL}}" clicktracking="off">{{.URL}}</a></p>
    <hr style="border:none;border-top:1px solid #eee;margin:24px 0;">
    <p style="color:#999;font-size:12px;">Regards</p>
  </div>
</body>
</html>`))

type resetEmailData struct {
	Name     string
	URL      string
	ValidFor string
}

func buildResetEmail(data resetEmailData) (string, error) {
	var buf bytes.Buffer
	if err := resetEmailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
