// Package web は HTML テンプレートと共通ミドルウェアを提供します。
package web

import (
	"embed"
	"errors"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates は埋め込みテンプレートを読み込みます。
// ページテンプレート名はファイル名（例: "login.html"）です。
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"dict": dict,
	}).ParseFS(templateFS, "templates/*.html")
}

// MustTemplates は Templates の panic 版です。
func MustTemplates() *template.Template {
	return template.Must(Templates())
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict requires key/value pairs")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, errors.New("dict keys must be strings")
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
