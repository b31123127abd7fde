package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"lawerapp-backend/models"
)

const (
	aiDisclaimer       = "Документ подготовлен с помощью искусственного интеллекта и носит информационный характер. Перед использованием проконсультируйтесь с юристом."
	productAttribution = "Сформировано в LawerApp"
)

// structuredDocument is a generated body wrapped with its header and footer
type structuredDocument struct {
	Title         string
	Description   string
	CategoryLabel string
	CreatedAt     string
	Paragraphs    []string
	Disclaimer    string
	Attribution   string
}

func structureDocument(tmpl models.DocumentTemplate, body string, createdAt time.Time) structuredDocument {
	return structuredDocument{
		Title:         tmpl.Name,
		Description:   tmpl.Description,
		CategoryLabel: tmpl.Category.Label(),
		CreatedAt:     createdAt.Format("02.01.2006 15:04"),
		Paragraphs:    bodyParagraphs(body),
		Disclaimer:    aiDisclaimer,
		Attribution:   productAttribution,
	}
}

func bodyParagraphs(body string) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	parts := paragraphBreak.Split(strings.TrimSpace(body), -1)
	paragraphs := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			paragraphs = append(paragraphs, part)
		}
	}
	return paragraphs
}

var htmlDocumentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}).Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Times New Roman", serif; font-size: 14pt; line-height: 1.5; max-width: 800px; margin: 40px auto; color: #000; }
.document-header { text-align: center; margin-bottom: 32px; }
.document-header h1 { font-size: 18pt; margin-bottom: 8px; }
.document-meta { font-size: 11pt; color: #555; }
.document-body p { text-align: justify; text-indent: 1.25cm; margin: 0 0 12px; }
.document-footer { margin-top: 48px; border-top: 1px solid #ccc; padding-top: 12px; font-size: 10pt; color: #666; }
</style>
</head>
<body>
<div class="document-header">
<h1>{{.Title}}</h1>
<p class="document-description">{{.Description}}</p>
<p class="document-meta">{{.CategoryLabel}} · Дата создания: {{.CreatedAt}}</p>
</div>
<div class="document-body">
{{- range .Paragraphs}}
<p>{{range $i, $line := lines .}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
{{- end}}
</div>
<div class="document-footer">
<p>{{.Disclaimer}}</p>
<p>{{.Attribution}}</p>
</div>
</body>
</html>
`))

type documentFormatter func(doc structuredDocument) (string, error)

func formatHTML(doc structuredDocument) (string, error) {
	var buf bytes.Buffer
	if err := htmlDocumentTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("failed to render html document: %w", err)
	}
	return buf.String(), nil
}

// pdf and docx share the html rendition; binary encoding happens at export time
var documentFormatters = map[models.OutputFormat]documentFormatter{
	models.FormatHTML: formatHTML,
	models.FormatPDF:  formatHTML,
	models.FormatDOCX: formatHTML,
}
