package main

import (
	"errors"
	"path/filepath"
	"strings"

	"lawerapp-backend/models"
)

// buildDocument derives a knowledge document from a file name and its text
func buildDocument(filename, content string, opts ingestOptions) (models.KnowledgeDocument, error) {
	id := strings.TrimSuffix(filename, filepath.Ext(filename))
	if id == "" {
		return models.KnowledgeDocument{}, errors.New("empty document id")
	}

	area := models.LegalArea(opts.area)
	if area == "" {
		area = detectLegalArea(filename)
	}
	if area == "" {
		return models.KnowledgeDocument{}, errors.New("could not determine legal area, pass --area")
	}

	sourceType := detectSourceType(filename, content)
	authority := opts.authority
	if authority == "" {
		authority = defaultAuthority(sourceType)
	}

	title := firstLine(content)
	if title == "" {
		title = id
	}

	return models.KnowledgeDocument{
		ID:           id,
		Title:        title,
		Content:      content,
		LegalArea:    area,
		Jurisdiction: models.JurisdictionRussia,
		DisputeType:  opts.disputeType,
		Authority:    authority,
		SourceType:   sourceType,
	}, nil
}

var areaKeywords = []struct {
	area     models.LegalArea
	keywords []string
}{
	{models.AreaConsumerProtection, []string{"consumer", "потреб", "zpp"}},
	{models.AreaLabor, []string{"labor", "labour", "трудов", "tk_rf"}},
	{models.AreaFamily, []string{"family", "семейн"}},
	{models.AreaTax, []string{"tax", "налог"}},
	{models.AreaCriminal, []string{"criminal", "уголовн"}},
	{models.AreaAdministrative, []string{"administrative", "koap", "административн"}},
	{models.AreaCorporate, []string{"corporate", "корпоратив", "акционер"}},
	{models.AreaCivil, []string{"civil", "гражданск", "gk_rf"}},
}

// detectLegalArea matches the file name against known area keywords
func detectLegalArea(filename string) models.LegalArea {
	lower := strings.ToLower(filename)
	for _, candidate := range areaKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lower, keyword) {
				return candidate.area
			}
		}
	}
	return ""
}

// detectSourceType classifies a text as code, law, court_decision, regulation or article
func detectSourceType(filename, content string) string {
	lowerName := strings.ToLower(filename)
	switch {
	case strings.Contains(lowerName, "code") || strings.Contains(lowerName, "кодекс"):
		return "code"
	case strings.Contains(lowerName, "law") || strings.Contains(lowerName, "закон") || strings.Contains(lowerName, "fz"):
		return "law"
	case strings.Contains(lowerName, "court") || strings.Contains(lowerName, "decision") || strings.Contains(lowerName, "решени"):
		return "court_decision"
	}

	head := strings.ToLower(firstLine(content))
	switch {
	case strings.Contains(head, "кодекс"):
		return "code"
	case strings.Contains(head, "федеральный закон") || strings.Contains(head, "закон российской федерации"):
		return "law"
	case strings.Contains(head, "постановление пленума") || strings.Contains(head, "определение") || strings.Contains(head, "решение"):
		return "court_decision"
	case strings.Contains(head, "приказ") || strings.Contains(head, "постановление правительства"):
		return "regulation"
	}
	return "article"
}

func defaultAuthority(sourceType string) string {
	switch sourceType {
	case "code", "law":
		return "Федеральное Собрание РФ"
	case "court_decision":
		return "Верховный Суд РФ"
	case "regulation":
		return "Правительство РФ"
	default:
		return ""
	}
}

func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(strings.TrimLeft(line, "# ")); line != "" {
			return line
		}
	}
	return ""
}
