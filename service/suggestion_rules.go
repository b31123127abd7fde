package service

import (
	"strings"

	"lawerapp-backend/models"

	"github.com/google/uuid"
)

// suggestionRule fires when every keyword group has at least one substring hit
type suggestionRule struct {
	groups      [][]string
	kind        models.SuggestionType
	title       string
	description string
	confidence  float64
	actionType  string
	parameters  map[string]any
}

func (r suggestionRule) matches(lowered string) bool {
	if len(r.groups) == 0 {
		return false
	}
	for _, group := range r.groups {
		hit := false
		for _, keyword := range group {
			if strings.Contains(lowered, keyword) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func (r suggestionRule) suggestion() models.AISuggestion {
	params := make(map[string]any, len(r.parameters))
	for k, v := range r.parameters {
		params[k] = v
	}
	return models.AISuggestion{
		ID:          uuid.NewString(),
		Type:        r.kind,
		Title:       r.title,
		Description: r.description,
		Confidence:  clamp01(r.confidence),
		Action: models.SuggestionAction{
			Type:       r.actionType,
			Parameters: params,
		},
	}
}

// applySuggestionRules returns one suggestion per matching rule, in rule order
func applySuggestionRules(rules []suggestionRule, query string) []models.AISuggestion {
	lowered := strings.ToLower(query)
	suggestions := []models.AISuggestion{}
	for _, rule := range rules {
		if rule.matches(lowered) {
			suggestions = append(suggestions, rule.suggestion())
		}
	}
	return suggestions
}

const generateDocumentAction = "generate_document"

var consumerProtectionRules = []suggestionRule{
	{
		groups:      [][]string{{"товар", "product"}, {"вернуть", "возврат", "return", "обмен"}},
		kind:        models.SuggestionTypeDocument,
		title:       "Составить претензию продавцу",
		description: "Подготовить досудебную претензию о возврате или обмене товара",
		confidence:  0.9,
		actionType:  generateDocumentAction,
		parameters:  map[string]any{"templateId": "consumer_claim"},
	},
	{
		groups:      [][]string{{"брак", "некачеств", "defect"}},
		kind:        models.SuggestionTypeAction,
		title:       "Провести экспертизу качества",
		description: "Потребовать проверку качества товара в соответствии со ст. 18 Закона о защите прав потребителей",
		confidence:  0.75,
		actionType:  "quality_examination",
	},
	{
		groups:      [][]string{{"гаранти", "warranty"}},
		kind:        models.SuggestionTypeAction,
		title:       "Проверить гарантийный срок",
		description: "Уточнить гарантийный срок и условия гарантийного обслуживания",
		confidence:  0.7,
		actionType:  "warranty_check",
	},
}

var laborLawRules = []suggestionRule{
	{
		groups:      [][]string{{"увольн", "уволи", "dismissal", "fired"}},
		kind:        models.SuggestionTypeDocument,
		title:       "Подготовить иск о восстановлении на работе",
		description: "Составить исковое заявление об оспаривании увольнения",
		confidence:  0.85,
		actionType:  generateDocumentAction,
		parameters:  map[string]any{"templateId": "labor_lawsuit"},
	},
	{
		groups:      [][]string{{"зарплат", "заработн", "salary", "wage"}},
		kind:        models.SuggestionTypeAction,
		title:       "Обратиться в трудовую инспекцию",
		description: "Подать жалобу в Государственную инспекцию труда о невыплате заработной платы",
		confidence:  0.8,
		actionType:  "labor_inspection_complaint",
	},
}

var civilLawRules = []suggestionRule{
	{
		groups:      [][]string{{"долг", "займ", "debt", "loan"}},
		kind:        models.SuggestionTypeDocument,
		title:       "Составить претензию о возврате долга",
		description: "Подготовить требование о возврате денежных средств по договору займа",
		confidence:  0.8,
		actionType:  generateDocumentAction,
		parameters:  map[string]any{"templateId": "debt_claim"},
	},
	{
		groups:      [][]string{{"договор", "contract"}},
		kind:        models.SuggestionTypeAction,
		title:       "Проанализировать договор",
		description: "Проверить условия договора на соответствие Гражданскому кодексу РФ",
		confidence:  0.7,
		actionType:  "contract_review",
	},
}
