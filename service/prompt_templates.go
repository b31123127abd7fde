package service

import (
	"fmt"
	"regexp"
	"strings"

	"lawerapp-backend/models"
)

// PromptTemplate is a named prompt body with {{key}} placeholders
type PromptTemplate struct {
	ID       string `json:"id" yaml:"id"`
	Template string `json:"template" yaml:"template"`
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes every placeholder with its value from data; unknown keys render empty
func (p PromptTemplate) Render(data map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(p.Template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return stringifyValue(data[key])
	})
}

func stringifyValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []string:
		return strings.Join(value, ", ")
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			parts = append(parts, stringifyValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(value)
	}
}

func defaultPromptTemplates() []PromptTemplate {
	return []PromptTemplate{
		{
			ID: "consumer_claim_prompt",
			Template: `Составьте текст досудебной претензии потребителя ({{template_name}}).
Продавец: {{seller_name}}
Товар: {{product_description}}
Дата покупки: {{purchase_date}}
Стоимость: {{purchase_price}}
Суть проблемы: {{problem_description}}
Требования: {{demands}}
Покупатель: {{buyer_name}}

Правовой контекст: {{context}}

Сошлитесь на статьи 18, 22 и 23 Закона РФ «О защите прав потребителей». Укажите срок для добровольного удовлетворения требований.`,
		},
		{
			ID: "labor_lawsuit_prompt",
			Template: `Составьте текст искового заявления по трудовому спору ({{template_name}}).
Работодатель: {{employer_name}}
Должность истца: {{position}}
Дата увольнения: {{dismissal_date}}
Основание увольнения: {{dismissal_reason}}
Обстоятельства: {{circumstances}}
Требования: {{demands}}
Средний заработок: {{average_salary}}

Правовой контекст: {{context}}

Сошлитесь на нормы Трудового кодекса РФ, включая статьи 391, 392 и 394.`,
		},
		{
			ID: "debt_claim_prompt",
			Template: `Составьте текст претензии о возврате долга ({{template_name}}).
Должник: {{debtor_name}}
Сумма долга: {{debt_amount}}
Основание возникновения долга: {{debt_basis}}
Срок возврата: {{due_date}}
Кредитор: {{creditor_name}}
Проценты: {{interest}}

Правовой контекст: {{context}}

Сошлитесь на статьи 309, 310, 395 и 810 Гражданского кодекса РФ.`,
		},
		{
			ID: "employment_contract_prompt",
			Template: `Составьте текст трудового договора ({{template_name}}).
Работодатель: {{employer_name}}
Работник: {{employee_name}}
Должность: {{position}}
Оклад: {{salary}}
Дата начала работы: {{start_date}}
Испытательный срок: {{probation_period}}
Режим работы: {{work_schedule}}

Правовой контекст: {{context}}

Включите обязательные условия по статье 57 Трудового кодекса РФ.`,
		},
		{
			ID: "power_of_attorney_prompt",
			Template: `Составьте текст доверенности ({{template_name}}).
Доверитель: {{principal_name}}
Представитель: {{representative_name}}
Полномочия: {{powers}}
Срок действия: {{validity_period}}
Право передоверия: {{substitution_allowed}}

Правовой контекст: {{context}}

Учтите требования статей 185 и 186 Гражданского кодекса РФ.`,
		},
	}
}

func defaultDocumentTemplates() []models.DocumentTemplate {
	return []models.DocumentTemplate{
		{
			ID:               "consumer_claim",
			Name:             "Претензия о защите прав потребителя",
			Description:      "Досудебная претензия продавцу о возврате денег, замене или ремонте товара",
			LegalArea:        models.AreaConsumerProtection,
			Category:         models.CategoryClaim,
			RequiredFields:   []string{"seller_name", "product_description", "problem_description", "demands"},
			OptionalFields:   []string{"purchase_date", "purchase_price", "buyer_name"},
			PromptTemplateID: "consumer_claim_prompt",
			OutputFormat:     models.FormatHTML,
		},
		{
			ID:               "labor_lawsuit",
			Name:             "Исковое заявление о восстановлении на работе",
			Description:      "Иск к работодателю об оспаривании увольнения и взыскании среднего заработка",
			LegalArea:        models.AreaLabor,
			Category:         models.CategoryLawsuit,
			RequiredFields:   []string{"employer_name", "position", "dismissal_date", "demands"},
			OptionalFields:   []string{"dismissal_reason", "circumstances", "average_salary"},
			PromptTemplateID: "labor_lawsuit_prompt",
			OutputFormat:     models.FormatHTML,
		},
		{
			ID:               "debt_claim",
			Name:             "Претензия о возврате долга",
			Description:      "Требование к должнику о возврате денежных средств",
			LegalArea:        models.AreaCivil,
			Category:         models.CategoryClaim,
			RequiredFields:   []string{"debtor_name", "debt_amount", "debt_basis"},
			OptionalFields:   []string{"due_date", "creditor_name", "interest"},
			PromptTemplateID: "debt_claim_prompt",
			OutputFormat:     models.FormatHTML,
		},
		{
			ID:               "employment_contract",
			Name:             "Трудовой договор",
			Description:      "Трудовой договор с обязательными условиями по ТК РФ",
			LegalArea:        models.AreaLabor,
			Category:         models.CategoryContract,
			RequiredFields:   []string{"employer_name", "employee_name", "position", "salary", "start_date"},
			OptionalFields:   []string{"probation_period", "work_schedule"},
			PromptTemplateID: "employment_contract_prompt",
			OutputFormat:     models.FormatHTML,
		},
		{
			ID:               "power_of_attorney",
			Name:             "Доверенность",
			Description:      "Доверенность на представление интересов",
			LegalArea:        models.AreaCivil,
			Category:         models.CategoryOther,
			RequiredFields:   []string{"principal_name", "representative_name", "powers"},
			OptionalFields:   []string{"validity_period", "substitution_allowed"},
			PromptTemplateID: "power_of_attorney_prompt",
			OutputFormat:     models.FormatHTML,
		},
	}
}
