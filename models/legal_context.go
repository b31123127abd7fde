package models

// LegalArea represents a branch of law a query belongs to
type LegalArea string

const (
	AreaCivil              LegalArea = "civil"
	AreaCriminal           LegalArea = "criminal"
	AreaAdministrative     LegalArea = "administrative"
	AreaLabor              LegalArea = "labor"
	AreaFamily             LegalArea = "family"
	AreaTax                LegalArea = "tax"
	AreaCorporate          LegalArea = "corporate"
	AreaConsumerProtection LegalArea = "consumer_protection"
)

// LegalAreas lists every supported legal area in declaration order
func LegalAreas() []LegalArea {
	return []LegalArea{
		AreaCivil,
		AreaCriminal,
		AreaAdministrative,
		AreaLabor,
		AreaFamily,
		AreaTax,
		AreaCorporate,
		AreaConsumerProtection,
	}
}

// Valid reports whether the area is one of the supported values
func (a LegalArea) Valid() bool {
	for _, known := range LegalAreas() {
		if a == known {
			return true
		}
	}
	return false
}

// Jurisdiction represents the legal system a query is evaluated under
type Jurisdiction string

const (
	JurisdictionRussia Jurisdiction = "russia"
)

// Valid reports whether the jurisdiction is supported
func (j Jurisdiction) Valid() bool {
	return j == JurisdictionRussia
}

// Urgency represents how quickly the user needs an answer
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

// Valid reports whether the urgency is one of the supported values
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return true
	}
	return false
}

// LegalContext represents the structured legal setting that accompanies every query.
// It is passed by value; agents narrow it through WithArea and never mutate the original.
type LegalContext struct {
	Area         LegalArea      `json:"area" yaml:"area"`
	Jurisdiction Jurisdiction   `json:"jurisdiction" yaml:"jurisdiction"`
	Urgency      Urgency        `json:"urgency" yaml:"urgency"`
	DisputeType  string         `json:"dispute_type,omitempty" yaml:"dispute_type,omitempty"`
	UserProfile  map[string]any `json:"user_profile,omitempty" yaml:"user_profile,omitempty"`
}

// WithArea returns a copy of the context pinned to the given area
func (c LegalContext) WithArea(area LegalArea) LegalContext {
	narrowed := c
	narrowed.Area = area
	if c.UserProfile != nil {
		narrowed.UserProfile = make(map[string]any, len(c.UserProfile))
		for k, v := range c.UserProfile {
			narrowed.UserProfile[k] = v
		}
	}
	return narrowed
}

// WithDefaults fills an empty jurisdiction and urgency
func (c LegalContext) WithDefaults() LegalContext {
	if c.Jurisdiction == "" {
		c.Jurisdiction = JurisdictionRussia
	}
	if c.Urgency == "" {
		c.Urgency = UrgencyMedium
	}
	return c
}
