package engine

// attributeSchema whitelists the attribute keys the model may attach per
// category. Invalid attributes are dropped, never fatal.
var attributeSchema = map[string][]string{
	"meals":                  {"attendees", "meal_type", "memo"},
	"travel_transport":       {"trip_purpose", "destination", "memo"},
	"software_subscriptions": {"plan", "billing_period", "memo"},
	"professional_services":  {"service_type", "memo"},
	"payroll":                {"pay_period", "memo"},
	"rent":                   {"property", "memo"},
}

// defaultAttributeKeys apply to categories without a dedicated schema.
var defaultAttributeKeys = []string{"memo"}

// cleanAttributes drops attributes that the category's schema does not allow.
func cleanAttributes(category string, attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}

	allowed := attributeSchema[category]
	if allowed == nil {
		allowed = defaultAttributeKeys
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}

	out := make(map[string]string)
	for k, v := range attrs {
		if allowedSet[k] && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
