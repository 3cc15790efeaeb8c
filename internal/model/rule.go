package model

type Rule struct {
	Name        string                 `yaml:"name" json:"name"`
	Enabled     bool                   `yaml:"enabled" json:"enabled"`
	Severity    string                 `yaml:"severity" json:"severity"`
	Description string                 `yaml:"description" json:"description"`
	Type        string                 `yaml:"type" json:"type"`
	Thresholds  map[string]interface{} `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
	Conditions  []Condition            `yaml:"conditions,omitempty" json:"conditions,omitempty"`
}

type Condition struct {
	Field    string      `yaml:"field" json:"field"`
	Operator string      `yaml:"operator" json:"operator"`
	Value    interface{} `yaml:"value" json:"value"`
}

// IntThreshold reads a numeric threshold that may have been decoded as int or float64
func (r Rule) IntThreshold(key string, def int) int {
	switch v := r.Thresholds[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// StringListCondition collects the string values of the first condition on field
func (r Rule) StringListCondition(field string) []string {
	for _, c := range r.Conditions {
		if c.Field != field {
			continue
		}
		switch v := c.Value.(type) {
		case []string:
			return v
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case string:
			return []string{v}
		}
	}
	return nil
}
