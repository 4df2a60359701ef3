package samlvalidate

// ConvertedAttribute is the attribute shape carried on a Credential, after
// AttributeConverter has had a chance to reshape raw string values (e.g.
// splitting a delimited groups string, as
// other_examples/17ff8dd7_dexidp-dex__connector-saml-saml.go.go's
// attributes.get/attributes.all pair does for username/email/groups).
type ConvertedAttribute struct {
	Name   string
	Values []string
}

// AttributeConverter (spec §6) is a pure strategy turning a raw attribute
// name and its string values into the values a Credential should carry.
// It is supplied via configuration and treated as an injected first-class
// strategy, per spec §9, rather than a free function or process-wide state.
type AttributeConverter interface {
	Convert(name string, rawValues []string) []string
}

// PassthroughAttributeConverter returns rawValues unchanged; it is the
// default when no converter is configured.
type PassthroughAttributeConverter struct{}

func (PassthroughAttributeConverter) Convert(_ string, rawValues []string) []string {
	return rawValues
}

// DelimitedAttributeConverter splits single-valued attributes named in
// Delimited on Sep, the way the teacher-adjacent dex connector's
// GroupsDelim option treats a comma/semicolon-joined groups attribute as
// multiple values.
type DelimitedAttributeConverter struct {
	Delimited map[string]string // attribute name -> delimiter
	Fallback  AttributeConverter
}

func (c DelimitedAttributeConverter) Convert(name string, rawValues []string) []string {
	if sep, ok := c.Delimited[name]; ok && len(rawValues) == 1 {
		return splitNonEmpty(rawValues[0], sep)
	}
	fallback := c.Fallback
	if fallback == nil {
		fallback = PassthroughAttributeConverter{}
	}
	return fallback.Convert(name, rawValues)
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			out = append(out, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	out = append(out, s[start:])
	return out
}

// convertAttributes flattens every AttributeStatement's (now-decrypted)
// attributes through converter, collecting one ConvertedAttribute per
// distinct attribute name across all statements.
func convertAttributes(statements []AttributeStatement, converter AttributeConverter) []ConvertedAttribute {
	if converter == nil {
		converter = PassthroughAttributeConverter{}
	}
	order := make([]string, 0)
	byName := make(map[string][]string)
	for _, stmt := range statements {
		for _, attr := range stmt.Attributes {
			if _, seen := byName[attr.Name]; !seen {
				order = append(order, attr.Name)
			}
			for _, v := range attr.Values {
				byName[attr.Name] = append(byName[attr.Name], v.Value)
			}
		}
	}
	var out []ConvertedAttribute
	for _, name := range order {
		out = append(out, ConvertedAttribute{
			Name:   name,
			Values: converter.Convert(name, byName[name]),
		})
	}
	return out
}

// firstAttributeValue returns the first converted value for name, if
// attrs contains an entry with that name and it has at least one value.
func firstAttributeValue(attrs []ConvertedAttribute, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name == name {
			if len(a.Values) == 0 {
				return "", false
			}
			return a.Values[0], true
		}
	}
	return "", false
}
