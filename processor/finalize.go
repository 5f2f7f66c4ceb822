package processor

import (
	"context"

	"github.com/aalemi-dev/apmbridge/apm"
	"github.com/aalemi-dev/apmbridge/expr"
	"github.com/aalemi-dev/apmbridge/mapping"
	"github.com/aalemi-dev/apmbridge/rules"
	"github.com/aalemi-dev/apmbridge/urlnaming"
)

// Transaction name prefixes.
const (
	WebPrefix        = "WebTransaction/"
	OtherPrefix      = "OtherTransaction/"
	NormalizedPrefix = "NormalizedUri"
	UriPrefix        = "Uri"
)

var otherCategories = map[apm.TransactionType]string{
	apm.TypeMessage:    "Message",
	apm.TypeBackground: "Background",
}

// finalize applies the rule's transaction transform and names tx. The name is stored
// on tx and returned.
func (p *SpanProcessor) finalize(ctx context.Context, tx *apm.Transaction, transform *rules.TransactionTransform, attrs mapping.Attributes) string {
	if transform == nil {
		transform = &rules.TransactionTransform{}
	}
	if transform.Type != "" {
		tx.SetType(transform.Type)
	}

	ns := tx.NameState()
	if n := transform.Name; n != nil {
		if v, ok := lookup(attrs, n.Prefix); ok {
			ns.SetPrefix(v)
		}
		if v, ok := lookup(attrs, n.Verb); ok {
			ns.SetVerb(v)
		}
		if v, ok := lookup(attrs, n.Path); ok {
			ns.AppendPath(v, nil)
		}
		if n.TemplatePath != "" {
			ns.AppendPath(mapping.TransformTemplate(n.TemplatePath, attrs, nil), nil)
		}
		if n.TemplateValue != "" {
			tx.SetPartialName(mapping.TransformTemplate(n.TemplateValue, attrs, nil))
		}
	}

	var name string
	if tx.IsWeb() {
		name = p.webName(ctx, tx, transform, attrs)
	} else {
		name = otherName(tx)
	}
	tx.SetName(name)
	return name
}

// webName names a web transaction. In order: a user naming rule matching the URL
// path, the route recorded in the NameState, a partial name, the raw URL path. A
// status code with a fixed name replaces the path part of the result.
func (p *SpanProcessor) webName(ctx context.Context, tx *apm.Transaction, transform *rules.TransactionTransform, attrs mapping.Attributes) string {
	ns := tx.NameState()
	if ns.Verb() == "" && tx.Verb() != "" {
		ns.SetVerb(tx.Verb())
	}

	raw, ok := transform.URL.ResolveString(attrs)
	if !ok {
		raw = tx.URL()
	}
	var path string
	if raw != "" {
		var err error
		path, err = p.namer.ParseAndObfuscate(raw)
		if err != nil {
			p.logDebug(ctx, "failed to parse transaction url", map[string]interface{}{
				"url":   raw,
				"error": err.Error(),
			})
		}
		tx.SetField(apm.FieldURL, path)
	}

	var name string
	if path != "" && path != urlnaming.UnknownPath {
		if normalized, ok := p.namer.Normalize(path); ok {
			name = WebPrefix + NormalizedPrefix + normalized
		}
	}
	if name == "" {
		if route, ok := ns.GetName(); ok {
			name = WebPrefix + route
		}
	}
	if name == "" {
		if partial := tx.PartialName(); partial != "" {
			name = WebPrefix + partial
		}
	}
	if name == "" {
		if path == "" {
			path = urlnaming.UnknownPath
		}
		name = WebPrefix + UriPrefix + path
	}

	if status, ok := ns.GetStatusName(tx.StatusCode()); ok {
		name = WebPrefix + status
	}
	return name
}

func otherName(tx *apm.Transaction) string {
	if partial := tx.PartialName(); partial != "" {
		return OtherPrefix + partial
	}
	if n, ok := tx.NameState().GetName(); ok {
		return OtherPrefix + n
	}
	category, ok := otherCategories[tx.Type()]
	if !ok {
		category = string(tx.Type())
	}
	return OtherPrefix + category + "/Unknown"
}

// lookup returns the non-empty string form of attrs[key].
func lookup(attrs mapping.Attributes, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	v, ok := attrs[key]
	if !ok {
		return "", false
	}
	s := expr.ToString(v)
	return s, s != ""
}
