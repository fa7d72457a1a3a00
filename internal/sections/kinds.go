package sections

// DefaultRegistry returns the admin registry for the built-in section types.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Kind{
			Type:   "header",
			Editor: EditorForm,
			Fields: []Field{
				{"title", "Site title", FieldText},
				{"logo", "Logo URL", FieldURL},
			},
			Defaults: map[string]any{
				"title": "Your business",
				"links": []map[string]string{{"label": "Contact", "href": "#contact"}},
			},
		},
		Kind{
			Type:   "hero",
			Editor: EditorForm,
			Fields: []Field{
				{"title", "Headline", FieldText},
				{"subtitle", "Subheadline", FieldTextarea},
				{"image", "Background image URL", FieldURL},
				{"ctaLabel", "Button label", FieldText},
				{"ctaHref", "Button link", FieldURL},
			},
			Defaults: map[string]any{
				"title":    "A headline that says what you do",
				"subtitle": "One sentence on why people choose you.",
				"ctaLabel": "Get in touch",
				"ctaHref":  "#contact",
			},
		},
		Kind{
			Type:   "text",
			Editor: EditorForm,
			Fields: []Field{
				{"title", "Title", FieldText},
				{"body", "Body (Markdown)", FieldTextarea},
			},
			Defaults: map[string]any{"title": "About us", "body": "Tell your story here."},
		},
		Kind{
			Type: "features",
			Defaults: map[string]any{
				"title": "What we offer",
				"items": []map[string]string{
					{"title": "First feature", "body": "Describe it."},
					{"title": "Second feature", "body": "Describe it."},
					{"title": "Third feature", "body": "Describe it."},
				},
			},
		},
		Kind{
			Type:   "cta",
			Label:  "Call to action",
			Editor: EditorForm,
			Fields: []Field{
				{"title", "Title", FieldText},
				{"body", "Body (Markdown)", FieldTextarea},
				{"buttonLabel", "Button label", FieldText},
				{"buttonHref", "Button link", FieldURL},
			},
			Defaults: map[string]any{"title": "Ready to start?", "buttonLabel": "Contact us", "buttonHref": "#contact"},
		},
		Kind{
			Type:     "gallery",
			Defaults: map[string]any{"title": "Gallery", "prefix": "media/", "images": []any{}},
		},
		Kind{
			Type:   "video",
			Editor: EditorForm,
			Fields: []Field{
				{"title", "Title", FieldText},
				{"url", "Embed URL", FieldURL},
			},
			Defaults: map[string]any{"title": "See us in action", "url": ""},
		},
		Kind{
			Type:   "contact",
			Editor: EditorForm,
			Fields: []Field{
				{"title", "Title", FieldText},
				{"body", "Intro (Markdown)", FieldTextarea},
				{"email", "Email", FieldText},
				{"phone", "Phone", FieldText},
				{"address", "Address", FieldTextarea},
			},
			Defaults: map[string]any{"title": "Contact", "email": "hello@example.com"},
		},
		Kind{
			Type: "testimonials",
			Defaults: map[string]any{
				"title": "What customers say",
				"items": []map[string]string{{"quote": "Great service.", "author": "A. Customer"}},
			},
		},
		Kind{
			Type: "pricing",
			Defaults: map[string]any{
				"title": "Pricing",
				"plans": []map[string]any{
					{"name": "Basic", "price": "$9", "period": "month", "features": []string{"One thing"}},
				},
			},
		},
		Kind{
			Type:  "faq",
			Label: "FAQ",
			Defaults: map[string]any{
				"title": "Questions",
				"items": []map[string]string{{"question": "How does it work?", "answer": "Simply."}},
			},
		},
		Kind{
			Type:   "footer",
			Editor: EditorForm,
			Fields: []Field{
				{"text", "Text (Markdown)", FieldTextarea},
			},
			Defaults: map[string]any{"text": "© Your business"},
		},
	)
}
