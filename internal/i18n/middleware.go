package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// Middleware injects a localizer into every request context. The language
// is taken from the Accept-Language header when it matches a loaded locale,
// otherwise lang is used.
func Middleware(lang string) func(http.Handler) http.Handler {
	matcher := language.NewMatcher(Languages())
	def := NewLocalizer(lang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loc := def
			if accept := r.Header.Get("Accept-Language"); accept != "" {
				if tag, _, conf := matchAccept(matcher, accept); conf != language.No {
					base, _ := tag.Base()
					loc = NewLocalizer(base.String(), lang)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
		})
	}
}

func matchAccept(m language.Matcher, accept string) (language.Tag, int, language.Confidence) {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return language.Und, 0, language.No
	}
	return m.Match(tags...)
}
