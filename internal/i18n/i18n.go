// Package i18n holds the English and Vietnamese message catalogs and picks a
// language for a request.
package i18n

import (
	"embed"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
)

// Supported languages.
const (
	English    = "en"
	Vietnamese = "vi"
	Default    = English
)

//go:embed locales/*.toml
var localeFS embed.FS

var (
	catalogs = mustLoad()
	matcher  = language.NewMatcher([]language.Tag{language.English, language.Vietnamese})
)

// mustLoad parses every embedded catalog into flat dotted keys.
func mustLoad() map[string]map[string]string {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(fmt.Sprintf("i18n: read locales: %v", err))
	}
	out := make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		lang := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		var tree map[string]any
		if _, err := toml.DecodeFS(localeFS, "locales/"+e.Name(), &tree); err != nil {
			panic(fmt.Sprintf("i18n: parse %s: %v", e.Name(), err))
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		out[lang] = flat
	}
	return out
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Languages returns the supported language codes, sorted.
func Languages() []string {
	langs := make([]string, 0, len(catalogs))
	for l := range catalogs {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

// T returns the message for key in lang, falling back to English and then
// to the key itself. args are applied printf-style.
func T(lang, key string, args ...any) string {
	msg, ok := catalogs[lang][key]
	if !ok {
		msg, ok = catalogs[Default][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Negotiate picks the language for a request: a supported cookie value
// wins, then the best Accept-Language match, then English.
func Negotiate(cookieLang, acceptLanguage string) string {
	if Supported(cookieLang) {
		return cookieLang
	}
	if acceptLanguage == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	if idx == 1 {
		return Vietnamese
	}
	return English
}

// FromRequest negotiates the language of r using the lang cookie and the
// Accept-Language header.
func FromRequest(r *http.Request, cookieName string) string {
	var cookieLang string
	if c, err := r.Cookie(cookieName); err == nil {
		cookieLang = c.Value
	}
	return Negotiate(cookieLang, r.Header.Get("Accept-Language"))
}

// Toggle switches between English and Vietnamese.
func Toggle(lang string) string {
	if lang == Vietnamese {
		return English
	}
	return Vietnamese
}

// APIError returns the toast text for a failed API call with the given
// HTTP status. msg is the server's message, if any.
func APIError(lang string, status int, msg string) string {
	switch status {
	case http.StatusBadRequest:
		if msg != "" {
			return T(lang, "toast.apiError.400WithMessage", msg)
		}
		return T(lang, "toast.apiError.400")
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError:
		return T(lang, "toast.apiError."+strconv.Itoa(status))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return T(lang, "toast.apiError.default", msg)
}
